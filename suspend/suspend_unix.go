//go:build unix

package suspend

import (
	"errors"

	"github.com/shirou/gopsutil/v4/process"
)

// New returns the POSIX implementation. Stop signals act on the whole thread
// group, and one SIGCONT clears any number of SIGSTOPs.
func New() Suspender {
	return signalSuspender{}
}

type signalSuspender struct{}

func (signalSuspender) Suspend(pid int) error {
	p, ok, err := lookup(pid)
	if !ok {
		return err
	}
	return p.Suspend()
}

func (signalSuspender) Resume(pid int) error {
	p, ok, err := lookup(pid)
	if !ok {
		return err
	}
	return p.Resume()
}

func lookup(pid int) (*process.Process, bool, error) {
	p, err := process.NewProcess(int32(pid))
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	running, err := p.IsRunning()
	if err != nil || !running {
		return nil, false, nil
	}
	return p, true, nil
}
