//go:build windows

package suspend

import (
	"errors"
	"unsafe"

	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/windows"
)

// x/sys/windows wraps ResumeThread but not SuspendThread.
var (
	kernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procSuspendThread = kernel32.NewProc("SuspendThread")
)

const threadFailed = 0xFFFFFFFF

// New returns the per-thread Win32 implementation.
func New() Suspender {
	return threadSuspender{api: win32Threads{}}
}

type win32Threads struct{}

func (win32Threads) alive(pid int) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	running, err := p.IsRunning()
	return err == nil && running
}

func (win32Threads) threads(pid int) ([]uint32, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(snap)

	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var tids []uint32
	for err = windows.Thread32First(snap, &entry); err == nil; err = windows.Thread32Next(snap, &entry) {
		if entry.OwnerProcessID == uint32(pid) {
			tids = append(tids, entry.ThreadID)
		}
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, err
	}
	return tids, nil
}

func (win32Threads) open(tid uint32) (uintptr, bool) {
	h, err := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, tid)
	if err != nil || h == 0 {
		return 0, false
	}
	return uintptr(h), true
}

func (win32Threads) suspend(h uintptr) error {
	r, _, err := procSuspendThread.Call(h)
	if uint32(r) == threadFailed {
		return err
	}
	return nil
}

func (win32Threads) resume(h uintptr) (uint32, error) {
	previous, err := windows.ResumeThread(windows.Handle(h))
	if previous == threadFailed {
		return 0, err
	}
	return previous, nil
}

func (win32Threads) close(h uintptr) {
	_ = windows.CloseHandle(windows.Handle(h))
}
