package encoder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoOutput is returned by ViewOutput before any run has been started.
var ErrNoOutput = errors.New("no output file")

// ViewOutput reveals the output file in the platform file manager. It does
// not wait for the file manager to exit.
func (s *Supervisor) ViewOutput() error {
	path := s.OutputFile()
	if path == "" {
		return ErrNoOutput
	}
	cmd := revealCommand(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("reveal %s: %w", path, err)
	}
	s.log().Debug("revealing output", zap.String("path", path), zap.Int("pid", cmd.Process.Pid))
	go func() { _ = cmd.Wait() }()
	return nil
}
