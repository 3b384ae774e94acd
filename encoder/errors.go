package encoder

import (
	"errors"
	"fmt"
	"os/exec"
)

var (
	ErrAlreadyRunning    = errors.New("encode already running")
	ErrCancelled         = errors.New("encode cancelled")
	ErrNonZeroExit       = errors.New("ffmpeg exited with non-zero status")
	ErrCleanupIncomplete = errors.New("partial output could not be removed")
)

// ExitError reports a process that ended unsuccessfully without printing a
// recognised error line.
type ExitError struct {
	Code int
	Err  error
}

func newExitError(err error) *ExitError {
	code := -1
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	}
	return &ExitError{Code: code, Err: err}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ffmpeg exited with code %d: %v", e.Code, e.Err)
}

func (e *ExitError) Is(target error) bool {
	return target == ErrNonZeroExit
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// CleanupError is returned by Cancel when the partial output survived every
// removal attempt.
type CleanupError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("remove %s after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *CleanupError) Is(target error) bool {
	return target == ErrCleanupIncomplete
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
