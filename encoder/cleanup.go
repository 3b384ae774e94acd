package encoder

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// CleanupPolicy controls how partial output is removed after a cancel.
type CleanupPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultCleanupPolicy tries five times, 100ms apart.
func DefaultCleanupPolicy() CleanupPolicy {
	return CleanupPolicy{Attempts: 5, Delay: 100 * time.Millisecond}
}

func (p CleanupPolicy) normalized() CleanupPolicy {
	def := DefaultCleanupPolicy()
	if p.Attempts < 1 {
		p.Attempts = def.Attempts
	}
	if p.Delay <= 0 {
		p.Delay = def.Delay
	}
	return p
}

// removeOutput deletes path, a file or a directory tree. A path that does not
// exist counts as removed.
func (s *Supervisor) removeOutput(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	logger := s.log().With(zap.String("path", path))

	attempts := 0
	op := func() error {
		attempts++
		err := s.removePath(path)
		if err != nil {
			logger.Debug("remove partial output failed", zap.Int("attempt", attempts), zap.Error(err))
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cleanup.Delay), uint64(s.cleanup.Attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		cerr := &CleanupError{Path: path, Attempts: attempts, Err: err}
		logger.Warn("partial output left behind", zap.Int("attempts", attempts), zap.Error(err))
		return cerr
	}
	logger.Info("partial output removed", zap.Int("attempts", attempts))
	return nil
}

func (s *Supervisor) removePath(path string) error {
	info, err := s.fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return s.fs.RemoveAll(path)
	}
	err = s.fs.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
