package encoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hevc-encoder/hwaccel"
	"hevc-encoder/progress"
	"hevc-encoder/suspend"
)

// State is the supervisor's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Stream names the output stream a line was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Observer receives events from a run. Calls arrive on the stream reader
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	OnProgress(p progress.Progress)
	OnError(e progress.ErrorEvent)
}

// LineObserver is optionally implemented by an Observer that wants every raw
// non-blank output line.
type LineObserver interface {
	OnLine(stream Stream, line string)
}

type nopObserver struct{}

func (nopObserver) OnProgress(progress.Progress) {}
func (nopObserver) OnError(progress.ErrorEvent) {}

// Supervisor runs one ffmpeg process at a time and reports on it.
type Supervisor struct {
	binary     string
	logger     *zap.Logger
	fs         afero.Fs
	suspender  suspend.Suspender
	cleanup    CleanupPolicy
	newCommand func(name string, args ...string) *exec.Cmd

	mu         sync.Mutex
	observer   Observer
	cmd        *exec.Cmd
	state      State
	outputFile string
	done       chan struct{}
	failure    *progress.ErrorEvent
	runLogger  *zap.Logger

	killed atomic.Bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFs sets the filesystem used to remove partial output.
func WithFs(fs afero.Fs) Option {
	return func(s *Supervisor) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithSuspender replaces the platform suspender.
func WithSuspender(sp suspend.Suspender) Option {
	return func(s *Supervisor) {
		if sp != nil {
			s.suspender = sp
		}
	}
}

// WithCleanupPolicy sets how partial output removal is retried.
func WithCleanupPolicy(p CleanupPolicy) Option {
	return func(s *Supervisor) {
		s.cleanup = p.normalized()
	}
}

// New creates a Supervisor that launches binary.
func New(binary string, opts ...Option) *Supervisor {
	s := &Supervisor{
		binary:     binary,
		logger:     zap.NewNop(),
		fs:         afero.NewOsFs(),
		suspender:  suspend.New(),
		cleanup:    DefaultCleanupPolicy(),
		newCommand: exec.Command,
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("supervisor")
	return s
}

// SetObserver registers the event sink for subsequent lines. A nil observer
// discards events.
func (s *Supervisor) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o == nil {
		o = nopObserver{}
	}
	s.observer = o
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OutputFile returns the output path of the current or most recent run.
func (s *Supervisor) OutputFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputFile
}

// Start runs the request to completion and returns the output path. It blocks
// until the process exits. Cancelling ctx has the same effect as Cancel.
func (s *Supervisor) Start(ctx context.Context, req hwaccel.Request) (string, error) {
	args, err := hwaccel.Args(req)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		return "", ErrAlreadyRunning
	}

	cmd := s.newCommand(s.binary, args...)
	// An empty stdin means ffmpeg never waits on interactive input.
	cmd.Stdin = bytes.NewReader(nil)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	runLogger := s.logger.With(zap.String("run_id", uuid.NewString()))
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		runLogger.Error("failed to start ffmpeg", zap.String("binary", s.binary), zap.Error(err))
		return "", fmt.Errorf("failed to start %s: %w", s.binary, err)
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.state = StateRunning
	s.outputFile = req.Output
	s.done = done
	s.failure = nil
	s.runLogger = runLogger
	s.killed.Store(false)
	s.mu.Unlock()

	runLogger.Info("encode started",
		zap.Int("pid", cmd.Process.Pid),
		zap.Strings("inputs", req.Inputs),
		zap.String("output", req.Output),
		zap.Stringer("vendor", req.Device.Vendor),
		zap.String("command", hwaccel.CommandLine(s.binary, args)),
	)

	var watcher sync.WaitGroup
	watcher.Add(1)
	go func() {
		defer watcher.Done()
		select {
		case <-ctx.Done():
			if err := s.Cancel(context.Background()); err != nil {
				runLogger.Warn("cancel after context done", zap.Error(err))
			}
		case <-done:
		}
	}()

	started := time.Now()
	parser := progress.NewParser()
	var readers errgroup.Group
	readers.Go(func() error { return s.consume(stdout, Stdout, parser) })
	readers.Go(func() error { return s.consume(stderr, Stderr, parser) })
	readErr := readers.Wait()
	waitErr := cmd.Wait()

	s.mu.Lock()
	failure := s.failure
	s.cmd = nil
	s.state = StateIdle
	s.mu.Unlock()
	close(done)
	watcher.Wait()

	if readErr != nil {
		runLogger.Warn("output reader error", zap.Error(readErr))
	}

	fields := []zap.Field{zap.Duration("elapsed", time.Since(started))}
	switch {
	case s.killed.Load():
		runLogger.Info("encode cancelled", fields...)
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return "", ErrCancelled
	case failure != nil:
		runLogger.Error("encode failed", append(fields, zap.Stringer("kind", failure.Kind), zap.Error(waitErr))...)
		if waitErr != nil {
			return "", fmt.Errorf("%w (%w)", *failure, waitErr)
		}
		return "", *failure
	case waitErr != nil:
		exitErr := newExitError(waitErr)
		runLogger.Error("encode failed", append(fields, zap.Error(exitErr))...)
		return "", exitErr
	}

	runLogger.Info("encode completed", fields...)
	return req.Output, nil
}

// consume reads one output stream line by line until it closes.
func (s *Supervisor) consume(r io.Reader, stream Stream, parser *progress.Parser) error {
	scanner := bufio.NewScanner(r)

	// Default is 64KB which can be exceeded by some FFmpeg metadata
	const maxScannerBuffer = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := scanner.Text()
		if isBlank(line) || s.killed.Load() {
			continue
		}
		s.dispatch(stream, line, parser)
	}
	err := scanner.Err()
	if err != nil {
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("read %s: %w", stream, err)
	}
	return nil
}

func (s *Supervisor) dispatch(stream Stream, line string, parser *progress.Parser) {
	s.mu.Lock()
	observer := s.observer
	s.mu.Unlock()

	if lo, ok := observer.(LineObserver); ok {
		lo.OnLine(stream, line)
	}

	res := parser.Parse(line)
	switch {
	case res.Error != nil:
		s.recordFailure(*res.Error)
		if res.Pause {
			if err := s.Pause(); err != nil {
				s.log().Warn("failed to pause after error", zap.Error(err))
			}
		}
		observer.OnError(*res.Error)
	case res.Progress != nil:
		observer.OnProgress(*res.Progress)
	}
}

func (s *Supervisor) recordFailure(ev progress.ErrorEvent) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = &ev
	}
	logger := s.runLogger
	s.mu.Unlock()
	if logger != nil {
		logger.Warn("error reported by ffmpeg", zap.Stringer("kind", ev.Kind), zap.String("message", ev.Message))
	}
}

// Pause freezes the running process. It does nothing when no process is active.
func (s *Supervisor) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil || s.state == StatePaused {
		return nil
	}
	if err := s.suspender.Suspend(s.cmd.Process.Pid); err != nil {
		return fmt.Errorf("suspend process %d: %w", s.cmd.Process.Pid, err)
	}
	s.state = StatePaused
	s.runLogger.Info("encode paused")
	return nil
}

// Resume lets a paused process continue. It does nothing when no process is active.
func (s *Supervisor) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.suspender.Resume(s.cmd.Process.Pid); err != nil {
		return fmt.Errorf("resume process %d: %w", s.cmd.Process.Pid, err)
	}
	if s.state == StatePaused {
		s.runLogger.Info("encode resumed")
	}
	s.state = StateRunning
	return nil
}

// Cancel kills the active process, waits until its exit is confirmed and
// removes the partial output. It returns immediately when nothing is running.
// A *CleanupError is returned when the output could not be removed.
func (s *Supervisor) Cancel(ctx context.Context) error {
	s.mu.Lock()
	cmd, done, output := s.cmd, s.done, s.outputFile
	if cmd == nil {
		s.mu.Unlock()
		return nil
	}
	// Lines still in flight after the kill are not real failures.
	s.killed.Store(true)
	logger := s.runLogger
	s.mu.Unlock()

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logger.Warn("kill failed", zap.Error(err))
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.removeOutput(ctx, output)
}

func (s *Supervisor) log() *zap.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runLogger != nil {
		return s.runLogger
	}
	return s.logger
}

// scanLines splits on \n, \r\n or a lone \r. FFmpeg rewrites its stats line
// in place with carriage returns.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// Need one more byte to tell \r from \r\n.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func isBlank(line string) bool {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t', '\r', '\n':
		default:
			return false
		}
	}
	return true
}
