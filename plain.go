package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"hevc-encoder/encoder"
	"hevc-encoder/hwaccel"
	"hevc-encoder/progress"
)

// plainObserver prints one line per whole percent of progress.
type plainObserver struct {
	mu   sync.Mutex
	out  io.Writer
	last int
}

func newPlainObserver(out io.Writer) *plainObserver {
	return &plainObserver{out: out, last: -1}
}

func (o *plainObserver) OnProgress(p progress.Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pct := int(p.Percent)
	if pct == o.last {
		return
	}
	o.last = pct
	fmt.Fprintf(o.out, "progress %5.1f%%  frame %d  %s / %s\n", p.Percent, p.Frame, p.Current, p.Total)
}

func (o *plainObserver) OnError(e progress.ErrorEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, "error (%s): %s\n", e.Kind, e.Message)
	if e.Kind == progress.NoSpaceLeft {
		fmt.Fprintln(o.out, "encoder paused after running out of space; interrupt to cancel")
	}
}

type starter interface {
	SetObserver(o encoder.Observer)
	Start(ctx context.Context, req hwaccel.Request) (string, error)
}

// runPlain runs the encode with line-oriented output for pipes and logs.
func runPlain(ctx context.Context, sup starter, req hwaccel.Request, out io.Writer, logger *zap.Logger) error {
	sup.SetObserver(newPlainObserver(out))
	defer sup.SetObserver(nil)

	logger.Debug("plain encode", logFields(req)...)
	output, err := sup.Start(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "done: %s\n", output)
	return nil
}
