// Package suspend freezes and thaws a running process without its
// cooperation. The child gets no signal it can handle and no chance to flush;
// it simply stops executing until resumed.
package suspend

import (
	"errors"
	"fmt"
)

// Suspender suspends and resumes every thread of a process. Both operations
// are no-ops for a process that no longer exists.
type Suspender interface {
	Suspend(pid int) error
	Resume(pid int) error
}

// threadAPI is the per-thread primitive set a platform provides.
type threadAPI interface {
	alive(pid int) bool
	threads(pid int) ([]uint32, error)
	// open returns false when the thread cannot be opened, e.g. it has exited.
	open(tid uint32) (uintptr, bool)
	suspend(h uintptr) error
	// resume returns the suspend count the thread had before the call.
	resume(h uintptr) (uint32, error)
	close(h uintptr)
}

// threadSuspender walks a process's threads and applies the primitives to each.
type threadSuspender struct {
	api threadAPI
}

func (t threadSuspender) Suspend(pid int) error {
	return t.each(pid, func(h uintptr) error {
		return t.api.suspend(h)
	})
}

// Resume undoes every outstanding suspension of each thread, not just one.
func (t threadSuspender) Resume(pid int) error {
	return t.each(pid, func(h uintptr) error {
		for {
			previous, err := t.api.resume(h)
			if err != nil {
				return err
			}
			if previous <= 1 {
				return nil
			}
		}
	})
}

func (t threadSuspender) each(pid int, fn func(h uintptr) error) error {
	if !t.api.alive(pid) {
		return nil
	}
	tids, err := t.api.threads(pid)
	if err != nil {
		return fmt.Errorf("list threads of %d: %w", pid, err)
	}
	var errs []error
	for _, tid := range tids {
		h, ok := t.api.open(tid)
		if !ok {
			continue
		}
		if err := fn(h); err != nil {
			errs = append(errs, fmt.Errorf("thread %d: %w", tid, err))
		}
		t.api.close(h)
	}
	return errors.Join(errs...)
}
