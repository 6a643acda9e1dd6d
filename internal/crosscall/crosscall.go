// Package crosscall implements the synchronous message-passing model
// spec.md §4.5 requires when the guest dispatcher and the host driver
// it calls into live in different execution contexts: the guest side
// blocks on a completion channel while a worker pool executes the
// driver call asynchronously and signals completion.
package crosscall

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Call is a unit of driver work submitted by a guest-side dispatcher.
// Run executes the actual driver method and returns its result; the
// caller of Submit blocks until Run has completed.
type Call struct {
	Run    func() (any, error)
	result chan callResult
}

type callResult struct {
	value any
	err   error
}

// Caller is the host-side worker pool a Context routes every syscall
// through. It presents a synchronous face to the guest dispatcher (the
// calling goroutine blocks until the result is ready) while letting the
// host run driver work on its own schedule.
type Caller struct {
	calls chan *Call
	group *errgroup.Group
}

// NewCaller starts workers goroutines draining submitted calls. workers
// <= 0 defaults to a single worker, which is sufficient correctness-wise
// (the fd table and drivers are already internally synchronized) but a
// higher count lets independent syscalls overlap their I/O.
func NewCaller(ctx context.Context, workers int) *Caller {
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	c := &Caller{calls: make(chan *Call), group: g}
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case call, ok := <-c.calls:
					if !ok {
						return nil
					}
					value, err := call.Run()
					call.result <- callResult{value: value, err: err}
				}
			}
		})
	}
	return c
}

// Submit blocks the calling goroutine (the guest-side dispatcher) until
// run has executed on a worker and returns its result.
func (c *Caller) Submit(run func() (any, error)) (any, error) {
	call := &Call{Run: run, result: make(chan callResult, 1)}
	c.calls <- call
	res := <-call.result
	return res.value, res.err
}

// Close stops accepting new calls and waits for in-flight work to drain.
func (c *Caller) Close() error {
	close(c.calls)
	return c.group.Wait()
}
