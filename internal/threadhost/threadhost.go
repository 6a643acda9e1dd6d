// Package threadhost models thread_spawn/thread_exit as goroutines
// sharing one process-handle Context, since this host never owns guest
// code execution directly (spec.md §4.5's thread-spawn note) — the
// embedder supplies the actual entrypoint invocation.
package threadhost

import (
	"context"
	"sync"

	"github.com/wasirun/preview1/internal/wasip1"
)

// Tid is a guest-visible thread id, allocated monotonically starting at
// 1; ids are never reused.
type Tid uint32

// Entrypoint is the guest module's thread entrypoint, invoked with the
// tid that was allocated for it and the start_arg passed to
// thread_spawn; the embedder is responsible for actually running guest
// code here (compiling/instantiating wasm is explicitly out of scope,
// see DESIGN.md).
type Entrypoint func(ctx context.Context, tid Tid, startArg uint32)

// Host tracks the live threads of one process.
type Host struct {
	mu      sync.Mutex
	nextTid Tid
	live    map[Tid]context.CancelFunc
	entry   Entrypoint
}

// New returns a thread host that schedules spawned threads by calling
// entry on a fresh goroutine. A nil entry makes Spawn a no-op allocator,
// useful for tests that only exercise tid bookkeeping.
func New(entry Entrypoint) *Host {
	return &Host{live: map[Tid]context.CancelFunc{}, entry: entry}
}

// Spawn allocates a new tid, schedules entry on a fresh goroutine
// sharing this host's linear memory (the embedder's Entrypoint
// implementation is responsible for actually wiring that up), and
// returns the tid immediately without waiting for it to run.
func (h *Host) Spawn(startArg uint32) Tid {
	h.mu.Lock()
	h.nextTid++
	tid := h.nextTid
	ctx, cancel := context.WithCancel(context.Background())
	h.live[tid] = cancel
	entry := h.entry
	h.mu.Unlock()

	if entry != nil {
		go entry(ctx, tid, startArg)
	}
	return tid
}

// Exit terminates the given thread, cancelling the context its
// Entrypoint was given. Exiting an unknown tid returns EINVAL.
func (h *Host) Exit(tid Tid) error {
	h.mu.Lock()
	cancel, ok := h.live[tid]
	delete(h.live, tid)
	h.mu.Unlock()
	if !ok {
		return wasip1.EINVAL
	}
	cancel()
	return nil
}

// Len reports the number of live threads.
func (h *Host) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}
