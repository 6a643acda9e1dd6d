package dispatch

import (
	"runtime"

	"github.com/wasirun/preview1/internal/threadhost"
	"github.com/wasirun/preview1/internal/wasip1"
)

// Args returns the guest's argv, as configured at Context construction.
func (c *Context) Args() []string { return c.args }

// Environ returns the guest's environment, as configured at Context
// construction.
func (c *Context) Environ() []string { return c.environ }

// ClockResGet returns the reported resolution for the given clock.
func (c *Context) ClockResGet(id wasip1.Clockid) (wasip1.Timestamp, error) {
	return c.clock.Resolution(id)
}

// ClockTimeGet returns the current value of the given clock; precision
// is accepted but ignored, per spec.md §4.2.
func (c *Context) ClockTimeGet(id wasip1.Clockid, _ wasip1.Timestamp) (wasip1.Timestamp, error) {
	return c.clock.Now(id)
}

// RandomGet fills b with cryptographically strong random bytes.
func (c *Context) RandomGet(b []byte) error {
	return c.clock.Random(b)
}

// SchedYield is a hint that this host satisfies trivially: Go's own
// scheduler already preempts goroutines, so there is nothing to do
// beyond giving the runtime a cooperative yield point.
func (c *Context) SchedYield() error {
	runtime.Gosched()
	return nil
}

// ThreadSpawn allocates a new thread id. The Context's thread host is
// built without an entrypoint, so no goroutine is started for it.
func (c *Context) ThreadSpawn(startArg uint32) uint32 {
	return uint32(c.threads.Spawn(startArg))
}

// ThreadExit terminates the given thread.
func (c *Context) ThreadExit(tid uint32) error {
	return c.threads.Exit(threadhost.Tid(tid))
}
