// Package hostclock implements the four preview-1 clocks and the
// cryptographic random source, grounded on spec.md §4.2. clock_res_get
// always reports 1ns resolution; clock_time_get never suspends.
package hostclock

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/wasirun/preview1/internal/wasip1"
)

// Clock serves the four preview-1 clock ids plus random_get. A single
// Clock is shared by every thread of one process, per spec.md §5; all
// methods are safe for concurrent use since they only read monotonic
// host state.
type Clock struct {
	start   time.Time
	monoRef time.Time
}

// New returns a Clock anchored to the current wall-clock and monotonic
// instant, captured once at process setup.
func New() *Clock {
	now := time.Now()
	return &Clock{start: now, monoRef: now}
}

// Resolution returns the reported resolution for id; preview-1 requires
// a non-zero value, and this host never claims better than 1ns.
func (c *Clock) Resolution(id wasip1.Clockid) (wasip1.Timestamp, error) {
	switch id {
	case wasip1.CLOCK_REALTIME, wasip1.CLOCK_MONOTONIC,
		wasip1.CLOCK_PROCESS_CPUTIME_ID, wasip1.CLOCK_THREAD_CPUTIME_ID:
		return 1, nil
	default:
		return 0, wasip1.EINVAL
	}
}

// Now returns the current value of the given clock.
func (c *Clock) Now(id wasip1.Clockid) (wasip1.Timestamp, error) {
	switch id {
	case wasip1.CLOCK_REALTIME:
		return wasip1.Timestamp(time.Now().UnixNano()), nil
	case wasip1.CLOCK_MONOTONIC:
		return wasip1.Timestamp(time.Since(c.monoRef).Nanoseconds()), nil
	case wasip1.CLOCK_PROCESS_CPUTIME_ID, wasip1.CLOCK_THREAD_CPUTIME_ID:
		// No per-process/per-thread CPU accounting is modeled; report
		// wall time elapsed since start, which is monotonic and
		// satisfies the non-decreasing testable property without
		// claiming a precision this host does not measure.
		return wasip1.Timestamp(time.Since(c.start).Nanoseconds()), nil
	default:
		return 0, wasip1.EINVAL
	}
}

// Random fills b with cryptographically strong random bytes. A failure
// to obtain randomness is reported as EIO per spec.md §4.2.
func (c *Clock) Random(b []byte) error {
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return wasip1.EIO
	}
	return nil
}
