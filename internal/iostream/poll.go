package iostream

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wasirun/preview1/internal/wasip1"
)

// Pollable is created by subscribing to a clock instant/duration or to
// readable/writable readiness on a stream.
type Pollable interface {
	// Ready reports readiness without blocking.
	Ready() bool
	// Block suspends until ready or ctx is done.
	Block(ctx context.Context) error
}

// clockPollable fires once its deadline has passed.
type clockPollable struct {
	deadline time.Time
}

// NewClockPollable returns a Pollable that becomes ready after d elapses,
// grounded on the relative-only clock subscription decision recorded in
// DESIGN.md (absolute deadlines are rejected by the caller before this
// is constructed).
func NewClockPollable(d time.Duration) Pollable {
	return &clockPollable{deadline: time.Now().Add(d)}
}

func (p *clockPollable) Ready() bool {
	return !time.Now().Before(p.deadline)
}

func (p *clockPollable) Block(ctx context.Context) error {
	if p.Ready() {
		return nil
	}
	timer := time.NewTimer(time.Until(p.deadline))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// streamPollable polls a Stream's readable or writable readiness.
type streamPollable struct {
	s         *Stream
	write     bool
	writeSize int
}

// NewReadPollable returns a Pollable that is ready when s.Read() would
// return immediately.
func NewReadPollable(s *Stream) Pollable { return &streamPollable{s: s} }

// NewWritePollable returns a Pollable that is ready when a Write of
// writeSize bytes would not block.
func NewWritePollable(s *Stream, writeSize int) Pollable {
	return &streamPollable{s: s, write: true, writeSize: writeSize}
}

func (p *streamPollable) Ready() bool {
	if p.write {
		return p.s.WritableReady(p.writeSize)
	}
	return p.s.Ready()
}

func (p *streamPollable) Block(ctx context.Context) error {
	if p.Ready() {
		return nil
	}
	done := make(chan struct{})
	go func() {
		p.s.mu.Lock()
		for !p.Ready() {
			p.s.cond.Wait()
		}
		p.s.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscription pairs a caller-chosen pollable with the bookkeeping
// poll_oneoff needs to produce its matching event.
type Subscription struct {
	Userdata uint64
	Type     wasip1.Eventtype
	Pollable Pollable
	FD       wasip1.Fd // only meaningful when Type is fd_read/fd_write
	Nbytes   func() wasip1.Filesize
}

// PollOneoff blocks until at least one subscription is ready (or the
// given timeout elapses, if timeout >= 0), then returns one Event per
// ready subscription. Each candidate is raced in its own goroutine via
// an errgroup, mirroring the teacher's per-subscription processTty
// goroutine pattern generalized to arbitrary pollables.
func PollOneoff(ctx context.Context, subs []Subscription, timeout time.Duration) ([]wasip1.Event, error) {
	if len(subs) == 0 {
		return nil, wasip1.EINVAL
	}
	if timeout >= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// The first subscription to produce an event cancels the rest.
	ctx, cancelRest := context.WithCancel(ctx)
	defer cancelRest()

	results := make([]*wasip1.Event, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range subs {
		i := i
		g.Go(func() error {
			sub := subs[i]
			err := sub.Pollable.Block(gctx)
			switch err {
			case nil:
				ev := wasip1.Event{Userdata: sub.Userdata, Type: sub.Type}
				if sub.Type != wasip1.EVENTTYPE_CLOCK && sub.Nbytes != nil {
					ev.FDReadwrite.Nbytes = sub.Nbytes()
				}
				results[i] = &ev
				cancelRest()
				return nil
			case context.DeadlineExceeded, context.Canceled:
				return nil
			default:
				ev := wasip1.Event{Userdata: sub.Userdata, Type: sub.Type, Error: wasip1.ToErrno(err)}
				results[i] = &ev
				cancelRest()
				return nil
			}
		})
	}
	_ = g.Wait()

	events := make([]wasip1.Event, 0, len(subs))
	for _, ev := range results {
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}
