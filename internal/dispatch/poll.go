package dispatch

import (
	"context"
	"time"

	"github.com/wasirun/preview1/internal/iostream"
	"github.com/wasirun/preview1/internal/vfs"
	"github.com/wasirun/preview1/internal/wasip1"
)

// alwaysReady is used for fd_read/fd_write subscriptions against a
// driver that doesn't implement vfs.Pollable: regular files never
// suspend a read or write in this host's model, so they are
// immediately ready.
type alwaysReady struct{}

func (alwaysReady) Ready() bool                 { return true }
func (alwaysReady) Block(context.Context) error { return nil }

// PollOneoff resolves subs (already parsed from the wire by the
// imports layer) into pollables and blocks until at least one is
// ready, per spec.md §4.3. Absolute clock subscriptions are rejected
// with ENOTSUP (DESIGN.md's Open Question decision: only the relative
// form is supported).
func (c *Context) PollOneoff(ctx context.Context, subs []wasip1.Subscription) ([]wasip1.Event, error) {
	if len(subs) == 0 {
		return nil, wasip1.EINVAL
	}

	converted := make([]iostream.Subscription, 0, len(subs))
	var timeout time.Duration = -1

	for _, s := range subs {
		switch s.Type {
		case wasip1.EVENTTYPE_CLOCK:
			if s.Clock.Flags&wasip1.SUBSCRIPTION_CLOCK_ABSTIME != 0 {
				converted = append(converted, iostream.Subscription{
					Userdata: s.Userdata,
					Type:     s.Type,
					Pollable: rejectedPollable{},
				})
				continue
			}
			d := time.Duration(s.Clock.Timeout)
			if tick := c.cfg.PollTickInterval; tick > 0 && d%tick != 0 {
				d += tick - d%tick
			}
			if timeout < 0 || d < timeout {
				timeout = d
			}
			converted = append(converted, iostream.Subscription{
				Userdata: s.Userdata,
				Type:     s.Type,
				Pollable: iostream.NewClockPollable(d),
			})
		case wasip1.EVENTTYPE_FD_READ, wasip1.EVENTTYPE_FD_WRITE:
			p, nbytes := c.fdPollable(s.FDReadwrite.FD, s.Type)
			converted = append(converted, iostream.Subscription{
				Userdata: s.Userdata,
				Type:     s.Type,
				FD:       s.FDReadwrite.FD,
				Pollable: p,
				Nbytes:   nbytes,
			})
		default:
			return nil, wasip1.EINVAL
		}
	}

	return iostream.PollOneoff(ctx, converted, timeout)
}

// rejectedPollable always reports ENOTSUP via Block so poll_oneoff's
// fan-in produces an event carrying ENOTSUP, rather than silently
// succeeding on an absolute-deadline clock subscription this host does
// not honor (or on an fd whose pollable could not be looked up).
type rejectedPollable struct{}

func (rejectedPollable) Ready() bool                 { return true }
func (rejectedPollable) Block(context.Context) error { return wasip1.ENOTSUP }

func (c *Context) fdPollable(fd wasip1.Fd, typ wasip1.Eventtype) (iostream.Pollable, func() wasip1.Filesize) {
	e, driver, err := c.lookup(fd)
	if err != nil {
		return rejectedPollable{}, nil
	}
	pollDriver, ok := driver.(vfs.Pollable)
	if !ok {
		return alwaysReady{}, func() wasip1.Filesize {
			n, _ := submit(c, func() (uint64, error) { return driver.BytesAvailable(e.Handle) })
			return wasip1.Filesize(n)
		}
	}
	if typ == wasip1.EVENTTYPE_FD_READ {
		s, err := pollDriver.ReadPollable(e.Handle)
		if err != nil {
			return rejectedPollable{}, nil
		}
		return iostream.NewReadPollable(s), func() wasip1.Filesize { return wasip1.Filesize(s.FillLevel()) }
	}
	s, err := pollDriver.WritePollable(e.Handle)
	if err != nil {
		return rejectedPollable{}, nil
	}
	return iostream.NewWritePollable(s, 0), func() wasip1.Filesize { return wasip1.Filesize(iostream.BufferSize - s.FillLevel()) }
}
