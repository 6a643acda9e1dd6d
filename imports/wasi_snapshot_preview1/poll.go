package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

// pollOneoff parses nsubscriptions 48-byte subscription structs at in,
// blocks via dispatch.Context.PollOneoff, and writes one 32-byte event
// per ready subscription starting at out, per spec.md §6's 48/32-byte
// wire layouts.
func (m *Module) pollOneoff() HostFunc {
	return HostFunc{
		Name:       "poll_oneoff",
		ParamTypes: []ValueType{I32, I32, I32, I32},
		ParamNames: []string{"in", "out", "nsubscriptions", "result.nevents"},
		Fn: func(ctx context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			inOff := uint32(params[0])
			outOff := uint32(params[1])
			n := uint32(params[2])

			subs := make([]wasip1.Subscription, n)
			for i := uint32(0); i < n; i++ {
				b, err := mem.Read(inOff+i*wasip1.SubscriptionSize, wasip1.SubscriptionSize)
				if err != nil {
					return wasip1.EFAULT
				}
				subs[i].Unmarshal(b)
			}

			events, err := m.ctx.PollOneoff(ctx, subs)
			if err != nil {
				return asErrno(err)
			}

			p := guestmem.NewTransferPlan(mem)
			for i, ev := range events {
				buf := make([]byte, wasip1.EventSize)
				ev.Marshal(buf)
				p.QueueWrite(outOff+uint32(i)*wasip1.EventSize, buf)
			}
			p.QueueWrite(uint32(params[3]), le32(uint32(len(events))))
			return commitOrFault(p)
		},
	}
}
