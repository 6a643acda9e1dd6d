package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

// sockRecv is sock_recv: gathers a flat receive buffer sized by the
// guest's iovec array, same shape as fd_read but against a SockDriver
// connection (SPEC_FULL.md's supplemented socket surface). The result
// flags word is always written zero; this host never reports
// sock_recv's MSG_TRUNC-equivalent out-of-band bit.
func (m *Module) sockRecv() HostFunc {
	return HostFunc{
		Name:       "sock_recv",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32, I32},
		ParamNames: []string{"fd", "ri_data", "ri_data_count", "ri_flags", "result.ro_datalen", "result.ro_flags"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			p := guestmem.NewTransferPlan(mem)
			sp, err := p.PlanScatter(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.EFAULT
			}
			flat := make([]byte, sp.Size)
			n, rerr := m.ctx.SockRecv(fd, flat)
			if rerr != nil {
				return asErrno(rerr)
			}
			p.Scatter(sp, flat[:n])
			p.QueueWrite(uint32(params[4]), le32(uint32(n)))
			p.QueueWrite(uint32(params[5]), le32(0))
			return commitOrFault(p)
		},
	}
}

// sockSend is sock_send: the mirror of sock_recv, gathering a flat send
// buffer from the guest's iovec array.
func (m *Module) sockSend() HostFunc {
	return HostFunc{
		Name:       "sock_send",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32},
		ParamNames: []string{"fd", "si_data", "si_data_count", "si_flags", "result.so_datalen"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			p := guestmem.NewTransferPlan(mem)
			flat, _, err := p.GatherIovecs(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.EFAULT
			}
			n, werr := m.ctx.SockSend(fd, flat)
			if werr != nil {
				return asErrno(werr)
			}
			p.QueueWrite(uint32(params[4]), le32(uint32(n)))
			return commitOrFault(p)
		},
	}
}

// sockAccept is sock_accept: accepts the next inbound connection on
// fd's listener and returns a new fd for it.
func (m *Module) sockAccept() HostFunc {
	return HostFunc{
		Name:       "sock_accept",
		ParamTypes: []ValueType{I32, I32, I32},
		ParamNames: []string{"fd", "flags", "result.fd"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			newFd, err := m.ctx.SockAccept(fd)
			if err != nil {
				return asErrno(err)
			}
			if werr := mem.PutUint32(uint32(params[2]), uint32(newFd)); werr != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

// sockShutdown is sock_shutdown: tears down fd's connection. This host
// does not distinguish read-only/write-only shutdown (SOCK_RDFLAGS
// bits), closing the connection outright for either direction.
func (m *Module) sockShutdown() HostFunc {
	return HostFunc{
		Name:       "sock_shutdown",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"fd", "how"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			return asErrno(m.ctx.SockShutdown(fd))
		},
	}
}
