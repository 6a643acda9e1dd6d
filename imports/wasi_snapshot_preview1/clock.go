package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

// clockResGet is clock_res_get.
func (m *Module) clockResGet() HostFunc {
	return HostFunc{
		Name:       "clock_res_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"id", "result.resolution"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			id := wasip1.Clockid(uint32(params[0]))
			res, err := m.ctx.ClockResGet(id)
			if err != nil {
				return asErrno(err)
			}
			if err := mem.PutUint64(uint32(params[1]), uint64(res)); err != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

// clockTimeGet is clock_time_get.
func (m *Module) clockTimeGet() HostFunc {
	return HostFunc{
		Name:       "clock_time_get",
		ParamTypes: []ValueType{I32, I64, I32},
		ParamNames: []string{"id", "precision", "result.timestamp"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			id := wasip1.Clockid(uint32(params[0]))
			precision := wasip1.Timestamp(params[1])
			now, err := m.ctx.ClockTimeGet(id, precision)
			if err != nil {
				return asErrno(err)
			}
			if err := mem.PutUint64(uint32(params[2]), uint64(now)); err != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

// randomGet is random_get.
func (m *Module) randomGet() HostFunc {
	return HostFunc{
		Name:       "random_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"buf", "buf_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			size := uint32(params[1])
			b := make([]byte, size)
			if err := m.ctx.RandomGet(b); err != nil {
				return asErrno(err)
			}
			if err := mem.Write(uint32(params[0]), b); err != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

// schedYield is sched_yield.
func (m *Module) schedYield() HostFunc {
	return HostFunc{
		Name:       "sched_yield",
		ParamTypes: nil,
		Fn: func(_ context.Context, _ guestmem.Memory, _ []uint64) wasip1.Errno {
			return asErrno(m.ctx.SchedYield())
		},
	}
}

// procExit is proc_exit: it invokes Exit (when set) with the exit code
// and then returns ESUCCESS; preview-1 defines the call as noreturn, so
// the embedding replay loop stops driving this Module once Exit has
// been invoked.
func (m *Module) procExit() HostFunc {
	return HostFunc{
		Name:       "proc_exit",
		ParamTypes: []ValueType{I32},
		ParamNames: []string{"rval"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			if m.Exit != nil {
				m.Exit(uint32(params[0]))
			}
			return wasip1.ESUCCESS
		},
	}
}
