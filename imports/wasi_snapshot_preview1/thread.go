package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

// threadSpawn is thread-spawn (the wasi-threads proposal's hyphenated
// name, carried over unchanged per spec.md §6): allocates a new thread
// id and returns it via result.tid. This host models a guest thread as
// a goroutine scheduling a registered entrypoint (internal/threadhost);
// since no entrypoint is wired by default (guest code execution is out
// of scope), the spawned thread is bookkeeping only.
func (m *Module) threadSpawn() HostFunc {
	return HostFunc{
		Name:       "thread-spawn",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"start_arg", "result.tid"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			tid := m.ctx.ThreadSpawn(uint32(params[0]))
			if err := mem.PutUint32(uint32(params[1]), tid); err != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

// threadExit is thread_exit: cancels the given thread's goroutine.
func (m *Module) threadExit() HostFunc {
	return HostFunc{
		Name:       "thread_exit",
		ParamTypes: []ValueType{I32},
		ParamNames: []string{"tid"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			return asErrno(m.ctx.ThreadExit(uint32(params[0])))
		},
	}
}
