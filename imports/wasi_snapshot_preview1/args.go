package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

// argsSizesGet is args_sizes_get: argc and the total byte size needed
// for argv's buffer. Per SPEC_FULL.md's supplemented-features note,
// args_get/environ_get follow the same "no trailing NUL, UTF-8" rule
// as path transfers rather than C-string NUL termination, so no
// per-argument terminator is counted here.
func (m *Module) argsSizesGet() HostFunc {
	return HostFunc{
		Name:       "args_sizes_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"result.argc", "result.argv_buf_size"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			args := m.ctx.Args()
			size := 0
			for _, a := range args {
				size += len(a)
			}
			if err := mem.PutUint32(uint32(params[0]), uint32(len(args))); err != nil {
				return wasip1.EFAULT
			}
			if err := mem.PutUint32(uint32(params[1]), uint32(size)); err != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

// writePointerArray packs each of strs back-to-back (no separator) into
// bufOffset and its starting address into ptrOffset[i], via p's queued
// writes so the pointer array and the string bytes land in one Commit.
func writePointerArray(p *guestmem.TransferPlan, strs []string, ptrOffset, bufOffset uint32) {
	ptrs := make([]byte, 4*len(strs))
	cursor := bufOffset
	for i, s := range strs {
		b := []byte(s)
		p.QueueWrite(cursor, b)
		lePutUint32(ptrs[i*4:], cursor)
		cursor += uint32(len(b))
	}
	p.QueueWrite(ptrOffset, ptrs)
}

func lePutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// argsGet is args_get: writes an argc-length array of pointers into
// argvOffset and the argument bytes themselves (concatenated, no
// terminator) into argvBufOffset.
func (m *Module) argsGet() HostFunc {
	return HostFunc{
		Name:       "args_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"argv", "argv_buf"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			p := guestmem.NewTransferPlan(mem)
			writePointerArray(p, m.ctx.Args(), uint32(params[0]), uint32(params[1]))
			return commitOrFault(p)
		},
	}
}

// environSizesGet is environ_sizes_get, the environment's analogue of
// args_sizes_get.
func (m *Module) environSizesGet() HostFunc {
	return HostFunc{
		Name:       "environ_sizes_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"result.environc", "result.environ_buf_size"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			env := m.ctx.Environ()
			size := 0
			for _, e := range env {
				size += len(e)
			}
			if err := mem.PutUint32(uint32(params[0]), uint32(len(env))); err != nil {
				return wasip1.EFAULT
			}
			if err := mem.PutUint32(uint32(params[1]), uint32(size)); err != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

// environGet is environ_get, the environment's analogue of args_get.
func (m *Module) environGet() HostFunc {
	return HostFunc{
		Name:       "environ_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"environ", "environ_buf"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			p := guestmem.NewTransferPlan(mem)
			writePointerArray(p, m.ctx.Environ(), uint32(params[0]), uint32(params[1]))
			return commitOrFault(p)
		},
	}
}
