package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

func (m *Module) fdAdvise() HostFunc {
	return HostFunc{
		Name:       "fd_advise",
		ParamTypes: []ValueType{I32, I64, I64, I32},
		ParamNames: []string{"fd", "offset", "len", "advice"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			advice := wasip1.Advice(uint8(params[3]))
			return asErrno(m.ctx.FdAdvise(fd, params[1], params[2], advice))
		},
	}
}

func (m *Module) fdAllocate() HostFunc {
	return HostFunc{
		Name:       "fd_allocate",
		ParamTypes: []ValueType{I32, I64, I64},
		ParamNames: []string{"fd", "offset", "len"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			return asErrno(m.ctx.FdAllocate(fd, params[1], params[2]))
		},
	}
}

func (m *Module) fdClose() HostFunc {
	return HostFunc{
		Name:       "fd_close",
		ParamTypes: []ValueType{I32},
		ParamNames: []string{"fd"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			return asErrno(m.ctx.FdClose(fd))
		},
	}
}

func (m *Module) fdDatasync() HostFunc {
	return HostFunc{
		Name:       "fd_datasync",
		ParamTypes: []ValueType{I32},
		ParamNames: []string{"fd"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			return asErrno(m.ctx.FdDatasync(fd))
		},
	}
}

func (m *Module) fdFdstatGet() HostFunc {
	return HostFunc{
		Name:       "fd_fdstat_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"fd", "result.stat"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			stat, err := m.ctx.FdFdstatGet(fd)
			if err != nil {
				return asErrno(err)
			}
			buf, rerr := mem.Read(uint32(params[1]), wasip1.FdstatSize)
			if rerr != nil {
				return wasip1.EFAULT
			}
			stat.Marshal(buf)
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) fdFdstatSetFlags() HostFunc {
	return HostFunc{
		Name:       "fd_fdstat_set_flags",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"fd", "flags"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			flags := wasip1.Fdflags(uint16(params[1]))
			return asErrno(m.ctx.FdFdstatSetFlags(fd, flags))
		},
	}
}

func (m *Module) fdFilestatGet() HostFunc {
	return HostFunc{
		Name:       "fd_filestat_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"fd", "result.buf"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			st, err := m.ctx.FdFilestatGet(fd)
			if err != nil {
				return asErrno(err)
			}
			buf, rerr := mem.Read(uint32(params[1]), wasip1.FilestatSize)
			if rerr != nil {
				return wasip1.EFAULT
			}
			st.Marshal(buf)
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) fdFilestatSetSize() HostFunc {
	return HostFunc{
		Name:       "fd_filestat_set_size",
		ParamTypes: []ValueType{I32, I64},
		ParamNames: []string{"fd", "size"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			return asErrno(m.ctx.FdFilestatSetSize(fd, params[1]))
		},
	}
}

func (m *Module) fdFilestatSetTimes() HostFunc {
	return HostFunc{
		Name:       "fd_filestat_set_times",
		ParamTypes: []ValueType{I32, I64, I64, I32},
		ParamNames: []string{"fd", "atim", "mtim", "fst_flags"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			atim := wasip1.Timestamp(params[1])
			mtim := wasip1.Timestamp(params[2])
			flags := wasip1.Fstflags(uint16(params[3]))
			return asErrno(m.ctx.FdFilestatSetTimes(fd, atim, mtim, flags))
		},
	}
}

func (m *Module) fdPread() HostFunc {
	return HostFunc{
		Name:       "fd_pread",
		ParamTypes: []ValueType{I32, I32, I32, I64, I32},
		ParamNames: []string{"fd", "iovs", "iovs_len", "offset", "result.nread"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			p := guestmem.NewTransferPlan(mem)
			sp, err := p.PlanScatter(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.EFAULT
			}
			flat := make([]byte, sp.Size)
			n, rerr := m.ctx.FdPread(fd, flat, int64(params[3]))
			if rerr != nil {
				return asErrno(rerr)
			}
			p.Scatter(sp, flat[:n])
			p.QueueWrite(uint32(params[4]), le32(uint32(n)))
			return commitOrFault(p)
		},
	}
}

func (m *Module) fdPrestatGet() HostFunc {
	return HostFunc{
		Name:       "fd_prestat_get",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"fd", "result.prestat"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			pre, err := m.ctx.FdPrestatGet(fd)
			if err != nil {
				return asErrno(err)
			}
			buf, rerr := mem.Read(uint32(params[1]), wasip1.PrestatSize)
			if rerr != nil {
				return wasip1.EFAULT
			}
			pre.Marshal(buf)
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) fdPrestatDirName() HostFunc {
	return HostFunc{
		Name:       "fd_prestat_dir_name",
		ParamTypes: []ValueType{I32, I32, I32},
		ParamNames: []string{"fd", "path", "path_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			path, err := m.ctx.FdPrestatDirName(fd)
			if err != nil {
				return asErrno(err)
			}
			pathLen := uint32(params[2])
			if uint32(len(path)) > pathLen {
				return wasip1.ENAMETOOLONG
			}
			if werr := mem.Write(uint32(params[1]), []byte(path)); werr != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) fdPwrite() HostFunc {
	return HostFunc{
		Name:       "fd_pwrite",
		ParamTypes: []ValueType{I32, I32, I32, I64, I32},
		ParamNames: []string{"fd", "iovs", "iovs_len", "offset", "result.nwritten"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			p := guestmem.NewTransferPlan(mem)
			flat, _, err := p.GatherIovecs(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.EFAULT
			}
			n, werr := m.ctx.FdPwrite(fd, flat, int64(params[3]))
			if werr != nil {
				return asErrno(werr)
			}
			p.QueueWrite(uint32(params[4]), le32(uint32(n)))
			return commitOrFault(p)
		},
	}
}

func (m *Module) fdRead() HostFunc {
	return HostFunc{
		Name:       "fd_read",
		ParamTypes: []ValueType{I32, I32, I32, I32},
		ParamNames: []string{"fd", "iovs", "iovs_len", "result.nread"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			p := guestmem.NewTransferPlan(mem)
			sp, err := p.PlanScatter(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.EFAULT
			}
			flat := make([]byte, sp.Size)
			n, rerr := m.ctx.FdRead(fd, flat)
			if rerr != nil {
				return asErrno(rerr)
			}
			p.Scatter(sp, flat[:n])
			p.QueueWrite(uint32(params[3]), le32(uint32(n)))
			return commitOrFault(p)
		},
	}
}

func (m *Module) fdReaddir() HostFunc {
	return HostFunc{
		Name:       "fd_readdir",
		ParamTypes: []ValueType{I32, I32, I32, I64, I32},
		ParamNames: []string{"fd", "buf", "buf_len", "cookie", "result.bufused"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			bufLen := uint32(params[2])
			cookie := wasip1.Dircookie(params[3])
			out, err := m.ctx.FdReaddir(fd, bufLen, cookie)
			if err != nil {
				return asErrno(err)
			}
			p := guestmem.NewTransferPlan(mem)
			p.QueueWrite(uint32(params[1]), out)
			p.QueueWrite(uint32(params[4]), le32(uint32(len(out))))
			return commitOrFault(p)
		},
	}
}

func (m *Module) fdRenumber() HostFunc {
	return HostFunc{
		Name:       "fd_renumber",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"fd", "to"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			from := wasip1.Fd(uint32(params[0]))
			to := wasip1.Fd(uint32(params[1]))
			return asErrno(m.ctx.FdRenumber(from, to))
		},
	}
}

func (m *Module) fdSeek() HostFunc {
	return HostFunc{
		Name:       "fd_seek",
		ParamTypes: []ValueType{I32, I64, I32, I32},
		ParamNames: []string{"fd", "offset", "whence", "result.newoffset"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			delta := int64(params[1])
			whence := wasip1.Whence(uint8(params[2]))
			pos, err := m.ctx.FdSeek(fd, delta, whence)
			if err != nil {
				return asErrno(err)
			}
			if werr := mem.PutUint64(uint32(params[3]), uint64(pos)); werr != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) fdSync() HostFunc {
	return HostFunc{
		Name:       "fd_sync",
		ParamTypes: []ValueType{I32},
		ParamNames: []string{"fd"},
		Fn: func(_ context.Context, _ guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			return asErrno(m.ctx.FdSync(fd))
		},
	}
}

func (m *Module) fdTell() HostFunc {
	return HostFunc{
		Name:       "fd_tell",
		ParamTypes: []ValueType{I32, I32},
		ParamNames: []string{"fd", "result.offset"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			pos, err := m.ctx.FdTell(fd)
			if err != nil {
				return asErrno(err)
			}
			if werr := mem.PutUint64(uint32(params[1]), uint64(pos)); werr != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) fdWrite() HostFunc {
	return HostFunc{
		Name:       "fd_write",
		ParamTypes: []ValueType{I32, I32, I32, I32},
		ParamNames: []string{"fd", "iovs", "iovs_len", "result.nwritten"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			p := guestmem.NewTransferPlan(mem)
			flat, _, err := p.GatherIovecs(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.EFAULT
			}
			n, werr := m.ctx.FdWrite(fd, flat)
			if werr != nil {
				return asErrno(werr)
			}
			p.QueueWrite(uint32(params[3]), le32(uint32(n)))
			return commitOrFault(p)
		},
	}
}

// le32 is the 4-byte little-endian encoding of v, used for the small
// scalar results (nread/nwritten/bufused) that ride along on a
// TransferPlan's queued writes rather than going through mem.PutUint32
// directly.
func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
