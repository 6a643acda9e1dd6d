package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

func (m *Module) pathCreateDirectory() HostFunc {
	return HostFunc{
		Name:       "path_create_directory",
		ParamTypes: []ValueType{I32, I32, I32},
		ParamNames: []string{"fd", "path", "path_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			path, err := mem.String(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			return asErrno(m.ctx.PathCreateDirectory(fd, path))
		},
	}
}

func (m *Module) pathFilestatGet() HostFunc {
	return HostFunc{
		Name:       "path_filestat_get",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32},
		ParamNames: []string{"fd", "flags", "path", "path_len", "result.buf"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			flags := wasip1.Lookupflags(uint32(params[1]))
			path, err := mem.String(uint32(params[2]), uint32(params[3]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			st, serr := m.ctx.PathFilestatGet(fd, flags, path)
			if serr != nil {
				return asErrno(serr)
			}
			buf, rerr := mem.Read(uint32(params[4]), wasip1.FilestatSize)
			if rerr != nil {
				return wasip1.EFAULT
			}
			st.Marshal(buf)
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) pathFilestatSetTimes() HostFunc {
	return HostFunc{
		Name:       "path_filestat_set_times",
		ParamTypes: []ValueType{I32, I32, I32, I32, I64, I64, I32},
		ParamNames: []string{"fd", "flags", "path", "path_len", "atim", "mtim", "fst_flags"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			flags := wasip1.Lookupflags(uint32(params[1]))
			path, err := mem.String(uint32(params[2]), uint32(params[3]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			atim := wasip1.Timestamp(params[4])
			mtim := wasip1.Timestamp(params[5])
			fstFlags := wasip1.Fstflags(uint16(params[6]))
			return asErrno(m.ctx.PathFilestatSetTimes(fd, flags, path, atim, mtim, fstFlags))
		},
	}
}

func (m *Module) pathLink() HostFunc {
	return HostFunc{
		Name:       "path_link",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32, I32, I32},
		ParamNames: []string{"old_fd", "old_flags", "old_path", "old_path_len", "new_fd", "new_path", "new_path_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			oldFd := wasip1.Fd(uint32(params[0]))
			oldPath, err := mem.String(uint32(params[2]), uint32(params[3]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			newFd := wasip1.Fd(uint32(params[4]))
			newPath, err := mem.String(uint32(params[5]), uint32(params[6]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			return asErrno(m.ctx.PathLink(oldFd, oldPath, newFd, newPath))
		},
	}
}

func (m *Module) pathOpen() HostFunc {
	return HostFunc{
		Name:       "path_open",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32, I64, I64, I32, I32},
		ParamNames: []string{"fd", "dirflags", "path", "path_len", "oflags", "fs_rights_base", "fs_rights_inheriting", "fdflags", "result.opened_fd"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			dirFd := wasip1.Fd(uint32(params[0]))
			dirflags := wasip1.Lookupflags(uint32(params[1]))
			path, err := mem.String(uint32(params[2]), uint32(params[3]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			oflags := wasip1.Oflags(uint16(params[4]))
			rightsBase := wasip1.Rights(params[5])
			rightsInheriting := wasip1.Rights(params[6])
			fdflags := wasip1.Fdflags(uint16(params[7]))

			newFd, operr := m.ctx.PathOpen(dirFd, dirflags, path, oflags, rightsBase, rightsInheriting, fdflags)
			if operr != nil {
				return asErrno(operr)
			}
			if werr := mem.PutUint32(uint32(params[8]), uint32(newFd)); werr != nil {
				return wasip1.EFAULT
			}
			return wasip1.ESUCCESS
		},
	}
}

func (m *Module) pathReadlink() HostFunc {
	return HostFunc{
		Name:       "path_readlink",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32, I32},
		ParamNames: []string{"fd", "path", "path_len", "buf", "buf_len", "result.bufused"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			path, err := mem.String(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			target, rerr := m.ctx.PathReadlink(fd, path)
			if rerr != nil {
				return asErrno(rerr)
			}
			bufLen := uint32(params[4])
			if uint32(len(target)) > bufLen {
				target = target[:bufLen]
			}
			p := guestmem.NewTransferPlan(mem)
			p.QueueWrite(uint32(params[3]), []byte(target))
			p.QueueWrite(uint32(params[5]), le32(uint32(len(target))))
			return commitOrFault(p)
		},
	}
}

func (m *Module) pathRemoveDirectory() HostFunc {
	return HostFunc{
		Name:       "path_remove_directory",
		ParamTypes: []ValueType{I32, I32, I32},
		ParamNames: []string{"fd", "path", "path_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			path, err := mem.String(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			return asErrno(m.ctx.PathRemoveDirectory(fd, path))
		},
	}
}

func (m *Module) pathRename() HostFunc {
	return HostFunc{
		Name:       "path_rename",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32, I32},
		ParamNames: []string{"fd", "old_path", "old_path_len", "new_fd", "new_path", "new_path_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			oldFd := wasip1.Fd(uint32(params[0]))
			oldPath, err := mem.String(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			newFd := wasip1.Fd(uint32(params[3]))
			newPath, err := mem.String(uint32(params[4]), uint32(params[5]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			return asErrno(m.ctx.PathRename(oldFd, oldPath, newFd, newPath))
		},
	}
}

func (m *Module) pathSymlink() HostFunc {
	return HostFunc{
		Name:       "path_symlink",
		ParamTypes: []ValueType{I32, I32, I32, I32, I32},
		ParamNames: []string{"old_path", "old_path_len", "fd", "new_path", "new_path_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			target, err := mem.String(uint32(params[0]), uint32(params[1]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			fd := wasip1.Fd(uint32(params[2]))
			path, err := mem.String(uint32(params[3]), uint32(params[4]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			return asErrno(m.ctx.PathSymlink(target, fd, path))
		},
	}
}

func (m *Module) pathUnlinkFile() HostFunc {
	return HostFunc{
		Name:       "path_unlink_file",
		ParamTypes: []ValueType{I32, I32, I32},
		ParamNames: []string{"fd", "path", "path_len"},
		Fn: func(_ context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno {
			fd := wasip1.Fd(uint32(params[0]))
			path, err := mem.String(uint32(params[1]), uint32(params[2]))
			if err != nil {
				return wasip1.ENAMETOOLONG
			}
			return asErrno(m.ctx.PathUnlinkFile(fd, path))
		},
	}
}
