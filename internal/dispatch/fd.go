package dispatch

import (
	"github.com/wasirun/preview1/internal/vfs"
	"github.com/wasirun/preview1/internal/wasip1"
)

// FdClose closes fd and removes it from the table.
func (c *Context) FdClose(fd wasip1.Fd) error {
	e, d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	if err := submitErr(c, func() error { return d.Close(e.Handle) }); err != nil {
		return wasip1.ToErrno(err)
	}
	c.table.Delete(fd)
	return nil
}

// FdFdstatGet returns fd's fdstat, rights as recorded in the fd table
// (not re-derived from the driver, since rights are a table-level
// concept layered over whatever the driver natively supports).
func (c *Context) FdFdstatGet(fd wasip1.Fd) (wasip1.Fdstat, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return wasip1.Fdstat{}, err
	}
	stat, err := submit(c, func() (wasip1.Fdstat, error) { return d.FdstatGet(e.Handle) })
	if err != nil {
		return wasip1.Fdstat{}, wasip1.ToErrno(err)
	}
	stat.Flags = e.Flags
	stat.RightsBase = e.RightsBase
	stat.RightsInheriting = e.RightsInheriting
	return stat, nil
}

// FdFdstatSetFlags updates fd's fdflags in the table; the underlying
// driver is not re-opened, matching the teacher's own shallow handling
// of this rarely-exercised call.
func (c *Context) FdFdstatSetFlags(fd wasip1.Fd, flags wasip1.Fdflags) error {
	e := c.table.Lookup(fd)
	if e == nil {
		return wasip1.EBADF
	}
	if err := requireRights(e, wasip1.FD_FDSTAT_SET_FLAGS); err != nil {
		return err
	}
	e.Flags = flags
	return nil
}

// FdFilestatGet returns fd's filestat.
func (c *Context) FdFilestatGet(fd wasip1.Fd) (wasip1.Filestat, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return wasip1.Filestat{}, err
	}
	if err := requireRights(e, wasip1.FD_FILESTAT_GET); err != nil {
		return wasip1.Filestat{}, err
	}
	st, err := submit(c, func() (wasip1.Filestat, error) { return d.FilestatGet(e.Handle) })
	if err != nil {
		return wasip1.Filestat{}, wasip1.ToErrno(err)
	}
	return st, nil
}

// FdFilestatSetSize truncates/extends fd to size.
func (c *Context) FdFilestatSetSize(fd wasip1.Fd, size uint64) error {
	e, d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.FD_FILESTAT_SET_SIZE); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.FilestatSetSize(e.Handle, size) }))
}

// FdFilestatSetTimes sets fd's atim/mtim per flags.
func (c *Context) FdFilestatSetTimes(fd wasip1.Fd, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error {
	e, d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.FD_FILESTAT_SET_TIMES); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.FilestatSetTimes(e.Handle, atim, mtim, flags) }))
}

// FdRead reads into buf from fd's current cursor.
func (c *Context) FdRead(fd wasip1.Fd, buf []byte) (int, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.FD_READ); err != nil {
		return 0, err
	}
	n, err := submit(c, func() (int, error) { return d.Read(e.Handle, buf) })
	if err != nil && n == 0 {
		return 0, wasip1.ToErrno(err)
	}
	return n, nil
}

// FdPread reads into buf at offset, without moving fd's cursor.
func (c *Context) FdPread(fd wasip1.Fd, buf []byte, offset int64) (int, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.FD_READ|wasip1.FD_SEEK); err != nil {
		return 0, err
	}
	n, err := submit(c, func() (int, error) { return d.Pread(e.Handle, buf, offset) })
	if err != nil && n == 0 {
		return 0, wasip1.ToErrno(err)
	}
	return n, nil
}

// FdWrite writes buf at fd's current cursor. A partial write (n > 0)
// is reported as success per spec.md §4.4; only a zero-byte write that
// hit an error returns an errno.
func (c *Context) FdWrite(fd wasip1.Fd, buf []byte) (int, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.FD_WRITE); err != nil {
		return 0, err
	}
	n, err := submit(c, func() (int, error) { return d.Write(e.Handle, buf) })
	if err != nil && n == 0 {
		return 0, wasip1.ToErrno(err)
	}
	return n, nil
}

// FdPwrite writes buf at offset, without moving fd's cursor.
func (c *Context) FdPwrite(fd wasip1.Fd, buf []byte, offset int64) (int, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.FD_WRITE|wasip1.FD_SEEK); err != nil {
		return 0, err
	}
	n, err := submit(c, func() (int, error) { return d.Pwrite(e.Handle, buf, offset) })
	if err != nil && n == 0 {
		return 0, wasip1.ToErrno(err)
	}
	return n, nil
}

// FdSeek repositions fd's cursor. fd_seek(fd, 0, cur) is a read-only
// query of the current cursor (Testable Property 6); it still requires
// FD_TELL rather than FD_SEEK, matching the teacher's own rights split.
func (c *Context) FdSeek(fd wasip1.Fd, delta int64, whence wasip1.Whence) (int64, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}
	want := wasip1.FD_SEEK
	if delta == 0 && whence == wasip1.WhenceCur {
		want = wasip1.FD_TELL
	}
	if err := requireRights(e, want); err != nil {
		return 0, err
	}
	pos, err := submit(c, func() (int64, error) { return d.Seek(e.Handle, delta, whence) })
	if err != nil {
		return 0, wasip1.ToErrno(err)
	}
	return pos, nil
}

// FdTell returns fd's current cursor without moving it.
func (c *Context) FdTell(fd wasip1.Fd) (int64, error) {
	e, d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.FD_TELL); err != nil {
		return 0, err
	}
	pos, err := submit(c, func() (int64, error) { return d.Tell(e.Handle) })
	if err != nil {
		return 0, wasip1.ToErrno(err)
	}
	return pos, nil
}

// FdSync/FdDatasync flush fd to its backing storage.
func (c *Context) FdSync(fd wasip1.Fd) error {
	e, d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.FD_SYNC); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.Sync(e.Handle) }))
}

func (c *Context) FdDatasync(fd wasip1.Fd) error {
	e, d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.FD_DATASYNC); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.Datasync(e.Handle) }))
}

// FdAdvise is advisory; the read-only and read-write drivers implement
// it as a no-op success, and drivers without an Advise override answer
// ENOSYS.
func (c *Context) FdAdvise(fd wasip1.Fd, offset, length uint64, advice wasip1.Advice) error {
	e, d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.FD_ADVISE); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.Advise(e.Handle, offset, length, advice) }))
}

// FdAllocate ensures fd is at least offset+length bytes, zero-filling
// any extension.
func (c *Context) FdAllocate(fd wasip1.Fd, offset, length uint64) error {
	e, d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.FD_ALLOCATE); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.Allocate(e.Handle, offset, length) }))
}

// FdRenumber atomically moves the descriptor at from onto to, closing
// whatever to previously referenced.
func (c *Context) FdRenumber(from, to wasip1.Fd) error {
	e := c.table.Delete(from)
	if e == nil {
		return wasip1.EBADF
	}
	if old := c.table.Lookup(to); old != nil {
		if d, derr := c.driverFor(old); derr == nil {
			_ = submitErr(c, func() error { return d.Close(old.Handle) })
		}
	}
	c.table.InsertAt(to, e)
	return nil
}

// FdPrestatGet returns the prestat for a preopened directory fd.
func (c *Context) FdPrestatGet(fd wasip1.Fd) (wasip1.Prestat, error) {
	p, ok := c.preopens[fd]
	if !ok {
		return wasip1.Prestat{}, wasip1.EBADF
	}
	return wasip1.Prestat{Tag: 0, Len: uint32(len(p.Path))}, nil
}

// FdPrestatDirName returns the preopen path for fd.
func (c *Context) FdPrestatDirName(fd wasip1.Fd) (string, error) {
	p, ok := c.preopens[fd]
	if !ok {
		return "", wasip1.EBADF
	}
	return p.Path, nil
}

// FdReaddir enumerates dirFd's entries with d_next > cookie into the
// 24-byte-header + UTF-8-name wire format, filling at most buflen
// bytes and allowing the final entry to be truncated (the caller grows
// its buffer and retries), per spec.md §4.4's directory-streaming
// algorithm. It returns the serialized bytes; the count actually used
// is the length of the returned slice.
func (c *Context) FdReaddir(dirFd wasip1.Fd, buflen uint32, cookie wasip1.Dircookie) ([]byte, error) {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return nil, err
	}
	if err := requireRights(e, wasip1.FD_READDIR); err != nil {
		return nil, err
	}
	entries, err := submit(c, func() ([]vfs.Dirent, error) { return d.Readdir(e.Handle, cookie) })
	if err != nil {
		return nil, wasip1.ToErrno(err)
	}

	out := make([]byte, 0, buflen)
	next := cookie
	for _, ent := range entries {
		next++
		nameBytes := []byte(ent.Name)
		hdr := wasip1.Dirent{Next: next, Ino: ent.Ino, Namelen: uint32(len(nameBytes)), Type: ent.Filetype}
		need := wasip1.DirentSize + len(nameBytes)
		if len(out)+need > int(buflen) {
			remaining := int(buflen) - len(out)
			if remaining <= 0 {
				break
			}
			full := make([]byte, need)
			hdr.Marshal(full[:wasip1.DirentSize])
			copy(full[wasip1.DirentSize:], nameBytes)
			if remaining > len(full) {
				remaining = len(full)
			}
			out = append(out, full[:remaining]...)
			break
		}
		full := make([]byte, need)
		hdr.Marshal(full[:wasip1.DirentSize])
		copy(full[wasip1.DirentSize:], nameBytes)
		out = append(out, full...)
	}
	return out, nil
}
