package dispatch

import (
	"github.com/wasirun/preview1/internal/fdtable"
	"github.com/wasirun/preview1/internal/wasip1"
)

// handleFiletype carries path_open's two-value result through submit's
// single-value generic signature.
type handleFiletype struct {
	handle   int64
	filetype wasip1.Filetype
}

// PathOpen implements the path_open algorithm of spec.md §4.4: resolve
// relative to dirFd, apply the create/excl/trunc/directory semantics,
// intersect rights with dirFd's inheriting mask, and insert the new
// descriptor at the lowest free fd.
func (c *Context) PathOpen(dirFd wasip1.Fd, lookupFlags wasip1.Lookupflags, path string, oflags wasip1.Oflags,
	rightsBaseReq, rightsInheritingReq wasip1.Rights, fdflags wasip1.Fdflags) (wasip1.Fd, error) {
	dirEntry, driver, err := c.lookup(dirFd)
	if err != nil {
		return 0, err
	}
	want := wasip1.PATH_OPEN
	if oflags&wasip1.OFLAGS_CREAT != 0 {
		want |= wasip1.PATH_CREATE_FILE
	}
	if oflags&wasip1.OFLAGS_TRUNC != 0 {
		want |= wasip1.PATH_FILESTAT_SET_SIZE
	}
	if err := requireRights(dirEntry, want); err != nil {
		return 0, err
	}

	opened, err := submit(c, func() (handleFiletype, error) {
		h, ft, oerr := driver.Open(dirEntry.Handle, path, lookupFlags, oflags, rightsBaseReq, rightsInheritingReq, fdflags)
		return handleFiletype{h, ft}, oerr
	})
	if err != nil {
		return 0, wasip1.ToErrno(err)
	}
	handle, filetype := opened.handle, opened.filetype

	kindMask := wasip1.DirRights
	if filetype != wasip1.FILETYPE_DIRECTORY {
		kindMask = wasip1.BaseRightsRW
	}
	newBase := dirEntry.RightsInheriting & rightsBaseReq & kindMask
	newInheriting := dirEntry.RightsInheriting & rightsInheritingReq

	entry := &fdtable.Entry{
		DriverID:         dirEntry.DriverID,
		Handle:           handle,
		Filetype:         filetype,
		Flags:            fdflags,
		RightsBase:       newBase,
		RightsInheriting: newInheriting,
	}
	return c.table.Insert(entry), nil
}

// PathCreateDirectory creates a directory relative to dirFd.
func (c *Context) PathCreateDirectory(dirFd wasip1.Fd, path string) error {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.PATH_CREATE_DIRECTORY); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.CreateDirectory(e.Handle, path) }))
}

// PathRemoveDirectory removes an empty directory relative to dirFd.
func (c *Context) PathRemoveDirectory(dirFd wasip1.Fd, path string) error {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.PATH_REMOVE_DIRECTORY); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.RemoveDirectory(e.Handle, path) }))
}

// PathUnlinkFile removes a file relative to dirFd.
func (c *Context) PathUnlinkFile(dirFd wasip1.Fd, path string) error {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.PATH_UNLINK_FILE); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.UnlinkFile(e.Handle, path) }))
}

// PathRename moves oldPath (relative to oldDirFd) to newPath (relative
// to newDirFd), returning EXDEV if the two resolve to different drivers.
func (c *Context) PathRename(oldDirFd wasip1.Fd, oldPath string, newDirFd wasip1.Fd, newPath string) error {
	oldEntry, oldDriver, err := c.lookup(oldDirFd)
	if err != nil {
		return err
	}
	newEntry, newDriver, err := c.lookup(newDirFd)
	if err != nil {
		return err
	}
	if err := requireRights(oldEntry, wasip1.PATH_RENAME_SOURCE); err != nil {
		return err
	}
	if err := requireRights(newEntry, wasip1.PATH_RENAME_TARGET); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error {
		return oldDriver.Rename(oldEntry.Handle, oldPath, newDriver, newEntry.Handle, newPath)
	}))
}

// PathLink creates a hard link from oldPath (relative to oldDirFd) to
// newPath (relative to newDirFd).
func (c *Context) PathLink(oldDirFd wasip1.Fd, oldPath string, newDirFd wasip1.Fd, newPath string) error {
	oldEntry, oldDriver, err := c.lookup(oldDirFd)
	if err != nil {
		return err
	}
	newEntry, newDriver, err := c.lookup(newDirFd)
	if err != nil {
		return err
	}
	if err := requireRights(oldEntry, wasip1.PATH_LINK_SOURCE); err != nil {
		return err
	}
	if err := requireRights(newEntry, wasip1.PATH_LINK_TARGET); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error {
		return oldDriver.Link(oldEntry.Handle, oldPath, newDriver, newEntry.Handle, newPath)
	}))
}

// PathSymlink always fails with ENOSYS: this host carries no persistent
// symlink support (DESIGN.md's Open Question decision).
func (c *Context) PathSymlink(target string, dirFd wasip1.Fd, path string) error {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.PATH_SYMLINK); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return d.Symlink(target, e.Handle, path) }))
}

// PathReadlink always fails with ENOSYS, for the same reason.
func (c *Context) PathReadlink(dirFd wasip1.Fd, path string) (string, error) {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return "", err
	}
	if err := requireRights(e, wasip1.PATH_READLINK); err != nil {
		return "", err
	}
	target, err := submit(c, func() (string, error) { return d.Readlink(e.Handle, path) })
	if err != nil {
		return "", wasip1.ToErrno(err)
	}
	return target, nil
}

// PathFilestatGet stats path relative to dirFd.
func (c *Context) PathFilestatGet(dirFd wasip1.Fd, lookupFlags wasip1.Lookupflags, path string) (wasip1.Filestat, error) {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return wasip1.Filestat{}, err
	}
	if err := requireRights(e, wasip1.PATH_FILESTAT_GET); err != nil {
		return wasip1.Filestat{}, err
	}
	st, err := submit(c, func() (wasip1.Filestat, error) { return d.PathFilestatGet(e.Handle, lookupFlags, path) })
	if err != nil {
		return wasip1.Filestat{}, wasip1.ToErrno(err)
	}
	return st, nil
}

// PathFilestatSetTimes sets path's atim/mtim relative to dirFd.
func (c *Context) PathFilestatSetTimes(dirFd wasip1.Fd, lookupFlags wasip1.Lookupflags, path string, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error {
	e, d, err := c.lookup(dirFd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.PATH_FILESTAT_SET_TIMES); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error {
		return d.PathFilestatSetTimes(e.Handle, lookupFlags, path, atim, mtim, flags)
	}))
}
