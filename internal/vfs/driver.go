// Package vfs implements the driver capability set of spec.md §4.4: a
// polymorphic surface that concrete variants (read-only snapshot,
// read-write passthrough, root/mount composer, character/stdio)
// implement only the parts of, responding with fixed errnos otherwise,
// following the embeddable-default pattern used throughout
// soitun-go-fuse's NodeXxxer/FileXxxer interfaces.
package vfs

import (
	"github.com/wasirun/preview1/internal/fdtable"
	"github.com/wasirun/preview1/internal/wasip1"
)

// Dirent is a single resolved directory entry, name plus type, handed
// back by Readdir before the dispatcher serializes it onto the wire.
type Dirent = fdtable.Dirent

// Driver is the common surface every device/filesystem backend
// implements. A concrete variant embeds UnsupportedDriver and
// overrides only the methods it actually supports; everything else
// answers UnsupportedDriver's default: EBADF for Close, FdstatGet and
// FilestatGet, ENOTDIR for Readdir, and ENOSYS for the rest.
type Driver interface {
	// ID identifies the driver for cross-device checks (path_rename,
	// path_link return EXDEV when the two directory handles resolve to
	// different driver ids).
	ID() int

	Close(handle int64) error
	FdstatGet(handle int64) (wasip1.Fdstat, error)
	FilestatGet(handle int64) (wasip1.Filestat, error)
	Read(handle int64, buf []byte) (int, error)
	Write(handle int64, buf []byte) (int, error)
	Pread(handle int64, buf []byte, offset int64) (int, error)
	Pwrite(handle int64, buf []byte, offset int64) (int, error)
	Seek(handle int64, delta int64, whence wasip1.Whence) (int64, error)
	Tell(handle int64) (int64, error)
	Readdir(handle int64, cookie wasip1.Dircookie) ([]Dirent, error)
	Sync(handle int64) error
	Datasync(handle int64) error
	FilestatSetSize(handle int64, size uint64) error
	FilestatSetTimes(handle int64, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error
	Advise(handle int64, offset, length uint64, advice wasip1.Advice) error
	Allocate(handle int64, offset, length uint64) error
	BytesAvailable(handle int64) (uint64, error)

	Open(dirHandle int64, path string, lookupFlags wasip1.Lookupflags, oflags wasip1.Oflags,
		rightsBase, rightsInheriting wasip1.Rights, fdflags wasip1.Fdflags) (handle int64, filetype wasip1.Filetype, err error)
	CreateDirectory(dirHandle int64, path string) error
	RemoveDirectory(dirHandle int64, path string) error
	UnlinkFile(dirHandle int64, path string) error
	Rename(dirHandle int64, oldPath string, newDir Driver, newDirHandle int64, newPath string) error
	Link(dirHandle int64, path string, newDir Driver, newDirHandle int64, newPath string) error
	Symlink(target string, dirHandle int64, path string) error
	Readlink(dirHandle int64, path string) (string, error)
	PathFilestatGet(dirHandle int64, lookupFlags wasip1.Lookupflags, path string) (wasip1.Filestat, error)
	PathFilestatSetTimes(dirHandle int64, lookupFlags wasip1.Lookupflags, path string, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error
}

// UnsupportedDriver answers every Driver method with the errno spec.md
// §4.4 mandates for an operation a variant does not implement. Concrete
// drivers embed this and override only what they support.
type UnsupportedDriver struct{}

func (UnsupportedDriver) Close(int64) error                        { return wasip1.EBADF }
func (UnsupportedDriver) FdstatGet(int64) (wasip1.Fdstat, error)    { return wasip1.Fdstat{}, wasip1.EBADF }
func (UnsupportedDriver) FilestatGet(int64) (wasip1.Filestat, error) {
	return wasip1.Filestat{}, wasip1.EBADF
}
func (UnsupportedDriver) Read(int64, []byte) (int, error)           { return 0, wasip1.ENOSYS }
func (UnsupportedDriver) Write(int64, []byte) (int, error)          { return 0, wasip1.ENOSYS }
func (UnsupportedDriver) Pread(int64, []byte, int64) (int, error)   { return 0, wasip1.ENOSYS }
func (UnsupportedDriver) Pwrite(int64, []byte, int64) (int, error)  { return 0, wasip1.ENOSYS }
func (UnsupportedDriver) Seek(int64, int64, wasip1.Whence) (int64, error) {
	return 0, wasip1.ENOSYS
}
func (UnsupportedDriver) Tell(int64) (int64, error) { return 0, wasip1.ENOSYS }
func (UnsupportedDriver) Readdir(int64, wasip1.Dircookie) ([]Dirent, error) {
	return nil, wasip1.ENOTDIR
}
func (UnsupportedDriver) Sync(int64) error     { return wasip1.ENOSYS }
func (UnsupportedDriver) Datasync(int64) error { return wasip1.ENOSYS }
func (UnsupportedDriver) FilestatSetSize(int64, uint64) error { return wasip1.ENOSYS }
func (UnsupportedDriver) FilestatSetTimes(int64, wasip1.Timestamp, wasip1.Timestamp, wasip1.Fstflags) error {
	return wasip1.ENOSYS
}
func (UnsupportedDriver) Advise(int64, uint64, uint64, wasip1.Advice) error { return wasip1.ENOSYS }
func (UnsupportedDriver) Allocate(int64, uint64, uint64) error             { return wasip1.ENOSYS }
func (UnsupportedDriver) BytesAvailable(int64) (uint64, error)             { return 0, wasip1.ENOSYS }

func (UnsupportedDriver) Open(int64, string, wasip1.Lookupflags, wasip1.Oflags, wasip1.Rights, wasip1.Rights, wasip1.Fdflags) (int64, wasip1.Filetype, error) {
	return 0, 0, wasip1.ENOSYS
}
func (UnsupportedDriver) CreateDirectory(int64, string) error { return wasip1.ENOSYS }
func (UnsupportedDriver) RemoveDirectory(int64, string) error { return wasip1.ENOSYS }
func (UnsupportedDriver) UnlinkFile(int64, string) error      { return wasip1.ENOSYS }
func (UnsupportedDriver) Rename(int64, string, Driver, int64, string) error {
	return wasip1.ENOSYS
}
func (UnsupportedDriver) Link(int64, string, Driver, int64, string) error {
	return wasip1.ENOSYS
}
func (UnsupportedDriver) Symlink(string, int64, string) error { return wasip1.ENOSYS }
func (UnsupportedDriver) Readlink(int64, string) (string, error) {
	return "", wasip1.ENOSYS
}
func (UnsupportedDriver) PathFilestatGet(int64, wasip1.Lookupflags, string) (wasip1.Filestat, error) {
	return wasip1.Filestat{}, wasip1.ENOSYS
}
func (UnsupportedDriver) PathFilestatSetTimes(int64, wasip1.Lookupflags, string, wasip1.Timestamp, wasip1.Timestamp, wasip1.Fstflags) error {
	return wasip1.ENOSYS
}
