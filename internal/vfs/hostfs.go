package vfs

import (
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// HostFS is the embedding-supplied host filesystem abstraction a
// ReadWriteDriver is built over (spec.md §6's "host filesystem
// abstraction with URI joining and readFile/writeFile/stat/
// readDirectory/createDirectory/delete/rename"). osHostFS is the
// default, backing it directly with package os.
type HostFS interface {
	Open(path string, flags int, perm os.FileMode) (HostFile, error)
	Mkdir(path string, perm os.FileMode) error
	Remove(path string) error
	Rmdir(path string) error
	Rename(oldPath, newPath string) error
	Link(oldPath, newPath string) error
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	Chtimes(path string, atim, mtim time.Time) error
}

// HostFile is the open-file handle returned by HostFS.Open.
type HostFile interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Sync() error
}

// osHostFS implements HostFS directly on package os, rooted at a
// directory supplied at construction so guest paths can never escape
// the pre-opened tree.
type osHostFS struct {
	root string
}

// NewOSHostFS returns a HostFS rooted at root.
func NewOSHostFS(root string) HostFS { return &osHostFS{root: root} }

func (h *osHostFS) join(p string) string {
	if p == "" || p == "." {
		return h.root
	}
	return h.root + string(os.PathSeparator) + p
}

func (h *osHostFS) Open(path string, flags int, perm os.FileMode) (HostFile, error) {
	return os.OpenFile(h.join(path), flags, perm)
}

func (h *osHostFS) Mkdir(path string, perm os.FileMode) error { return os.Mkdir(h.join(path), perm) }
func (h *osHostFS) Remove(path string) error                  { return os.Remove(h.join(path)) }
func (h *osHostFS) Rmdir(path string) error                   { return os.Remove(h.join(path)) }
func (h *osHostFS) Rename(oldPath, newPath string) error {
	return os.Rename(h.join(oldPath), h.join(newPath))
}
func (h *osHostFS) Link(oldPath, newPath string) error {
	return os.Link(h.join(oldPath), h.join(newPath))
}
func (h *osHostFS) Stat(path string) (os.FileInfo, error) { return os.Stat(h.join(path)) }
func (h *osHostFS) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(h.join(path))
}
// Chtimes sets both timestamps with nanosecond precision via
// unix.UtimesNanoAt rather than os.Chtimes (which loses sub-microsecond
// precision on some platforms going through time.Time's Unix() split),
// matching fd_filestat_set_times/path_filestat_set_times's nanosecond
// wire granularity (spec.md §4.4).
func (h *osHostFS) Chtimes(path string, atim, mtim time.Time) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(atim.UnixNano()),
		unix.NsecToTimespec(mtim.UnixNano()),
	}
	return unix.UtimesNanoAt(unix.AT_FDCWD, h.join(path), ts, 0)
}
