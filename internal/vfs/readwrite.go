package vfs

import (
	"os"
	"path"
	"sync"
	"time"

	"github.com/wasirun/preview1/internal/wasip1"
)

// ReadWriteDriver is the "read-write passthrough driver" of spec.md
// §4.4: standard open/read/write/seek semantics over a HostFS, with
// fd_advise/fd_allocate succeeding as advisory no-ops (zero-filling on
// extension, per the spec).
type ReadWriteDriver struct {
	UnsupportedDriver

	id    int
	host  HostFS
	umask os.FileMode

	mu      sync.Mutex
	handles map[int64]*rwHandle
	nextH   int64
}

type rwHandle struct {
	path       string
	isDir      bool
	file       HostFile
	cursor     int64
	direntries []Dirent
}

// NewReadWriteDriver wraps host as a read-write driver identified by
// id. umask is applied (via os.FileMode.Perm's complement) to the
// permission bits of files and directories this driver creates.
func NewReadWriteDriver(id int, host HostFS, umask os.FileMode) *ReadWriteDriver {
	return &ReadWriteDriver{id: id, host: host, umask: umask, handles: map[int64]*rwHandle{}}
}

func (d *ReadWriteDriver) ID() int { return d.id }

func (d *ReadWriteDriver) resolve(dirHandle int64, rel string) string {
	d.mu.Lock()
	h, ok := d.handles[dirHandle]
	d.mu.Unlock()
	base := "."
	if ok {
		base = h.path
	}
	return cleanRel(path.Join(base, rel))
}

func osFlags(oflags wasip1.Oflags, rightsBase wasip1.Rights, fdflags wasip1.Fdflags) int {
	flags := os.O_RDONLY
	switch {
	case rightsBase.Has(wasip1.FD_WRITE) && rightsBase.Has(wasip1.FD_READ):
		flags = os.O_RDWR
	case rightsBase.Has(wasip1.FD_WRITE):
		flags = os.O_WRONLY
	}
	if oflags&wasip1.OFLAGS_CREAT != 0 {
		flags |= os.O_CREATE
	}
	if oflags&wasip1.OFLAGS_EXCL != 0 {
		flags |= os.O_EXCL
	}
	if oflags&wasip1.OFLAGS_TRUNC != 0 {
		flags |= os.O_TRUNC
	}
	if fdflags&wasip1.FDFLAGS_APPEND != 0 {
		flags |= os.O_APPEND
	}
	if fdflags&wasip1.FDFLAGS_SYNC != 0 || fdflags&wasip1.FDFLAGS_DSYNC != 0 {
		flags |= os.O_SYNC
	}
	return flags
}

func (d *ReadWriteDriver) Open(dirHandle int64, relPath string, _ wasip1.Lookupflags, oflags wasip1.Oflags,
	rightsBase, rightsInheriting wasip1.Rights, fdflags wasip1.Fdflags) (int64, wasip1.Filetype, error) {
	full := d.resolve(dirHandle, relPath)

	info, statErr := d.host.Stat(full)
	exists := statErr == nil
	if exists && oflags&wasip1.OFLAGS_EXCL != 0 && oflags&wasip1.OFLAGS_CREAT != 0 {
		return 0, 0, wasip1.EEXIST
	}
	if !exists && oflags&wasip1.OFLAGS_CREAT == 0 {
		return 0, 0, wasip1.ENOENT
	}
	if exists && oflags&wasip1.OFLAGS_DIRECTORY != 0 && !info.IsDir() {
		return 0, 0, wasip1.ENOTDIR
	}

	isDir := exists && info.IsDir()
	h := &rwHandle{path: full, isDir: isDir}

	if !isDir {
		f, err := d.host.Open(full, osFlags(oflags, rightsBase, fdflags), 0o666&^d.umask)
		if err != nil {
			return 0, 0, translateOSErr(err)
		}
		h.file = f
	}

	d.mu.Lock()
	d.nextH++
	handle := d.nextH
	d.handles[handle] = h
	d.mu.Unlock()

	ft := wasip1.FILETYPE_REGULAR_FILE
	if isDir {
		ft = wasip1.FILETYPE_DIRECTORY
	}
	return handle, ft, nil
}

func translateOSErr(err error) error {
	switch {
	case os.IsNotExist(err):
		return wasip1.ENOENT
	case os.IsExist(err):
		return wasip1.EEXIST
	case os.IsPermission(err):
		return wasip1.EPERM
	default:
		return wasip1.EIO
	}
}

func (d *ReadWriteDriver) handleOf(handle int64) (*rwHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[handle]
	return h, ok
}

func (d *ReadWriteDriver) Close(handle int64) error {
	d.mu.Lock()
	h, ok := d.handles[handle]
	if ok {
		delete(d.handles, handle)
	}
	d.mu.Unlock()
	if !ok {
		return wasip1.EBADF
	}
	if h.file != nil {
		return h.file.Close()
	}
	return nil
}

func (d *ReadWriteDriver) FdstatGet(handle int64) (wasip1.Fdstat, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.Fdstat{}, wasip1.EBADF
	}
	if h.isDir {
		return wasip1.Fdstat{Filetype: wasip1.FILETYPE_DIRECTORY, RightsBase: wasip1.DirRights}, nil
	}
	return wasip1.Fdstat{Filetype: wasip1.FILETYPE_REGULAR_FILE, RightsBase: wasip1.BaseRightsRW}, nil
}

func osInfoToFilestat(info os.FileInfo) wasip1.Filestat {
	ft := wasip1.FILETYPE_REGULAR_FILE
	if info.IsDir() {
		ft = wasip1.FILETYPE_DIRECTORY
	}
	mtime := wasip1.Timestamp(info.ModTime().UnixNano())
	return wasip1.Filestat{Filetype: ft, Nlink: 1, Size: wasip1.Filesize(info.Size()), Atim: mtime, Mtim: mtime, Ctim: mtime}
}

func (d *ReadWriteDriver) FilestatGet(handle int64) (wasip1.Filestat, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.Filestat{}, wasip1.EBADF
	}
	var info os.FileInfo
	var err error
	if h.file != nil {
		info, err = h.file.Stat()
	} else {
		info, err = d.host.Stat(h.path)
	}
	if err != nil {
		return wasip1.Filestat{}, translateOSErr(err)
	}
	return osInfoToFilestat(info), nil
}

func (d *ReadWriteDriver) PathFilestatGet(dirHandle int64, _ wasip1.Lookupflags, relPath string) (wasip1.Filestat, error) {
	full := d.resolve(dirHandle, relPath)
	info, err := d.host.Stat(full)
	if err != nil {
		return wasip1.Filestat{}, translateOSErr(err)
	}
	return osInfoToFilestat(info), nil
}

func (d *ReadWriteDriver) PathFilestatSetTimes(dirHandle int64, _ wasip1.Lookupflags, relPath string, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error {
	full := d.resolve(dirHandle, relPath)
	return d.host.Chtimes(full, resolveTime(atim, flags&wasip1.FSTFLAGS_ATIM_NOW != 0), resolveTime(mtim, flags&wasip1.FSTFLAGS_MTIM_NOW != 0))
}

func resolveTime(ts wasip1.Timestamp, now bool) time.Time {
	if now {
		return time.Now()
	}
	return time.Unix(0, int64(ts))
}

func (d *ReadWriteDriver) FilestatSetTimes(handle int64, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	return d.host.Chtimes(h.path, resolveTime(atim, flags&wasip1.FSTFLAGS_ATIM_NOW != 0), resolveTime(mtim, flags&wasip1.FSTFLAGS_MTIM_NOW != 0))
}

func (d *ReadWriteDriver) FilestatSetSize(handle int64, size uint64) error {
	h, ok := d.handleOf(handle)
	if !ok || h.file == nil {
		return wasip1.EBADF
	}
	return h.file.Truncate(int64(size))
}

func (d *ReadWriteDriver) Pread(handle int64, buf []byte, offset int64) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.file == nil {
		return 0, wasip1.EBADF
	}
	n, err := h.file.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return 0, translateOSErr(err)
	}
	return n, nil
}

func (d *ReadWriteDriver) Pwrite(handle int64, buf []byte, offset int64) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.file == nil {
		return 0, wasip1.EBADF
	}
	n, err := h.file.WriteAt(buf, offset)
	if err != nil && n == 0 {
		return 0, translateOSErr(err)
	}
	return n, nil
}

func (d *ReadWriteDriver) Read(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	n, err := d.Pread(handle, buf, h.cursor)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	h.cursor += int64(n)
	d.mu.Unlock()
	return n, nil
}

func (d *ReadWriteDriver) Write(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	n, err := d.Pwrite(handle, buf, h.cursor)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	h.cursor += int64(n)
	d.mu.Unlock()
	return n, nil
}

func (d *ReadWriteDriver) Seek(handle int64, delta int64, whence wasip1.Whence) (int64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	var base int64
	switch whence {
	case wasip1.WhenceSet:
		base = 0
	case wasip1.WhenceCur:
		d.mu.Lock()
		base = h.cursor
		d.mu.Unlock()
	case wasip1.WhenceEnd:
		info, err := h.file.Stat()
		if err != nil {
			return 0, translateOSErr(err)
		}
		base = info.Size()
	default:
		return 0, wasip1.EINVAL
	}
	pos := base + delta
	if pos < 0 {
		return 0, wasip1.EINVAL
	}
	d.mu.Lock()
	h.cursor = pos
	d.mu.Unlock()
	return pos, nil
}

func (d *ReadWriteDriver) Tell(handle int64) (int64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return h.cursor, nil
}

func (d *ReadWriteDriver) Sync(handle int64) error {
	h, ok := d.handleOf(handle)
	if !ok || h.file == nil {
		return wasip1.EBADF
	}
	return h.file.Sync()
}

func (d *ReadWriteDriver) Datasync(handle int64) error { return d.Sync(handle) }

// Advise is advisory-only and always succeeds without effect.
func (d *ReadWriteDriver) Advise(int64, uint64, uint64, wasip1.Advice) error { return nil }

// Allocate zero-fills when it extends the file, per spec.md §4.4.
func (d *ReadWriteDriver) Allocate(handle int64, offset, length uint64) error {
	h, ok := d.handleOf(handle)
	if !ok || h.file == nil {
		return wasip1.EBADF
	}
	info, err := h.file.Stat()
	if err != nil {
		return translateOSErr(err)
	}
	need := int64(offset + length)
	if need <= info.Size() {
		return nil
	}
	zeros := make([]byte, need-info.Size())
	_, err = h.file.WriteAt(zeros, info.Size())
	if err != nil {
		return translateOSErr(err)
	}
	return nil
}

func (d *ReadWriteDriver) BytesAvailable(handle int64) (uint64, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.file == nil {
		return 0, wasip1.EBADF
	}
	info, err := h.file.Stat()
	if err != nil {
		return 0, translateOSErr(err)
	}
	remain := info.Size() - h.cursor
	if remain < 0 {
		remain = 0
	}
	return uint64(remain), nil
}

func (d *ReadWriteDriver) Readdir(handle int64, cookie wasip1.Dircookie) ([]Dirent, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return nil, wasip1.EBADF
	}
	if !h.isDir {
		return nil, wasip1.ENOTDIR
	}
	if h.direntries == nil {
		entries, err := d.host.ReadDir(h.path)
		if err != nil {
			return nil, translateOSErr(err)
		}
		list := make([]Dirent, 0, len(entries))
		for i, e := range entries {
			ft := wasip1.FILETYPE_REGULAR_FILE
			if e.IsDir() {
				ft = wasip1.FILETYPE_DIRECTORY
			}
			list = append(list, Dirent{Name: e.Name(), Ino: wasip1.Inode(i + 1), Filetype: ft})
		}
		d.mu.Lock()
		h.direntries = list
		d.mu.Unlock()
	}
	var out []Dirent
	for i, e := range h.direntries {
		if wasip1.Dircookie(i) >= cookie {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *ReadWriteDriver) CreateDirectory(dirHandle int64, relPath string) error {
	full := d.resolve(dirHandle, relPath)
	if err := d.host.Mkdir(full, 0o777&^d.umask); err != nil {
		return translateOSErr(err)
	}
	return nil
}

func (d *ReadWriteDriver) RemoveDirectory(dirHandle int64, relPath string) error {
	full := d.resolve(dirHandle, relPath)
	if err := d.host.Rmdir(full); err != nil {
		return translateOSErr(err)
	}
	return nil
}

func (d *ReadWriteDriver) UnlinkFile(dirHandle int64, relPath string) error {
	full := d.resolve(dirHandle, relPath)
	if err := d.host.Remove(full); err != nil {
		return translateOSErr(err)
	}
	return nil
}

func (d *ReadWriteDriver) Rename(dirHandle int64, oldPath string, newDir Driver, newDirHandle int64, newPath string) error {
	other, ok := newDir.(*ReadWriteDriver)
	if !ok || other.id != d.id {
		return wasip1.EXDEV
	}
	oldFull := d.resolve(dirHandle, oldPath)
	newFull := d.resolve(newDirHandle, newPath)
	if err := d.host.Rename(oldFull, newFull); err != nil {
		return translateOSErr(err)
	}
	return nil
}

func (d *ReadWriteDriver) Link(dirHandle int64, relPath string, newDir Driver, newDirHandle int64, newPath string) error {
	other, ok := newDir.(*ReadWriteDriver)
	if !ok || other.id != d.id {
		return wasip1.EXDEV
	}
	oldFull := d.resolve(dirHandle, relPath)
	newFull := d.resolve(newDirHandle, newPath)
	if err := d.host.Link(oldFull, newFull); err != nil {
		return translateOSErr(err)
	}
	return nil
}
