package vfs

import (
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/wasirun/preview1/internal/wasip1"
)

// mount is one entry of a RootDriver's mount table: a path prefix and
// the driver (plus its own preopened root handle) that owns everything
// under that prefix.
type mount struct {
	prefix string
	driver Driver
	handle int64
}

// RootDriver is the "root/mount driver" of spec.md §4.4: it composes
// other drivers by longest-prefix match and delegates every resolved
// operation to the innermost mount. Every handle RootDriver hands out
// wraps the (driver, sub-handle) pair the delegate returned, so fd-level
// operations forward directly without re-resolving a path.
//
// The mount table is write-once at process setup and read-only
// thereafter, per spec.md §5's shared-resource policy; only the handle
// table requires synchronization.
type RootDriver struct {
	UnsupportedDriver

	id     int
	mounts []mount

	mu      sync.Mutex
	handles map[int64]*rootHandle
	nextH   int64
}

type rootHandle struct {
	driver Driver
	handle int64
	path   string
	isDir  bool
}

// NewRootDriver returns an empty mount composer identified by id.
func NewRootDriver(id int) *RootDriver {
	return &RootDriver{id: id, handles: map[int64]*rootHandle{}}
}

func (d *RootDriver) ID() int { return d.id }

// Mount registers driver under prefix, using rootHandle as the handle
// already open on driver representing prefix's own root directory.
// Call before any guest-visible fd is created; the mount table is not
// safe to mutate concurrently with lookups.
func (d *RootDriver) Mount(prefix string, driver Driver, rootHandle int64) {
	d.mounts = append(d.mounts, mount{prefix: cleanRel(prefix), driver: driver, handle: rootHandle})
	sort.Slice(d.mounts, func(i, j int) bool {
		return len(d.mounts[i].prefix) > len(d.mounts[j].prefix)
	})
}

func (d *RootDriver) resolveMount(full string) (mount, string, bool) {
	for _, m := range d.mounts {
		if m.prefix == "." || full == m.prefix || strings.HasPrefix(full, m.prefix+"/") {
			rel := strings.TrimPrefix(full, m.prefix)
			rel = strings.TrimPrefix(rel, "/")
			if rel == "" {
				rel = "."
			}
			return m, rel, true
		}
	}
	return mount{}, "", false
}

func (d *RootDriver) fullPath(dirHandle int64, rel string) string {
	base := "."
	if dirHandle != 0 {
		d.mu.Lock()
		if h, ok := d.handles[dirHandle]; ok {
			base = h.path
		}
		d.mu.Unlock()
	}
	return cleanRel(path.Join(base, rel))
}

func (d *RootDriver) handleOf(handle int64) (*rootHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[handle]
	return h, ok
}

func (d *RootDriver) wrap(driver Driver, sub int64, full string, isDir bool) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextH++
	h := d.nextH
	d.handles[h] = &rootHandle{driver: driver, handle: sub, path: full, isDir: isDir}
	return h
}

func (d *RootDriver) Open(dirHandle int64, relPath string, lookupFlags wasip1.Lookupflags, oflags wasip1.Oflags,
	rightsBase, rightsInheriting wasip1.Rights, fdflags wasip1.Fdflags) (int64, wasip1.Filetype, error) {
	full := d.fullPath(dirHandle, relPath)
	m, rel, ok := d.resolveMount(full)
	if !ok {
		return 0, 0, wasip1.ENOENT
	}
	sub, ft, err := m.driver.Open(m.handle, rel, lookupFlags, oflags, rightsBase, rightsInheriting, fdflags)
	if err != nil {
		return 0, 0, err
	}
	h := d.wrap(m.driver, sub, full, ft == wasip1.FILETYPE_DIRECTORY)
	return h, ft, nil
}

func (d *RootDriver) Close(handle int64) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	d.mu.Lock()
	delete(d.handles, handle)
	d.mu.Unlock()
	return h.driver.Close(h.handle)
}

func (d *RootDriver) FdstatGet(handle int64) (wasip1.Fdstat, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.Fdstat{}, wasip1.EBADF
	}
	return h.driver.FdstatGet(h.handle)
}

func (d *RootDriver) FilestatGet(handle int64) (wasip1.Filestat, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.Filestat{}, wasip1.EBADF
	}
	return h.driver.FilestatGet(h.handle)
}

func (d *RootDriver) Read(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return h.driver.Read(h.handle, buf)
}

func (d *RootDriver) Write(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return h.driver.Write(h.handle, buf)
}

func (d *RootDriver) Pread(handle int64, buf []byte, offset int64) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return h.driver.Pread(h.handle, buf, offset)
}

func (d *RootDriver) Pwrite(handle int64, buf []byte, offset int64) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return h.driver.Pwrite(h.handle, buf, offset)
}

func (d *RootDriver) Seek(handle int64, delta int64, whence wasip1.Whence) (int64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return h.driver.Seek(h.handle, delta, whence)
}

func (d *RootDriver) Tell(handle int64) (int64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return h.driver.Tell(h.handle)
}

func (d *RootDriver) Readdir(handle int64, cookie wasip1.Dircookie) ([]Dirent, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return nil, wasip1.EBADF
	}
	return h.driver.Readdir(h.handle, cookie)
}

func (d *RootDriver) Sync(handle int64) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	return h.driver.Sync(h.handle)
}

func (d *RootDriver) Datasync(handle int64) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	return h.driver.Datasync(h.handle)
}

func (d *RootDriver) FilestatSetSize(handle int64, size uint64) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	return h.driver.FilestatSetSize(h.handle, size)
}

func (d *RootDriver) FilestatSetTimes(handle int64, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	return h.driver.FilestatSetTimes(h.handle, atim, mtim, flags)
}

func (d *RootDriver) Advise(handle int64, offset, length uint64, advice wasip1.Advice) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	return h.driver.Advise(h.handle, offset, length, advice)
}

func (d *RootDriver) Allocate(handle int64, offset, length uint64) error {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.EBADF
	}
	return h.driver.Allocate(h.handle, offset, length)
}

func (d *RootDriver) BytesAvailable(handle int64) (uint64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return h.driver.BytesAvailable(h.handle)
}

func (d *RootDriver) CreateDirectory(dirHandle int64, relPath string) error {
	full := d.fullPath(dirHandle, relPath)
	m, rel, ok := d.resolveMount(full)
	if !ok {
		return wasip1.ENOENT
	}
	return m.driver.CreateDirectory(m.handle, rel)
}

func (d *RootDriver) RemoveDirectory(dirHandle int64, relPath string) error {
	full := d.fullPath(dirHandle, relPath)
	m, rel, ok := d.resolveMount(full)
	if !ok {
		return wasip1.ENOENT
	}
	return m.driver.RemoveDirectory(m.handle, rel)
}

func (d *RootDriver) UnlinkFile(dirHandle int64, relPath string) error {
	full := d.fullPath(dirHandle, relPath)
	m, rel, ok := d.resolveMount(full)
	if !ok {
		return wasip1.ENOENT
	}
	return m.driver.UnlinkFile(m.handle, rel)
}

func (d *RootDriver) PathFilestatGet(dirHandle int64, lookupFlags wasip1.Lookupflags, relPath string) (wasip1.Filestat, error) {
	full := d.fullPath(dirHandle, relPath)
	m, rel, ok := d.resolveMount(full)
	if !ok {
		return wasip1.Filestat{}, wasip1.ENOENT
	}
	return m.driver.PathFilestatGet(m.handle, lookupFlags, rel)
}

func (d *RootDriver) PathFilestatSetTimes(dirHandle int64, lookupFlags wasip1.Lookupflags, relPath string, atim, mtim wasip1.Timestamp, flags wasip1.Fstflags) error {
	full := d.fullPath(dirHandle, relPath)
	m, rel, ok := d.resolveMount(full)
	if !ok {
		return wasip1.ENOENT
	}
	return m.driver.PathFilestatSetTimes(m.handle, lookupFlags, rel, atim, mtim, flags)
}

// Rename resolves both paths' mounts and requires them to be the same
// underlying driver; crossing mounts reports EXDEV per spec.md §4.4.
func (d *RootDriver) Rename(dirHandle int64, oldPath string, newDirDriver Driver, newDirHandle int64, newPath string) error {
	newRoot, ok := newDirDriver.(*RootDriver)
	if !ok || newRoot != d {
		return wasip1.EXDEV
	}
	oldFull := d.fullPath(dirHandle, oldPath)
	newFull := d.fullPath(newDirHandle, newPath)
	oldMount, oldRel, ok := d.resolveMount(oldFull)
	if !ok {
		return wasip1.ENOENT
	}
	newMount, newRel, ok := d.resolveMount(newFull)
	if !ok || newMount.prefix != oldMount.prefix {
		return wasip1.EXDEV
	}
	return oldMount.driver.Rename(oldMount.handle, oldRel, newMount.driver, newMount.handle, newRel)
}

func (d *RootDriver) Link(dirHandle int64, relPath string, newDirDriver Driver, newDirHandle int64, newPath string) error {
	newRoot, ok := newDirDriver.(*RootDriver)
	if !ok || newRoot != d {
		return wasip1.EXDEV
	}
	oldFull := d.fullPath(dirHandle, relPath)
	newFull := d.fullPath(newDirHandle, newPath)
	oldMount, oldRel, ok := d.resolveMount(oldFull)
	if !ok {
		return wasip1.ENOENT
	}
	newMount, newRel, ok := d.resolveMount(newFull)
	if !ok || newMount.prefix != oldMount.prefix {
		return wasip1.EXDEV
	}
	return oldMount.driver.Link(oldMount.handle, oldRel, newMount.driver, newMount.handle, newRel)
}
