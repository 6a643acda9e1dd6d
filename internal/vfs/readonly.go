package vfs

import (
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/wasirun/preview1/internal/wasip1"
)

// cacheEntry is the lazily-fetched, refcounted content of one regular
// file read from a ReadOnlyDriver's source fs.FS.
type cacheEntry struct {
	data     []byte
	refcount int
}

// ReadOnlyDriver serves a bundled, read-only asset tree (spec.md §4.4's
// "read-only snapshot driver"). File content is fetched lazily on
// first read from source and cached until the last referencing fd
// closes, matching Testable Property 4.
type ReadOnlyDriver struct {
	UnsupportedDriver

	id     int
	source fs.FS

	mu      sync.Mutex
	arena   *nodeArena
	cache   map[nodeIndex]*cacheEntry
	byPath  map[string]nodeIndex
	handles map[int64]*roHandle
	nextH   int64
}

type roHandle struct {
	node   nodeIndex
	path   string
	isDir  bool
	cursor int64
	// direntries is the snapshot of a directory's children as of the
	// first Readdir call on this handle, so cookie-resumed calls stay
	// stable even if the underlying source is being walked lazily.
	direntries []Dirent
}

// NewReadOnlyDriver wraps source as a read-only driver identified by id.
func NewReadOnlyDriver(id int, source fs.FS) *ReadOnlyDriver {
	return &ReadOnlyDriver{
		id:      id,
		source:  source,
		arena:   newNodeArena(),
		cache:   map[nodeIndex]*cacheEntry{},
		handles: map[int64]*roHandle{},
		byPath:  map[string]nodeIndex{".": rootIndex},
	}
}

func (d *ReadOnlyDriver) ID() int { return d.id }

// cleanRel cleans p as if rooted, so a ".." above the root resolves to
// the root, and returns it relative ("." for the root itself).
func cleanRel(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}

func (d *ReadOnlyDriver) resolve(dirHandle int64, rel string) (string, error) {
	d.mu.Lock()
	h, ok := d.handles[dirHandle]
	d.mu.Unlock()
	base := "."
	if ok {
		base = h.path
	}
	full := path.Join(base, rel)
	return cleanRel(full), nil
}

// nodeFor returns (allocating if necessary) the arena node for full,
// bumping its refcount by one to account for the new handle about to
// reference it.
func (d *ReadOnlyDriver) nodeFor(full string, isDir bool) nodeIndex {
	if i, ok := d.byPath[full]; ok {
		d.arena.get(i).refcount++
		return i
	}
	parent := rootIndex
	if dir := path.Dir(full); dir != "." && dir != full {
		parent = d.nodeFor(dir, true)
		d.arena.release(parent) // nodeFor above bumped it; we only needed it transiently
	}
	i := d.arena.insertChild(parent, path.Base(full), isDir)
	d.byPath[full] = i
	return i
}

func (d *ReadOnlyDriver) Open(dirHandle int64, relPath string, _ wasip1.Lookupflags, oflags wasip1.Oflags,
	rightsBase, rightsInheriting wasip1.Rights, _ wasip1.Fdflags) (int64, wasip1.Filetype, error) {
	if oflags&(wasip1.OFLAGS_CREAT|wasip1.OFLAGS_TRUNC) != 0 {
		return 0, 0, wasip1.ErrReadOnly
	}
	full, err := d.resolve(dirHandle, relPath)
	if err != nil {
		return 0, 0, err
	}
	info, err := fs.Stat(d.source, full)
	if err != nil {
		return 0, 0, wasip1.ENOENT
	}
	if oflags&wasip1.OFLAGS_DIRECTORY != 0 && !info.IsDir() {
		return 0, 0, wasip1.ENOTDIR
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	node := d.nodeFor(full, info.IsDir())
	h := &roHandle{node: node, path: full, isDir: info.IsDir()}
	d.nextH++
	handle := d.nextH
	d.handles[handle] = h

	ft := wasip1.FILETYPE_REGULAR_FILE
	if info.IsDir() {
		ft = wasip1.FILETYPE_DIRECTORY
	}
	return handle, ft, nil
}

func (d *ReadOnlyDriver) handleOf(handle int64) (*roHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[handle]
	return h, ok
}

// contentOf returns the cached bytes for a regular file's node,
// fetching from source on first access (Testable Property 4).
func (d *ReadOnlyDriver) contentOf(h *roHandle) ([]byte, error) {
	d.mu.Lock()
	if entry, ok := d.cache[h.node]; ok {
		data := entry.data
		d.mu.Unlock()
		return data, nil
	}
	d.mu.Unlock()

	b, err := fs.ReadFile(d.source, h.path)
	if err != nil {
		return nil, wasip1.ENOENT
	}

	d.mu.Lock()
	d.cache[h.node] = &cacheEntry{data: b}
	d.mu.Unlock()
	return b, nil
}

func (d *ReadOnlyDriver) Close(handle int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[handle]
	if !ok {
		return wasip1.EBADF
	}
	delete(d.handles, handle)
	d.arena.release(h.node)
	if d.arena.get(h.node).refcount <= 0 {
		delete(d.cache, h.node)
	}
	return nil
}

func (d *ReadOnlyDriver) FdstatGet(handle int64) (wasip1.Fdstat, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.Fdstat{}, wasip1.EBADF
	}
	ft := wasip1.FILETYPE_REGULAR_FILE
	rights := wasip1.BaseRightsR
	if h.isDir {
		ft = wasip1.FILETYPE_DIRECTORY
		rights = wasip1.DirRights
	}
	return wasip1.Fdstat{Filetype: ft, RightsBase: rights}, nil
}

func (d *ReadOnlyDriver) statInfo(full string) (fs.FileInfo, error) {
	info, err := fs.Stat(d.source, full)
	if err != nil {
		return nil, wasip1.ENOENT
	}
	return info, nil
}

func toFilestat(info fs.FileInfo) wasip1.Filestat {
	ft := wasip1.FILETYPE_REGULAR_FILE
	if info.IsDir() {
		ft = wasip1.FILETYPE_DIRECTORY
	}
	mtime := wasip1.Timestamp(info.ModTime().UnixNano())
	return wasip1.Filestat{
		Filetype: ft,
		Nlink:    1,
		Size:     wasip1.Filesize(info.Size()),
		Atim:     mtime,
		Mtim:     mtime,
		Ctim:     mtime,
	}
}

func (d *ReadOnlyDriver) FilestatGet(handle int64) (wasip1.Filestat, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.Filestat{}, wasip1.EBADF
	}
	info, err := d.statInfo(h.path)
	if err != nil {
		return wasip1.Filestat{}, err
	}
	return toFilestat(info), nil
}

func (d *ReadOnlyDriver) PathFilestatGet(dirHandle int64, _ wasip1.Lookupflags, relPath string) (wasip1.Filestat, error) {
	full, err := d.resolve(dirHandle, relPath)
	if err != nil {
		return wasip1.Filestat{}, err
	}
	info, err := d.statInfo(full)
	if err != nil {
		return wasip1.Filestat{}, err
	}
	return toFilestat(info), nil
}

func (d *ReadOnlyDriver) Pread(handle int64, buf []byte, offset int64) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	if h.isDir {
		return 0, wasip1.EISDIR
	}
	data, err := d.contentOf(h)
	if err != nil {
		return 0, err
	}
	if offset >= int64(len(data)) {
		return 0, nil
	}
	n := copy(buf, data[offset:])
	return n, nil
}

func (d *ReadOnlyDriver) Read(handle int64, buf []byte) (int, error) {
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

func (d *ReadOnlyDriver) Write(int64, []byte) (int, error)  { return 0, wasip1.ErrReadOnly }
func (d *ReadOnlyDriver) Pwrite(int64, []byte, int64) (int, error) {
	return 0, wasip1.ErrReadOnly
}
func (d *ReadOnlyDriver) FilestatSetSize(int64, uint64) error { return wasip1.ErrReadOnly }
func (d *ReadOnlyDriver) FilestatSetTimes(int64, wasip1.Timestamp, wasip1.Timestamp, wasip1.Fstflags) error {
	return wasip1.ErrReadOnly
}
func (d *ReadOnlyDriver) CreateDirectory(int64, string) error { return wasip1.ErrReadOnly }
func (d *ReadOnlyDriver) RemoveDirectory(int64, string) error { return wasip1.ErrReadOnly }
func (d *ReadOnlyDriver) UnlinkFile(int64, string) error      { return wasip1.ErrReadOnly }
func (d *ReadOnlyDriver) Rename(int64, string, Driver, int64, string) error {
	return wasip1.ErrReadOnly
}
func (d *ReadOnlyDriver) Allocate(int64, uint64, uint64) error { return wasip1.ErrReadOnly }

// Advise is always a no-op success: spec.md §4.4 requires advisory
// calls to succeed without effect.
func (d *ReadOnlyDriver) Advise(int64, uint64, uint64, wasip1.Advice) error { return nil }

func (d *ReadOnlyDriver) Seek(handle int64, delta int64, whence wasip1.Whence) (int64, error) {
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
		info, err := d.statInfo(h.path)
		if err != nil {
			return 0, err
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

func (d *ReadOnlyDriver) Tell(handle int64) (int64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return h.cursor, nil
}

func (d *ReadOnlyDriver) Readdir(handle int64, cookie wasip1.Dircookie) ([]Dirent, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return nil, wasip1.EBADF
	}
	if !h.isDir {
		return nil, wasip1.ENOTDIR
	}
	if h.direntries == nil {
		entries, err := fs.ReadDir(d.source, h.path)
		if err != nil {
			return nil, wasip1.ENOENT
		}
		names := make([]Dirent, 0, len(entries))
		for i, e := range entries {
			ft := wasip1.FILETYPE_REGULAR_FILE
			if e.IsDir() {
				ft = wasip1.FILETYPE_DIRECTORY
			}
			names = append(names, Dirent{Name: e.Name(), Ino: wasip1.Inode(i + 1), Filetype: ft})
		}
		d.mu.Lock()
		h.direntries = names
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

func (d *ReadOnlyDriver) Sync(int64) error     { return nil }
func (d *ReadOnlyDriver) Datasync(int64) error { return nil }

func (d *ReadOnlyDriver) BytesAvailable(handle int64) (uint64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	info, err := d.statInfo(h.path)
	if err != nil {
		return 0, err
	}
	remain := info.Size() - h.cursor
	if remain < 0 {
		remain = 0
	}
	return uint64(remain), nil
}

func (d *ReadOnlyDriver) Readlink(int64, string) (string, error) {
	return "", wasip1.ENOSYS
}
