// Package fdtable implements the process-wide file-descriptor table:
// a dense bitmap allocator mapping guest-visible fd numbers to host-side
// descriptor entries, guarded by a mutex for the shared concurrency
// model described in spec.md §5.
package fdtable

import (
	"math/bits"
	"sync"

	"github.com/wasirun/preview1/internal/wasip1"
)

// Entry is everything the dispatcher needs to service a syscall against
// an open descriptor: which driver owns it, the driver-local handle,
// and the rights/flags/type carried by fdstat.
type Entry struct {
	DriverID         int
	Handle           int64
	Filetype         wasip1.Filetype
	Flags            wasip1.Fdflags
	RightsBase       wasip1.Rights
	RightsInheriting wasip1.Rights
	PreopenPath      string

	// Readdir cursor fields. dispatch's FdReaddir resumes from the
	// cookie the guest passes and neither reads nor updates these.
	Dircookie  wasip1.Dircookie
	Direntries []Dirent
}

// Dirent is a host-resolved directory entry awaiting serialization; the
// name is kept as a string here and only UTF-8-encoded at the transfer
// boundary.
type Dirent struct {
	Name     string
	Ino      wasip1.Inode
	Filetype wasip1.Filetype
}

// Table is a data structure mapping guest fd numbers to Entry values.
//
// Key generation is managed by the table, using a strategy similar to
// fd allocation on unix systems: the lowest key not currently mapped is
// used when inserting a new entry. The data structure optimizes for
// memory density and lookup performance, trading off compute at
// insertion time: operations on an already-open fd vastly outnumber
// opens, so paying more at insert time to get dense, cache-friendly
// lookups is the right trade.
type Table struct {
	mu    sync.Mutex
	masks []uint64
	files []*Entry
}

// Len returns the number of descriptors currently open in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.len()
}

func (t *Table) len() (n int) {
	for _, mask := range t.masks {
		n += bits.OnesCount64(mask)
	}
	return n
}

func (t *Table) grow(n int) {
	if n = (n*8 + 7) / 8; n > len(t.masks) {
		masks := make([]uint64, n)
		copy(masks, t.masks)

		files := make([]*Entry, n*64)
		copy(files, t.files)

		t.masks = masks
		t.files = files
	}
}

// Insert inserts e into the table, returning the fd it is mapped to.
// The method performs no deduplication: the same entry pointer could in
// principle be inserted twice, each insertion returning a different fd.
func (t *Table) Insert(e *Entry) wasip1.Fd {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insert(e)
}

func (t *Table) insert(e *Entry) (fd wasip1.Fd) {
	offset := 0
insert:
	for index, mask := range t.masks[offset:] {
		if ^mask != 0 { // not full
			shift := bits.TrailingZeros64(^mask)
			index += offset
			fd = wasip1.Fd(index)*64 + wasip1.Fd(shift)
			t.files[fd] = e
			t.masks[index] = mask | uint64(1<<shift)
			return fd
		}
	}

	offset = len(t.masks)
	n := 2 * len(t.masks)
	if n == 0 {
		n = 1
	}

	t.grow(n)
	goto insert
}

// InsertAt inserts e at exactly fd, growing the table as needed and
// evicting whatever was previously mapped there (used by fd_renumber).
// It reports whether fd was already mapped to something.
func (t *Table) InsertAt(fd wasip1.Fd, e *Entry) (existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	index, shift := fd/64, fd%64
	t.grow(int(index) + 1)
	mask := t.masks[index]
	existed = mask&(1<<shift) != 0
	t.files[fd] = e
	t.masks[index] = mask | uint64(1<<shift)
	return existed
}

// Lookup returns the entry mapped to fd, or nil if fd is not open.
func (t *Table) Lookup(fd wasip1.Fd) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookup(fd)
}

func (t *Table) lookup(fd wasip1.Fd) *Entry {
	if i := int(fd); i >= 0 && i < len(t.files) {
		return t.files[i]
	}
	return nil
}

// Delete removes fd from the table, returning the entry that was there.
func (t *Table) Delete(fd wasip1.Fd) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delete(fd)
}

func (t *Table) delete(fd wasip1.Fd) (e *Entry) {
	if index, shift := fd/64, fd%64; int(index) < len(t.masks) {
		mask := t.masks[index]
		if mask&(1<<shift) != 0 {
			e = t.files[fd]
			t.files[fd] = nil
			t.masks[index] = mask &^ (1 << shift)
		}
	}
	return e
}

// Scan calls f for every open (fd, entry) pair. f may return false to
// stop the iteration early.
func (t *Table) Scan(f func(wasip1.Fd, *Entry) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, mask := range t.masks {
		if mask == 0 {
			continue
		}
		for j := wasip1.Fd(0); j < 64; j++ {
			if mask&(1<<j) != 0 {
				fd := wasip1.Fd(i)*64 + j
				if !f(fd, t.files[fd]) {
					return
				}
			}
		}
	}
}

// Reset clears every entry from the table without releasing backing
// storage, used when tearing a process handle down.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.masks {
		t.masks[i] = 0
	}
	for i := range t.files {
		t.files[i] = nil
	}
}
