package vfs

import (
	"sync"

	"github.com/wasirun/preview1/internal/iostream"
	"github.com/wasirun/preview1/internal/wasip1"
)

// StdioDriver is the "character/stdio driver" of spec.md §4.4: it backs
// a fixed set of fds with streams and answers EBADF to every path
// operation. One instance is normally shared across stdin/stdout/stderr,
// each occupying its own handle.
type StdioDriver struct {
	UnsupportedDriver

	id int

	mu      sync.Mutex
	handles map[int64]*stdioHandle
	nextH   int64
}

type stdioHandle struct {
	stream *iostream.Stream
	write  bool
}

// NewStdioDriver returns an empty stdio driver identified by id.
func NewStdioDriver(id int) *StdioDriver {
	return &StdioDriver{id: id, handles: map[int64]*stdioHandle{}}
}

func (d *StdioDriver) ID() int { return d.id }

// AddStream registers stream as a new stdio handle and returns the
// handle value to wire into the fd table (write selects whether the
// handle is the writable or readable side of stream).
func (d *StdioDriver) AddStream(stream *iostream.Stream, write bool) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextH++
	h := d.nextH
	d.handles[h] = &stdioHandle{stream: stream, write: write}
	return h
}

func (d *StdioDriver) handleOf(handle int64) (*stdioHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[handle]
	return h, ok
}

func (d *StdioDriver) Close(handle int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handles, handle)
	return nil
}

func (d *StdioDriver) FdstatGet(handle int64) (wasip1.Fdstat, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return wasip1.Fdstat{}, wasip1.EBADF
	}
	rights := wasip1.BaseRightsR
	if h.write {
		rights = wasip1.BaseRightsW
	}
	return wasip1.Fdstat{Filetype: wasip1.FILETYPE_CHARACTER_DEVICE, RightsBase: rights}, nil
}

func (d *StdioDriver) FilestatGet(handle int64) (wasip1.Filestat, error) {
	if _, ok := d.handleOf(handle); !ok {
		return wasip1.Filestat{}, wasip1.EBADF
	}
	return wasip1.Filestat{Filetype: wasip1.FILETYPE_CHARACTER_DEVICE, Nlink: 1}, nil
}

func (d *StdioDriver) Read(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.write {
		return 0, wasip1.EBADF
	}
	data, err := h.stream.ReadMax(len(buf))
	if err != nil {
		return 0, wasip1.ToErrno(err)
	}
	return copy(buf, data), nil
}

func (d *StdioDriver) Write(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok || !h.write {
		return 0, wasip1.EBADF
	}
	if err := h.stream.Write(buf); err != nil {
		return 0, wasip1.ToErrno(err)
	}
	return len(buf), nil
}

func (d *StdioDriver) BytesAvailable(handle int64) (uint64, error) {
	h, ok := d.handleOf(handle)
	if !ok {
		return 0, wasip1.EBADF
	}
	return uint64(h.stream.FillLevel()), nil
}

func (d *StdioDriver) Sync(int64) error     { return nil }
func (d *StdioDriver) Datasync(int64) error { return nil }

// ReadPollable and WritePollable let poll_oneoff subscribe directly to
// a stdio handle's backing stream readiness, satisfying the optional
// vfs.Pollable capability interface.
func (d *StdioDriver) ReadPollable(handle int64) (*iostream.Stream, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.write {
		return nil, wasip1.EBADF
	}
	return h.stream, nil
}

func (d *StdioDriver) WritePollable(handle int64) (*iostream.Stream, error) {
	h, ok := d.handleOf(handle)
	if !ok || !h.write {
		return nil, wasip1.EBADF
	}
	return h.stream, nil
}

// Advise/Allocate/Seek/Tell are all unsupported on a character device;
// UnsupportedDriver's ENOSYS defaults already cover them.

// Every path_* operation on a character device returns EBADF per
// spec.md §4.4; override the handful UnsupportedDriver would otherwise
// answer with ENOSYS so the errno matches the spec exactly.
func (d *StdioDriver) Open(int64, string, wasip1.Lookupflags, wasip1.Oflags, wasip1.Rights, wasip1.Rights, wasip1.Fdflags) (int64, wasip1.Filetype, error) {
	return 0, 0, wasip1.EBADF
}
func (d *StdioDriver) CreateDirectory(int64, string) error { return wasip1.EBADF }
func (d *StdioDriver) RemoveDirectory(int64, string) error { return wasip1.EBADF }
func (d *StdioDriver) UnlinkFile(int64, string) error      { return wasip1.EBADF }
func (d *StdioDriver) PathFilestatGet(int64, wasip1.Lookupflags, string) (wasip1.Filestat, error) {
	return wasip1.Filestat{}, wasip1.EBADF
}
func (d *StdioDriver) Rename(int64, string, Driver, int64, string) error { return wasip1.EBADF }
func (d *StdioDriver) Link(int64, string, Driver, int64, string) error   { return wasip1.EBADF }
func (d *StdioDriver) Symlink(string, int64, string) error               { return wasip1.EBADF }
func (d *StdioDriver) Readlink(int64, string) (string, error)            { return "", wasip1.EBADF }
func (d *StdioDriver) PathFilestatSetTimes(int64, wasip1.Lookupflags, string, wasip1.Timestamp, wasip1.Timestamp, wasip1.Fstflags) error {
	return wasip1.EBADF
}
