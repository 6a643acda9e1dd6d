// Package guestmem provides the linear-memory view and transfer-plan
// staging machinery that lets a syscall dispatcher running in a
// different execution context than its driver marshal arguments and
// results across a shared memory buffer, per spec.md §4.1.
package guestmem

import (
	"encoding/binary"
	"fmt"
)

// Memory is a view over a guest's linear memory buffer. It never owns
// the backing slice; callers supply whatever buffer the guest's wasm
// instance or the shared-memory channel exposes.
type Memory struct {
	buf []byte
}

// New wraps buf as a Memory view.
func New(buf []byte) Memory { return Memory{buf: buf} }

// Len returns the size of the underlying buffer in bytes.
func (m Memory) Len() int { return len(m.buf) }

// ErrOutOfRange is returned by every accessor when the requested region
// falls outside the buffer.
type ErrOutOfRange struct {
	Offset, Size, Len uint32
}

func (e ErrOutOfRange) Error() string {
	return fmt.Sprintf("guestmem: region [%d, %d) out of range for buffer of length %d", e.Offset, e.Offset+e.Size, e.Len)
}

func (m Memory) bounds(offset, size uint32) ([]byte, error) {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(m.buf)) {
		return nil, ErrOutOfRange{Offset: offset, Size: size, Len: uint32(len(m.buf))}
	}
	return m.buf[offset:end], nil
}

// Read returns the size bytes starting at offset, or an error if the
// region is out of range.
func (m Memory) Read(offset, size uint32) ([]byte, error) {
	return m.bounds(offset, size)
}

// Write copies src into the buffer starting at offset.
func (m Memory) Write(offset uint32, src []byte) error {
	dst, err := m.bounds(offset, uint32(len(src)))
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

// Uint32 reads a little-endian u32 at offset.
func (m Memory) Uint32(offset uint32) (uint32, error) {
	b, err := m.bounds(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PutUint32 writes a little-endian u32 at offset.
func (m Memory) PutUint32(offset, v uint32) error {
	b, err := m.bounds(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

// Uint64 reads a little-endian u64 at offset.
func (m Memory) Uint64(offset uint32) (uint64, error) {
	b, err := m.bounds(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// PutUint64 writes a little-endian u64 at offset.
func (m Memory) PutUint64(offset uint32, v uint64) error {
	b, err := m.bounds(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// String reads size bytes at offset and returns them as a string with
// no trailing-NUL assumption (preview-1 paths are (ptr,len) pairs).
func (m Memory) String(offset, size uint32) (string, error) {
	b, err := m.bounds(offset, size)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
