package vfs

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/wasirun/preview1/internal/wasip1"
)

// SockDriver backs sock_recv/sock_send/sock_accept/sock_shutdown with
// real net.Conn/net.Listener values, supplementing the base spec per
// SPEC_FULL.md's Supplemented Features section; preview-1 itself never
// creates sockets (no socket() import exists in this ABI), only
// consumes ones the embedder pre-opens.
type SockDriver struct {
	UnsupportedDriver

	id int

	mu      sync.Mutex
	handles map[int64]*sockHandle
	nextH   int64
}

type sockHandle struct {
	conn     net.Conn
	listener net.Listener
}

// NewSockDriver returns an empty socket driver identified by id.
func NewSockDriver(id int) *SockDriver { return &SockDriver{id: id, handles: map[int64]*sockHandle{}} }

func (d *SockDriver) ID() int { return d.id }

// AddConn registers an already-connected net.Conn and returns its
// driver-local handle.
func (d *SockDriver) AddConn(conn net.Conn) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextH++
	h := d.nextH
	d.handles[h] = &sockHandle{conn: conn}
	return h
}

// AddListener registers a net.Listener (for sock_accept) and returns
// its driver-local handle.
func (d *SockDriver) AddListener(l net.Listener) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextH++
	h := d.nextH
	d.handles[h] = &sockHandle{listener: l}
	return h
}

func (d *SockDriver) handleOf(handle int64) (*sockHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[handle]
	return h, ok
}

func (d *SockDriver) Close(handle int64) error {
	d.mu.Lock()
	h, ok := d.handles[handle]
	delete(d.handles, handle)
	d.mu.Unlock()
	if !ok {
		return wasip1.EBADF
	}
	if h.conn != nil {
		return h.conn.Close()
	}
	if h.listener != nil {
		return h.listener.Close()
	}
	return nil
}

func (d *SockDriver) FdstatGet(handle int64) (wasip1.Fdstat, error) {
	if _, ok := d.handleOf(handle); !ok {
		return wasip1.Fdstat{}, wasip1.EBADF
	}
	return wasip1.Fdstat{Filetype: wasip1.FILETYPE_SOCKET_STREAM, RightsBase: wasip1.BaseRightsRW}, nil
}

// Recv reads into buf, reporting EOF as a zero-length success the way
// a socket read does at end of stream.
func (d *SockDriver) Recv(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.conn == nil {
		return 0, wasip1.ENOTSOCK
	}
	n, err := h.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		return n, wasip1.EIO
	}
	return n, nil
}

// Send writes buf to the connection.
func (d *SockDriver) Send(handle int64, buf []byte) (int, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.conn == nil {
		return 0, wasip1.ENOTSOCK
	}
	n, err := h.conn.Write(buf)
	if err != nil {
		return n, wasip1.EIO
	}
	return n, nil
}

// Accept blocks for the next inbound connection on a listening handle
// and registers it as a new socket handle.
func (d *SockDriver) Accept(handle int64) (int64, error) {
	h, ok := d.handleOf(handle)
	if !ok || h.listener == nil {
		return 0, wasip1.ENOTSOCK
	}
	conn, err := h.listener.Accept()
	if err != nil {
		return 0, wasip1.EIO
	}
	return d.AddConn(conn), nil
}

// Shutdown closes the connection; no read/write shutdown direction
// bits reach this far, so it always performs a full close.
func (d *SockDriver) Shutdown(handle int64) error {
	h, ok := d.handleOf(handle)
	if !ok || h.conn == nil {
		return wasip1.ENOTSOCK
	}
	return h.conn.Close()
}
