package dispatch

import (
	"github.com/wasirun/preview1/internal/fdtable"
	"github.com/wasirun/preview1/internal/vfs"
	"github.com/wasirun/preview1/internal/wasip1"
)

func (c *Context) sockDriver(fd wasip1.Fd) (*fdtable.Entry, *vfs.SockDriver, error) {
	e, driver, err := c.lookup(fd)
	if err != nil {
		return nil, nil, err
	}
	sd, ok := driver.(*vfs.SockDriver)
	if !ok {
		return nil, nil, wasip1.ENOTSOCK
	}
	return e, sd, nil
}

// SockRecv reads from fd's connection into buf.
func (c *Context) SockRecv(fd wasip1.Fd, buf []byte) (int, error) {
	e, sd, err := c.sockDriver(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.FD_READ); err != nil {
		return 0, err
	}
	n, err := submit(c, func() (int, error) { return sd.Recv(e.Handle, buf) })
	if err != nil {
		return 0, wasip1.ToErrno(err)
	}
	return n, nil
}

// SockSend writes buf to fd's connection.
func (c *Context) SockSend(fd wasip1.Fd, buf []byte) (int, error) {
	e, sd, err := c.sockDriver(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.FD_WRITE); err != nil {
		return 0, err
	}
	n, err := submit(c, func() (int, error) { return sd.Send(e.Handle, buf) })
	if err != nil {
		return 0, wasip1.ToErrno(err)
	}
	return n, nil
}

// SockAccept accepts the next inbound connection on fd's listener and
// registers it as a new descriptor.
func (c *Context) SockAccept(fd wasip1.Fd) (wasip1.Fd, error) {
	e, sd, err := c.sockDriver(fd)
	if err != nil {
		return 0, err
	}
	if err := requireRights(e, wasip1.SOCK_ACCEPT); err != nil {
		return 0, err
	}
	newHandle, err := submit(c, func() (int64, error) { return sd.Accept(e.Handle) })
	if err != nil {
		return 0, wasip1.ToErrno(err)
	}
	entry := &fdtable.Entry{
		DriverID:         sd.ID(),
		Handle:           newHandle,
		Filetype:         wasip1.FILETYPE_SOCKET_STREAM,
		RightsBase:       wasip1.BaseRightsRW,
		RightsInheriting: wasip1.BaseRightsRW,
	}
	return c.table.Insert(entry), nil
}

// SockShutdown closes fd's connection.
func (c *Context) SockShutdown(fd wasip1.Fd) error {
	e, sd, err := c.sockDriver(fd)
	if err != nil {
		return err
	}
	if err := requireRights(e, wasip1.SOCK_SHUTDOWN); err != nil {
		return err
	}
	return wasip1.ToErrno(submitErr(c, func() error { return sd.Shutdown(e.Handle) }))
}
