// Package wasip1 implements the scalar and struct vocabulary of the
// wasi_snapshot_preview1 ABI: the errno enumeration, rights bitmask,
// open/fd flags, and the fixed-layout structs exchanged across the
// guest/host boundary (fdstat, filestat, dirent, subscription, event).
//
// Nothing in this package touches guest memory; see internal/guestmem
// for the transfer-plan machinery that moves these structs across the
// boundary, and internal/dispatch for the operations that produce them.
package wasip1

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// Errno is the u16 (stored widened for alignment) preview-1 error code.
// Zero is success.
type Errno uint32

const (
	ESUCCESS Errno = iota
	E2BIG
	EACCES
	EADDRINUSE
	EADDRNOTAVAIL
	EAFNOSUPPORT
	EAGAIN
	EALREADY
	EBADF
	EBADMSG
	EBUSY
	ECANCELED
	ECHILD
	ECONNABORTED
	ECONNREFUSED
	ECONNRESET
	EDEADLK
	EDESTADDRREQ
	EDOM
	EDQUOT
	EEXIST
	EFAULT
	EFBIG
	EHOSTUNREACH
	EIDRM
	EILSEQ
	EINPROGRESS
	EINTR
	EINVAL
	EIO
	EISCONN
	EISDIR
	ELOOP
	EMFILE
	EMLINK
	EMSGSIZE
	EMULTIHOP
	ENAMETOOLONG
	ENETDOWN
	ENETRESET
	ENETUNREACH
	ENFILE
	ENOBUFS
	ENODEV
	ENOENT
	ENOEXEC
	ENOLCK
	ENOLINK
	ENOMEM
	ENOMSG
	ENOPROTOOPT
	ENOSPC
	ENOSYS
	ENOTCONN
	ENOTDIR
	ENOTEMPTY
	ENOTRECOVERABLE
	ENOTSOCK
	ENOTSUP
	ENOTTY
	ENXIO
	EOVERFLOW
	EOWNERDEAD
	EPERM
	EPIPE
	EPROTO
	EPROTONOSUPPORT
	EPROTOTYPE
	ERANGE
	EROFS
	ESPIPE
	ESRCH
	ESTALE
	ETIMEDOUT
	ETXTBSY
	EXDEV
	ENOTCAPABLE
)

var errnoNames = [...]string{
	"ESUCCESS", "E2BIG", "EACCES", "EADDRINUSE", "EADDRNOTAVAIL",
	"EAFNOSUPPORT", "EAGAIN", "EALREADY", "EBADF", "EBADMSG", "EBUSY",
	"ECANCELED", "ECHILD", "ECONNABORTED", "ECONNREFUSED", "ECONNRESET",
	"EDEADLK", "EDESTADDRREQ", "EDOM", "EDQUOT", "EEXIST", "EFAULT",
	"EFBIG", "EHOSTUNREACH", "EIDRM", "EILSEQ", "EINPROGRESS", "EINTR",
	"EINVAL", "EIO", "EISCONN", "EISDIR", "ELOOP", "EMFILE", "EMLINK",
	"EMSGSIZE", "EMULTIHOP", "ENAMETOOLONG", "ENETDOWN", "ENETRESET",
	"ENETUNREACH", "ENFILE", "ENOBUFS", "ENODEV", "ENOENT", "ENOEXEC",
	"ENOLCK", "ENOLINK", "ENOMEM", "ENOMSG", "ENOPROTOOPT", "ENOSPC",
	"ENOSYS", "ENOTCONN", "ENOTDIR", "ENOTEMPTY", "ENOTRECOVERABLE",
	"ENOTSOCK", "ENOTSUP", "ENOTTY", "ENXIO", "EOVERFLOW", "EOWNERDEAD",
	"EPERM", "EPIPE", "EPROTO", "EPROTONOSUPPORT", "EPROTOTYPE",
	"ERANGE", "EROFS", "ESPIPE", "ESRCH", "ESTALE", "ETIMEDOUT",
	"ETXTBSY", "EXDEV", "ENOTCAPABLE",
}

// Name returns the POSIX-style error code name, e.g. Errno(2) -> "EACCES".
func (e Errno) Name() string {
	if int(e) < len(errnoNames) {
		return errnoNames[e]
	}
	return fmt.Sprintf("errno(%d)", int(e))
}

func (e Errno) Error() string { return e.Name() }

// ErrNotImplemented is the Go error FromErrno returns for ENOSYS.
// ToErrno maps it back to ENOSYS. The vfs drivers return wasip1.ENOSYS
// directly for operations they do not support.
var ErrNotImplemented = errors.New("wasip1: not implemented")

// ErrReadOnly is returned by write-class operations on a read-only
// driver. ToErrno maps it to EROFS.
var ErrReadOnly = errors.New("wasip1: read-only filesystem")

// ErrDestroyed is returned by a stream once it has been torn down;
// callers convert it to an empty read/write at the syscall boundary
// rather than propagating it as an errno.
var ErrDestroyed = errors.New("wasip1: stream destroyed")

// ToErrno converts a Go error (returned by a driver, a stream, or the
// standard library) to a preview-1 errno.
// If err already carries a concrete Errno (via errors.As) that value
// is returned unchanged.
func ToErrno(err error) Errno {
	if err == nil {
		return ESUCCESS
	}
	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}
	switch {
	case errors.Is(err, io.EOF):
		return ESUCCESS
	case errors.Is(err, fs.ErrInvalid):
		return EINVAL
	case errors.Is(err, fs.ErrPermission):
		return EPERM
	case errors.Is(err, fs.ErrExist):
		return EEXIST
	case errors.Is(err, fs.ErrNotExist):
		return ENOENT
	case errors.Is(err, fs.ErrClosed):
		return EBADF
	case errors.Is(err, ErrNotImplemented):
		return ENOSYS
	case errors.Is(err, ErrReadOnly):
		return EROFS
	case errors.Is(err, ErrDestroyed):
		return ESUCCESS
	default:
		return EIO
	}
}

// FromErrno is the reverse mapping, used where a driver needs to hand
// a well-known failure back as a Go error (e.g. to satisfy an io.Reader
// contract in a wrapper type).
func FromErrno(errno Errno) error {
	switch errno {
	case ESUCCESS:
		return nil
	case EINVAL:
		return fs.ErrInvalid
	case EPERM:
		return fs.ErrPermission
	case EEXIST:
		return fs.ErrExist
	case ENOENT:
		return fs.ErrNotExist
	case EBADF:
		return fs.ErrClosed
	case ENOSYS:
		return ErrNotImplemented
	case EROFS:
		return ErrReadOnly
	default:
		return errno
	}
}
