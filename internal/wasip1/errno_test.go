package wasip1

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToErrnoMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want Errno
	}{
		{nil, ESUCCESS},
		{fs.ErrNotExist, ENOENT},
		{fs.ErrExist, EEXIST},
		{fs.ErrPermission, EPERM},
		{fs.ErrInvalid, EINVAL},
		{fs.ErrClosed, EBADF},
		{EACCES, EACCES}, // an Errno already wrapped as error passes through
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ToErrno(c.err), "err=%v", c.err)
	}
}

func TestFromErrnoRoundTrip(t *testing.T) {
	for _, e := range []Errno{EINVAL, EPERM, EEXIST, ENOENT, EBADF, ENOSYS, EROFS} {
		assert.Equal(t, e, ToErrno(FromErrno(e)))
	}
	assert.NoError(t, FromErrno(ESUCCESS))
}

func TestErrnoNameAndError(t *testing.T) {
	assert.Equal(t, "ESUCCESS", ESUCCESS.Name())
	assert.Equal(t, "EBADF", EBADF.Name())
	assert.Equal(t, EBADF.Name(), EBADF.Error())
}
