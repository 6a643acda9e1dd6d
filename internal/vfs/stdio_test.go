package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/iostream"
	"github.com/wasirun/preview1/internal/wasip1"
)

func TestStdioDriverWriteThenReadRoundTrip(t *testing.T) {
	d := NewStdioDriver(1)
	s := iostream.New(0)
	wh := d.AddStream(s, true)
	rh := d.AddStream(s, false)

	n, err := d.Write(wh, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = d.Read(rh, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestStdioDriverWriteOnReadHandleFails(t *testing.T) {
	d := NewStdioDriver(1)
	s := iostream.New(0)
	rh := d.AddStream(s, false)

	_, err := d.Write(rh, []byte("x"))
	assert.ErrorIs(t, err, wasip1.EBADF)
}

func TestStdioDriverPathOpsReturnEBADF(t *testing.T) {
	d := NewStdioDriver(1)
	_, _, err := d.Open(0, "anything", 0, 0, 0, 0, 0)
	assert.ErrorIs(t, err, wasip1.EBADF)
	assert.ErrorIs(t, d.CreateDirectory(0, "x"), wasip1.EBADF)
	assert.ErrorIs(t, d.UnlinkFile(0, "x"), wasip1.EBADF)
}

func TestStdioDriverFdstatReflectsDirection(t *testing.T) {
	d := NewStdioDriver(1)
	s := iostream.New(0)
	wh := d.AddStream(s, true)
	rh := d.AddStream(s, false)

	wstat, err := d.FdstatGet(wh)
	require.NoError(t, err)
	assert.True(t, wstat.RightsBase.Has(wasip1.FD_WRITE))

	rstat, err := d.FdstatGet(rh)
	require.NoError(t, err)
	assert.True(t, rstat.RightsBase.Has(wasip1.FD_READ))
}
