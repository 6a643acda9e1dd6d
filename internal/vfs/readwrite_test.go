package vfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/wasip1"
)

func TestReadWriteDriverCreateWriteReadRoundTrip(t *testing.T) {
	d := NewReadWriteDriver(1, NewOSHostFS(t.TempDir()), 0)

	h, ft, err := d.Open(0, "greeting.txt", 0,
		wasip1.OFLAGS_CREAT, wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)
	assert.Equal(t, wasip1.FILETYPE_REGULAR_FILE, ft)

	n, err := d.Write(h, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	pos, err := d.Seek(h, 0, wasip1.WhenceSet)
	require.NoError(t, err)
	assert.EqualValues(t, 0, pos)

	buf := make([]byte, 5)
	n, err = d.Read(h, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	require.NoError(t, d.Close(h))
}

func TestReadWriteDriverOpenMissingWithoutCreatFails(t *testing.T) {
	d := NewReadWriteDriver(1, NewOSHostFS(t.TempDir()), 0)
	_, _, err := d.Open(0, "nope.txt", 0, 0, wasip1.BaseRightsR, wasip1.BaseRightsR, 0)
	assert.ErrorIs(t, err, wasip1.ENOENT)
}

func TestReadWriteDriverExclOnExistingFails(t *testing.T) {
	d := NewReadWriteDriver(1, NewOSHostFS(t.TempDir()), 0)
	h, _, err := d.Open(0, "f.txt", 0, wasip1.OFLAGS_CREAT, wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)
	require.NoError(t, d.Close(h))

	_, _, err = d.Open(0, "f.txt", 0, wasip1.OFLAGS_CREAT|wasip1.OFLAGS_EXCL,
		wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	assert.ErrorIs(t, err, wasip1.EEXIST)
}

func TestReadWriteDriverMkdirAndReaddir(t *testing.T) {
	d := NewReadWriteDriver(1, NewOSHostFS(t.TempDir()), 0)
	require.NoError(t, d.CreateDirectory(0, "sub"))

	h, _, err := d.Open(0, "sub", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)

	fh, _, err := d.Open(h, "a.txt", 0, wasip1.OFLAGS_CREAT, wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)
	require.NoError(t, d.Close(fh))

	entries, err := d.Readdir(h, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)
}

func TestReadWriteDriverAppliesUmaskToCreatedFile(t *testing.T) {
	dir := t.TempDir()
	d := NewReadWriteDriver(1, NewOSHostFS(dir), 0o077)

	h, _, err := d.Open(0, "f.txt", 0, wasip1.OFLAGS_CREAT, wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)
	require.NoError(t, d.Close(h))

	info, err := os.Stat(dir + "/f.txt")
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o077, "umask bits should be stripped from the created file's permissions")
}

func TestReadWriteDriverAllocateZeroFills(t *testing.T) {
	d := NewReadWriteDriver(1, NewOSHostFS(t.TempDir()), 0)
	h, _, err := d.Open(0, "f.txt", 0, wasip1.OFLAGS_CREAT, wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)

	require.NoError(t, d.Allocate(h, 0, 10))
	avail, err := d.BytesAvailable(h)
	require.NoError(t, err)
	assert.EqualValues(t, 10, avail)
}
