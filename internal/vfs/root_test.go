package vfs

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/wasip1"
)

func TestRootDriverRoutesByLongestPrefix(t *testing.T) {
	root := NewRootDriver(1)

	rw := NewReadWriteDriver(2, NewOSHostFS(t.TempDir()), 0)
	rwRoot, _, err := rw.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	root.Mount("/", rw, rwRoot)

	fsys := fstest.MapFS{"greeting.txt": {Data: []byte("hi")}}
	ro := NewReadOnlyDriver(3, fsys)
	roRoot, _, err := ro.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	root.Mount("/assets", ro, roRoot)

	h, ft, err := root.Open(0, "assets/greeting.txt", 0, 0, wasip1.BaseRightsR, wasip1.BaseRightsR, 0)
	require.NoError(t, err)
	assert.Equal(t, wasip1.FILETYPE_REGULAR_FILE, ft)

	buf := make([]byte, 2)
	n, err := root.Read(h, buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf[:n]))
	require.NoError(t, root.Close(h))

	fh, _, err := root.Open(0, "scratch.txt", 0, wasip1.OFLAGS_CREAT, wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)
	_, err = root.Write(fh, []byte("rw mount"))
	require.NoError(t, err)
	require.NoError(t, root.Close(fh))
}

func TestRootDriverMissingMountReturnsENOENT(t *testing.T) {
	root := NewRootDriver(1)
	_, _, err := root.Open(0, "nowhere/file.txt", 0, 0, wasip1.BaseRightsR, wasip1.BaseRightsR, 0)
	assert.ErrorIs(t, err, wasip1.ENOENT)
}

func TestRootDriverRenameAcrossMountsIsEXDEV(t *testing.T) {
	root := NewRootDriver(1)

	rw := NewReadWriteDriver(2, NewOSHostFS(t.TempDir()), 0)
	rwRoot, _, err := rw.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	root.Mount("/", rw, rwRoot)

	other := NewReadWriteDriver(3, NewOSHostFS(t.TempDir()), 0)
	otherRoot, _, err := other.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	root.Mount("/other", other, otherRoot)

	fh, _, err := root.Open(0, "a.txt", 0, wasip1.OFLAGS_CREAT, wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)
	require.NoError(t, root.Close(fh))

	err = root.Rename(0, "a.txt", root, 0, "other/a.txt")
	assert.ErrorIs(t, err, wasip1.EXDEV)
}
