package wasi_snapshot_preview1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/dispatch"
	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/hostclock"
	"github.com/wasirun/preview1/internal/hostconfig"
	"github.com/wasirun/preview1/internal/hostlog"
	"github.com/wasirun/preview1/internal/vfs"
	"github.com/wasirun/preview1/internal/wasip1"

	"github.com/sirupsen/logrus"
)

// newTestModule builds a Module backed by one preopened temp directory
// at guest path "/", mirroring cmd/wasirun's own wiring.
func newTestModule(t *testing.T) (*Module, []byte) {
	t.Helper()
	cfg := hostconfig.New()
	log := hostlog.New("test", logrus.ErrorLevel)
	clock := hostclock.New()
	ctx := dispatch.New(cfg, log, clock, []string{"prog", "arg1"}, []string{"A=B"})

	root := vfs.NewRootDriver(1)
	ctx.RegisterDriver(root)
	rw := vfs.NewReadWriteDriver(2, vfs.NewOSHostFS(t.TempDir()), 0)
	ctx.RegisterDriver(rw)
	rh, _, err := rw.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	root.Mount("/", rw, rh)

	preopenHandle, _, err := root.Open(0, "/", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	ctx.Preopen(root.ID(), preopenHandle, "/", wasip1.DirRights, wasip1.DirRights|wasip1.BaseRightsRW)

	return New(ctx), make([]byte, 65536)
}

func TestFdWriteThenFdReadRoundTrip(t *testing.T) {
	m, buf := newTestModule(t)
	mem := guestmem.New(buf)
	fns := m.Functions()

	openFn := fns["path_open"]
	pathOff := uint32(1000)
	path := "hello.txt"
	require.NoError(t, mem.Write(pathOff, []byte(path)))
	fdOut := uint32(2000)
	errno := openFn.Fn(context.Background(), mem, []uint64{
		0, 0, uint64(pathOff), uint64(len(path)),
		uint64(wasip1.OFLAGS_CREAT), uint64(wasip1.BaseRightsRW), uint64(wasip1.BaseRightsRW), 0,
		uint64(fdOut),
	})
	require.Equal(t, wasip1.ESUCCESS, errno)
	fdBytes, err := mem.Read(fdOut, 4)
	require.NoError(t, err)
	fd := uint64(fdBytes[0]) | uint64(fdBytes[1])<<8 | uint64(fdBytes[2])<<16 | uint64(fdBytes[3])<<24

	writeFn := fns["fd_write"]
	data := "payload bytes"
	dataOff := uint32(3000)
	require.NoError(t, mem.Write(dataOff, []byte(data)))
	iovOff := uint32(3100)
	require.NoError(t, mem.PutUint32(iovOff, dataOff))
	require.NoError(t, mem.PutUint32(iovOff+4, uint32(len(data))))
	nwrittenOff := uint32(3200)

	errno = writeFn.Fn(context.Background(), mem, []uint64{fd, uint64(iovOff), 1, uint64(nwrittenOff)})
	require.Equal(t, wasip1.ESUCCESS, errno)
	nwBytes, err := mem.Read(nwrittenOff, 4)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), nwBytes[0])

	seekFn := fns["fd_seek"]
	newoffOff := uint32(3300)
	errno = seekFn.Fn(context.Background(), mem, []uint64{fd, 0, uint64(wasip1.WhenceSet), uint64(newoffOff)})
	require.Equal(t, wasip1.ESUCCESS, errno)

	readFn := fns["fd_read"]
	readBufOff := uint32(4000)
	iov2Off := uint32(4100)
	require.NoError(t, mem.PutUint32(iov2Off, readBufOff))
	require.NoError(t, mem.PutUint32(iov2Off+4, uint32(len(data))))
	nreadOff := uint32(4200)
	errno = readFn.Fn(context.Background(), mem, []uint64{fd, uint64(iov2Off), 1, uint64(nreadOff)})
	require.Equal(t, wasip1.ESUCCESS, errno)

	got, err := mem.Read(readBufOff, uint32(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, string(got))
}

func TestArgsGetPacksStringsWithoutTrailingNUL(t *testing.T) {
	m, buf := newTestModule(t)
	mem := guestmem.New(buf)
	fns := m.Functions()

	sizesFn := fns["args_sizes_get"]
	countOff := uint32(100)
	bufSizeOff := uint32(104)
	errno := sizesFn.Fn(context.Background(), mem, []uint64{uint64(countOff), uint64(bufSizeOff)})
	require.Equal(t, wasip1.ESUCCESS, errno)

	countBytes, _ := mem.Read(countOff, 4)
	count := leU32(countBytes)
	assert.EqualValues(t, 2, count)

	sizeBytes, _ := mem.Read(bufSizeOff, 4)
	bufSize := leU32(sizeBytes)
	assert.EqualValues(t, len("prog")+len("arg1"), bufSize)

	getFn := fns["args_get"]
	argvOff := uint32(200)
	argvBufOff := uint32(300)
	errno = getFn.Fn(context.Background(), mem, []uint64{uint64(argvOff), uint64(argvBufOff)})
	require.Equal(t, wasip1.ESUCCESS, errno)

	packed, err := mem.Read(argvBufOff, bufSize)
	require.NoError(t, err)
	assert.Equal(t, "progarg1", string(packed))
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestFdPrestatGetAndDirName(t *testing.T) {
	m, buf := newTestModule(t)
	mem := guestmem.New(buf)
	fns := m.Functions()

	preOff := uint32(500)
	errno := fns["fd_prestat_get"].Fn(context.Background(), mem, []uint64{0, uint64(preOff)})
	require.Equal(t, wasip1.ESUCCESS, errno)

	nameOff := uint32(600)
	errno = fns["fd_prestat_dir_name"].Fn(context.Background(), mem, []uint64{0, uint64(nameOff), 1})
	require.Equal(t, wasip1.ESUCCESS, errno)

	got, err := mem.Read(nameOff, 1)
	require.NoError(t, err)
	assert.Equal(t, "/", string(got))
}

func TestPathOpenUnknownFdIsEBADF(t *testing.T) {
	m, buf := newTestModule(t)
	mem := guestmem.New(buf)
	fns := m.Functions()

	pathOff := uint32(1000)
	require.NoError(t, mem.Write(pathOff, []byte("x")))
	errno := fns["path_open"].Fn(context.Background(), mem, []uint64{
		99, 0, uint64(pathOff), 1, 0, uint64(wasip1.BaseRightsR), uint64(wasip1.BaseRightsR), 0, 2000,
	})
	assert.Equal(t, wasip1.EBADF, errno)
}
