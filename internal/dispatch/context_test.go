package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/hostclock"
	"github.com/wasirun/preview1/internal/hostconfig"
	"github.com/wasirun/preview1/internal/hostlog"
	"github.com/wasirun/preview1/internal/vfs"
	"github.com/wasirun/preview1/internal/wasip1"

	"github.com/sirupsen/logrus"
)

func newTestContext(t *testing.T) (*Context, wasip1.Fd) {
	t.Helper()
	cfg := hostconfig.New()
	log := hostlog.New("test", logrus.ErrorLevel)
	clock := hostclock.New()
	ctx := New(cfg, log, clock, []string{"prog"}, []string{"K=V"})

	root := vfs.NewRootDriver(1)
	ctx.RegisterDriver(root)

	rw := vfs.NewReadWriteDriver(2, vfs.NewOSHostFS(t.TempDir()), 0)
	ctx.RegisterDriver(rw)
	rh, _, err := rw.Open(0, ".", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	root.Mount("/", rw, rh)

	preopenHandle, _, err := root.Open(0, "/", 0, wasip1.OFLAGS_DIRECTORY, 0, 0, 0)
	require.NoError(t, err)
	fd := ctx.Preopen(root.ID(), preopenHandle, "/", wasip1.DirRights, wasip1.DirRights|wasip1.BaseRightsRW)
	return ctx, fd
}

func TestPathOpenWriteReadRoundTrip(t *testing.T) {
	ctx, root := newTestContext(t)

	fd, err := ctx.PathOpen(root, 0, "hello.txt", wasip1.OFLAGS_CREAT,
		wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)

	n, err := ctx.FdWrite(fd, []byte("hi there"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = ctx.FdSeek(fd, 0, wasip1.WhenceSet)
	require.NoError(t, err)

	buf := make([]byte, 8)
	n, err = ctx.FdRead(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(buf[:n]))

	require.NoError(t, ctx.FdClose(fd))
}

func TestPathOpenInheritsWriteRights(t *testing.T) {
	ctx, root := newTestContext(t)

	fd, err := ctx.PathOpen(root, 0, "f.txt", wasip1.OFLAGS_CREAT,
		wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)

	stat, err := ctx.FdFdstatGet(fd)
	require.NoError(t, err)
	assert.True(t, stat.RightsBase.Has(wasip1.FD_WRITE), "child fd should inherit FD_WRITE from preopen's RightsInheriting")
	assert.True(t, stat.RightsBase.Has(wasip1.FD_READ))
}

func TestFdPrestatGetReportsPreopenPath(t *testing.T) {
	ctx, root := newTestContext(t)

	pre, err := ctx.FdPrestatGet(root)
	require.NoError(t, err)
	assert.EqualValues(t, len("/"), pre.Len)

	name, err := ctx.FdPrestatDirName(root)
	require.NoError(t, err)
	assert.Equal(t, "/", name)
}

func TestPathOpenOnNonDirFdFails(t *testing.T) {
	ctx, root := newTestContext(t)
	fd, err := ctx.PathOpen(root, 0, "f.txt", wasip1.OFLAGS_CREAT,
		wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	require.NoError(t, err)

	_, err = ctx.PathOpen(fd, 0, "nested.txt", wasip1.OFLAGS_CREAT,
		wasip1.BaseRightsRW, wasip1.BaseRightsRW, 0)
	assert.Error(t, err)
}

func TestArgsAndEnviron(t *testing.T) {
	ctx, _ := newTestContext(t)
	assert.Equal(t, []string{"prog"}, ctx.Args())
	assert.Equal(t, []string{"K=V"}, ctx.Environ())
}

func TestPollOneoffClockTimeout(t *testing.T) {
	ctx, _ := newTestContext(t)

	start := time.Now()
	events, err := ctx.PollOneoff(context.Background(), []wasip1.Subscription{
		{
			Userdata: 42,
			Type:     wasip1.EVENTTYPE_CLOCK,
			Clock:    wasip1.SubscriptionClock{Timeout: wasip1.Timestamp(10 * time.Millisecond)},
		},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.EqualValues(t, 42, events[0].Userdata)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestDumpOpenFilesIncludesPreopen(t *testing.T) {
	ctx, root := newTestContext(t)
	lines := ctx.DumpOpenFiles()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "preopen=\"/\"")
	_ = root
}
