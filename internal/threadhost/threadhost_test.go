package threadhost

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/wasip1"
)

func TestSpawnAllocatesIncreasingTids(t *testing.T) {
	h := New(nil)
	a := h.Spawn(0)
	b := h.Spawn(0)
	assert.Less(t, a, b)
	assert.Equal(t, 2, h.Len())
}

func TestExitRemovesLiveThread(t *testing.T) {
	h := New(nil)
	tid := h.Spawn(0)
	require.NoError(t, h.Exit(tid))
	assert.Equal(t, 0, h.Len())
}

func TestExitUnknownTidIsEINVAL(t *testing.T) {
	h := New(nil)
	err := h.Exit(Tid(999))
	assert.ErrorIs(t, err, wasip1.EINVAL)
}

func TestSpawnRunsEntrypointWithCancellableContext(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	var gotArg uint32
	var gotTid Tid
	var cancelled bool

	h := New(func(ctx context.Context, tid Tid, startArg uint32) {
		defer wg.Done()
		gotTid = tid
		gotArg = startArg
		<-ctx.Done()
		cancelled = true
	})

	tid := h.Spawn(7)
	require.NoError(t, h.Exit(tid))

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("entrypoint never observed cancellation")
	}

	assert.Equal(t, tid, gotTid)
	assert.EqualValues(t, 7, gotArg)
	assert.True(t, cancelled)
}
