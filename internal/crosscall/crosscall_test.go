package crosscall

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReturnsRunResult(t *testing.T) {
	c := NewCaller(context.Background(), 2)
	defer c.Close()

	v, err := c.Submit(func() (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitPropagatesError(t *testing.T) {
	c := NewCaller(context.Background(), 1)
	defer c.Close()

	boom := errors.New("boom")
	_, err := c.Submit(func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestSubmitHandlesConcurrentCallers(t *testing.T) {
	c := NewCaller(context.Background(), 4)
	defer c.Close()

	var n int64
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			_, _ = c.Submit(func() (any, error) {
				atomic.AddInt64(&n, 1)
				return nil, nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	assert.EqualValues(t, 20, atomic.LoadInt64(&n))
}

func TestCloseDrainsInFlightWork(t *testing.T) {
	c := NewCaller(context.Background(), 1)
	_, err := c.Submit(func() (any, error) { return "done", nil })
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}
