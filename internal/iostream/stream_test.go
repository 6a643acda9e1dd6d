package iostream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/wasip1"
)

func TestStreamWriteThenReadMaxSplitsChunk(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Write([]byte("hello world")))

	first, err := s.ReadMax(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(first))

	rest, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, " world", string(rest))
}

func TestStreamWriteBlocksUntilCapacityFrees(t *testing.T) {
	s := New(4)
	require.NoError(t, s.Write([]byte("abcd")))

	done := make(chan error, 1)
	go func() { done <- s.Write([]byte("ef")) }()

	select {
	case <-done:
		t.Fatal("write should have blocked: stream at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := s.ReadMax(2)
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write never unblocked after capacity freed")
	}
}

func TestStreamDestroyWakesBlockedReaderAndWriter(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Write([]byte("ab")))

	readErr := make(chan error, 1)
	go func() {
		// The first read drains "ab"; the second finds the stream empty
		// and blocks until Destroy.
		_, err := s.ReadMax(-1)
		if err == nil {
			_, err = s.ReadMax(-1)
		}
		readErr <- err
	}()
	writeErr := make(chan error, 1)
	// "cde" exceeds the stream's capacity of 2, so this write blocks
	// whether or not the reader has drained "ab" yet.
	go func() { writeErr <- s.Write([]byte("cde")) }()

	time.Sleep(20 * time.Millisecond)
	s.Destroy()

	select {
	case err := <-writeErr:
		assert.ErrorIs(t, err, wasip1.ErrDestroyed)
	case <-time.After(time.Second):
		t.Fatal("write never observed destroy")
	}
	select {
	case err := <-readErr:
		assert.ErrorIs(t, err, wasip1.ErrDestroyed)
	case <-time.After(time.Second):
		t.Fatal("read never observed destroy")
	}
}

func TestWritableReadyAndReady(t *testing.T) {
	s := New(4)
	assert.True(t, s.WritableReady(4))
	assert.False(t, s.Ready())

	require.NoError(t, s.Write([]byte("ab")))
	assert.True(t, s.Ready())
	assert.True(t, s.WritableReady(2))
	assert.False(t, s.WritableReady(3))
}

func TestNewReadPollableAndWritePollable(t *testing.T) {
	s := New(4)
	readP := NewReadPollable(s)
	writeP := NewWritePollable(s, 4)

	assert.False(t, readP.Ready())
	assert.True(t, writeP.Ready())

	require.NoError(t, s.Write([]byte("abcd")))
	assert.True(t, readP.Ready())
	assert.False(t, writeP.Ready())
}

func TestClockPollableReadyAfterDeadline(t *testing.T) {
	p := NewClockPollable(5 * time.Millisecond)
	assert.False(t, p.Ready())
	require.NoError(t, p.Block(context.Background()))
	assert.True(t, p.Ready())
}

func TestPollOneoffReturnsReadySubscription(t *testing.T) {
	s := New(4)
	require.NoError(t, s.Write([]byte("x")))

	subs := []Subscription{
		{Userdata: 1, Type: wasip1.EVENTTYPE_FD_READ, Pollable: NewReadPollable(s)},
	}
	events, err := PollOneoff(context.Background(), subs, -1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.EqualValues(t, 1, events[0].Userdata)
}

func TestPollOneoffTimeoutWithNoReadySubscriptionReturnsEmpty(t *testing.T) {
	s := New(4)
	subs := []Subscription{
		{Userdata: 7, Type: wasip1.EVENTTYPE_FD_READ, Pollable: NewReadPollable(s)},
	}
	events, err := PollOneoff(context.Background(), subs, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPollOneoffRejectsEmptySubscriptionList(t *testing.T) {
	_, err := PollOneoff(context.Background(), nil, -1)
	assert.ErrorIs(t, err, wasip1.EINVAL)
}
