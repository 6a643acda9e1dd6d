package hostclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasirun/preview1/internal/wasip1"
)

func TestResolutionIsOneNanosecondForKnownClocks(t *testing.T) {
	c := New()
	for _, id := range []wasip1.Clockid{
		wasip1.CLOCK_REALTIME, wasip1.CLOCK_MONOTONIC,
		wasip1.CLOCK_PROCESS_CPUTIME_ID, wasip1.CLOCK_THREAD_CPUTIME_ID,
	} {
		res, err := c.Resolution(id)
		require.NoError(t, err)
		assert.EqualValues(t, 1, res)
	}
}

func TestResolutionUnknownClockIsEINVAL(t *testing.T) {
	c := New()
	_, err := c.Resolution(wasip1.Clockid(99))
	assert.ErrorIs(t, err, wasip1.EINVAL)
}

func TestMonotonicClockIsNonDecreasing(t *testing.T) {
	c := New()
	first, err := c.Now(wasip1.CLOCK_MONOTONIC)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := c.Now(wasip1.CLOCK_MONOTONIC)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second, first)
}

func TestRandomFillsRequestedLength(t *testing.T) {
	c := New()
	buf := make([]byte, 32)
	require.NoError(t, c.Random(buf))

	zero := make([]byte, 32)
	assert.NotEqual(t, zero, buf, "32 random bytes matching all-zero is astronomically unlikely")
}
