package hostconfig

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, 16384, c.StreamBufferSize)
	assert.EqualValues(t, 0o022, c.Umask)
	assert.Equal(t, "/", c.PreopenDirName)
	assert.Equal(t, time.Millisecond, c.PollTickInterval)
	assert.Equal(t, "info", c.LogLevel)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	c := New(
		WithStreamBufferSize(4096),
		WithUmask(0o077),
		WithPreopenDirName("/sandbox"),
		WithPollTickInterval(5*time.Millisecond),
		WithLogLevel("debug"),
	)
	assert.Equal(t, 4096, c.StreamBufferSize)
	assert.EqualValues(t, 0o077, c.Umask)
	assert.Equal(t, "/sandbox", c.PreopenDirName)
	assert.Equal(t, 5*time.Millisecond, c.PollTickInterval)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestBindFlagsParsesOverrides(t *testing.T) {
	c := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{"--log-level=trace", "--umask=18"}))
	assert.Equal(t, "trace", c.LogLevel)
	assert.EqualValues(t, 18, c.Umask)
}
