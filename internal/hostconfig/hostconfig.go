// Package hostconfig implements the host's functional-options
// configuration surface, following the pack's spf13/pflag-bound config
// struct convention, and exposes it to a CLI's flag set.
package hostconfig

import (
	"time"

	"github.com/spf13/pflag"
)

// Config holds the tunables a dispatch.Context is built from.
type Config struct {
	StreamBufferSize int
	Umask            uint32
	PreopenDirName   string
	PollTickInterval time.Duration
	LogLevel         string
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithStreamBufferSize overrides the default stream back-pressure
// ceiling (iostream.BufferSize).
func WithStreamBufferSize(n int) Option {
	return func(c *Config) { c.StreamBufferSize = n }
}

// WithUmask sets the permission mask applied to newly created files.
func WithUmask(mask uint32) Option {
	return func(c *Config) { c.Umask = mask }
}

// WithPreopenDirName sets the guest path (the name fd_prestat_dir_name
// reports) of the implicit preopen made when no explicit mount is given.
func WithPreopenDirName(name string) Option {
	return func(c *Config) { c.PreopenDirName = name }
}

// WithLogLevel sets the logrus level name ("debug", "info", ...).
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithPollTickInterval sets the granularity poll_oneoff rounds relative
// clock subscriptions up to, as a stand-in for this host's clock
// precision hint.
func WithPollTickInterval(d time.Duration) Option {
	return func(c *Config) { c.PollTickInterval = d }
}

// New builds a Config from its defaults plus the given options.
func New(opts ...Option) *Config {
	c := &Config{
		StreamBufferSize: 16384,
		Umask:            0o022,
		PreopenDirName:   "/",
		PollTickInterval: time.Millisecond,
		LogLevel:         "info",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BindFlags registers every Config field on fs, following the pack's
// cobra+pflag pairing (cmd/wasirun binds this to its root command).
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.StreamBufferSize, "stream-buffer-size", c.StreamBufferSize, "bounded stream back-pressure ceiling, in bytes")
	fs.Uint32Var(&c.Umask, "umask", c.Umask, "permission mask applied to newly created files")
	fs.StringVar(&c.PreopenDirName, "preopen-dir-name", c.PreopenDirName, "name reported by fd_prestat_dir_name for the implicit preopen used when no --mount is given")
	fs.DurationVar(&c.PollTickInterval, "poll-tick-interval", c.PollTickInterval, "granularity poll_oneoff rounds relative clock subscriptions up to")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "logrus level: trace, debug, info, warn, error")
}
