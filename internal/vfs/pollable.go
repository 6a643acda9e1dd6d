package vfs

import "github.com/wasirun/preview1/internal/iostream"

// Pollable is an optional capability a driver may implement when its
// fds are backed by an iostream.Stream (today, only StdioDriver):
// poll_oneoff type-asserts for it and falls back to "always ready" for
// drivers that don't (plain files never block a POSIX-style read or
// write in this host's model).
type Pollable interface {
	ReadPollable(handle int64) (*iostream.Stream, error)
	WritePollable(handle int64) (*iostream.Stream, error)
}
