// Package hostenv defines the embedding interface spec.md §6 requires:
// the set of host capabilities an embedding runtime supplies to stand
// a dispatch.Context up, plus a concrete os/crypto-backed default.
package hostenv

import (
	"os"

	"github.com/wasirun/preview1/internal/hostclock"
	"github.com/wasirun/preview1/internal/vfs"
)

// Env is everything a process-handle Context needs from its embedder:
// a clock, an RNG (both folded into hostclock.Clock), stdio endpoints,
// and the host filesystem roots to pre-open.
type Env struct {
	Clock *hostclock.Clock

	// Stdin, Stdout, Stderr back fd 0/1/2; nil entries fall back to
	// the process's own os.Stdin/Stdout/Stderr.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Preopens maps a guest-visible preopen path (e.g. "/") to the
	// host directory backing it.
	Preopens map[string]string
}

// Default returns an Env wired to the real OS: wall clock, crypto/rand,
// and the process's own stdio streams.
func Default() *Env {
	return &Env{
		Clock:  hostclock.New(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// HostFS returns a vfs.HostFS rooted at the given host path, using
// e's configured default (package os) passthrough.
func (e *Env) HostFS(root string) vfs.HostFS {
	return vfs.NewOSHostFS(root)
}
