// Package iostream implements the bounded back-pressure byte stream and
// pollable abstraction described in spec.md §4.3, plus the poll_oneoff
// fan-in that races a set of pollables against an optional timeout.
package iostream

import (
	"sync"

	"github.com/wasirun/preview1/internal/wasip1"
)

// BufferSize is the default fill-level ceiling for a Stream, per
// spec.md §4.3.
const BufferSize = 16384

// Mode is a Stream's readable-side state machine.
type Mode int

const (
	Initial Mode = iota
	Flowing
	Paused
)

// Stream is a FIFO of byte chunks bounded by BufferSize, with readers
// and writers blocking via a condition variable rather than a channel
// so that Destroy can wake every waiter at once with a single Broadcast.
type Stream struct {
	mu        sync.Mutex
	cond      *sync.Cond
	chunks    [][]byte
	fillLevel int
	capacity  int
	mode      Mode
	destroyed bool
}

// New returns an empty Stream with the given capacity (BufferSize if
// capacity <= 0).
func New(capacity int) *Stream {
	if capacity <= 0 {
		capacity = BufferSize
	}
	s := &Stream{capacity: capacity}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Mode reports the stream's current readable-side mode.
func (s *Stream) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetFlowing transitions the stream to flowing mode; read() is illegal
// once flowing (callers must drain via a subscriber instead).
func (s *Stream) SetFlowing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Flowing
	s.cond.Broadcast()
}

// Pause transitions the stream back to paused mode.
func (s *Stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Paused
}

// FillLevel returns the current number of buffered bytes.
func (s *Stream) FillLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fillLevel
}

// Write appends chunk to the stream, blocking until there is room (or
// the stream is destroyed, in which case it returns wasip1.ErrDestroyed).
// A waiting reader, if any, is woken.
func (s *Stream) Write(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.destroyed && s.fillLevel+len(chunk) > s.capacity {
		s.cond.Wait()
	}
	if s.destroyed {
		return wasip1.ErrDestroyed
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.chunks = append(s.chunks, cp)
	s.fillLevel += len(cp)
	s.cond.Broadcast()
	return nil
}

// Read returns all currently buffered bytes, blocking if none are
// available yet. It is illegal to call Read once the stream has
// transitioned to Flowing mode.
func (s *Stream) Read() ([]byte, error) {
	return s.ReadMax(-1)
}

// ReadMax returns at most max buffered bytes (all of them if max < 0),
// blocking until at least one byte is available or the stream is
// destroyed.
func (s *Stream) ReadMax(max int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.destroyed && s.fillLevel == 0 {
		s.cond.Wait()
	}
	if s.destroyed && s.fillLevel == 0 {
		return nil, wasip1.ErrDestroyed
	}
	out := make([]byte, 0, s.fillLevel)
	for len(s.chunks) > 0 {
		if max >= 0 && len(out) >= max {
			break
		}
		c := s.chunks[0]
		if max >= 0 && len(out)+len(c) > max {
			n := max - len(out)
			out = append(out, c[:n]...)
			s.chunks[0] = c[n:]
			s.fillLevel -= n
			break
		}
		out = append(out, c...)
		s.fillLevel -= len(c)
		s.chunks = s.chunks[1:]
	}
	s.cond.Broadcast()
	return out, nil
}

// Ready reports whether a Read would return data immediately.
func (s *Stream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fillLevel > 0 || s.destroyed
}

// WritableReady reports whether a Write of writeSize bytes would not
// block immediately.
func (s *Stream) WritableReady(writeSize int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed || s.fillLevel+writeSize <= s.capacity
}

// Destroy wakes every blocked reader and writer with ErrDestroyed.
func (s *Stream) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
	s.cond.Broadcast()
}
