// Package hostlog wires a structured logrus logger into a dispatch
// context, following the field-heavy, level-gated logging idiom used
// throughout the retrieval pack's larger services.
package hostlog

import (
	"github.com/sirupsen/logrus"
)

// Logger is the structured logger every dispatch.Context carries.
type Logger struct {
	*logrus.Entry
}

// New returns a Logger writing text-formatted entries at the given
// level, with a "component" field fixed to name.
func New(name string, level logrus.Level) *Logger {
	base := logrus.New()
	base.SetLevel(level)
	return &Logger{Entry: base.WithField("component", name)}
}

// Syscall returns a child logger scoped to a single syscall invocation,
// tagging every subsequent entry with the fd and syscall name so a
// sequence of host-side log lines can be correlated back to one guest
// call.
func (l *Logger) Syscall(name string, fd uint32) *logrus.Entry {
	return l.WithFields(logrus.Fields{"syscall": name, "fd": fd})
}
