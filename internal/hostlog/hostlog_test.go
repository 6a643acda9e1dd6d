package hostlog

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewTagsComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := New("wasirun", logrus.InfoLevel)
	l.Logger.SetOutput(&buf)
	l.Info("starting up")

	assert.Contains(t, buf.String(), "component=wasirun")
	assert.Contains(t, buf.String(), "starting up")
}

func TestSyscallTagsFdAndName(t *testing.T) {
	var buf bytes.Buffer
	l := New("wasirun", logrus.InfoLevel)
	l.Logger.SetOutput(&buf)
	l.Syscall("fd_write", 3).Info("ok")

	out := buf.String()
	assert.Contains(t, out, "syscall=fd_write")
	assert.Contains(t, out, "fd=3")
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := New("wasirun", logrus.WarnLevel)
	l.Logger.SetOutput(&buf)
	l.Debug("should not appear")
	assert.Empty(t, buf.String())
}
