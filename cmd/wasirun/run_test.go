package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir string, script string) string {
	t.Helper()
	path := filepath.Join(dir, "script.json")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))
	return path
}

func TestRunCmdReplaysPathOpenAndDumpsState(t *testing.T) {
	mountDir := t.TempDir()
	scriptDir := t.TempDir()

	script := `{
		"memory_size": 65536,
		"calls": [
			{
				"syscall": "path_open",
				"params": [3, 0, 1000, 9, 1, 0, 0, 0, 2000],
				"pokes": [{"offset": 1000, "text": "hello.txt"}],
				"expect_errno": "ESUCCESS"
			}
		]
	}`
	scriptPath := writeScript(t, scriptDir, script)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run", "--mount", mountDir + ":/", "--dump-state", scriptPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "preopen=\"/\"")
}

func TestRunCmdUnknownSyscallErrors(t *testing.T) {
	mountDir := t.TempDir()
	scriptDir := t.TempDir()

	script := `{"memory_size": 1024, "calls": [{"syscall": "not_a_syscall", "params": []}]}`
	scriptPath := writeScript(t, scriptDir, script)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run", "--mount", mountDir + ":/", scriptPath})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestRunCmdExpectErrnoMismatchFails(t *testing.T) {
	mountDir := t.TempDir()
	scriptDir := t.TempDir()

	script := `{
		"memory_size": 65536,
		"calls": [
			{
				"syscall": "path_open",
				"params": [0, 0, 1000, 9, 0, 0, 0, 0, 2000],
				"pokes": [{"offset": 1000, "text": "missing.txt"}],
				"expect_errno": "ESUCCESS"
			}
		]
	}`
	scriptPath := writeScript(t, scriptDir, script)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run", "--mount", mountDir + ":/", scriptPath})

	err := cmd.Execute()
	assert.Error(t, err)
}
