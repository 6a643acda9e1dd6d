package hostenv

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWiresRealStdio(t *testing.T) {
	e := Default()
	require.NotNil(t, e.Clock)
	assert.Equal(t, os.Stdin, e.Stdin)
	assert.Equal(t, os.Stdout, e.Stdout)
	assert.Equal(t, os.Stderr, e.Stderr)
}

func TestHostFSRootsAtGivenPath(t *testing.T) {
	e := Default()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/f.txt", []byte("x"), 0o644))

	fs := e.HostFS(dir)
	info, err := fs.Stat("f.txt")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
