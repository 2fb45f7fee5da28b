package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureStateDirsCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	require.NoError(t, EnsureStateDirs(root))

	p := PathsFor(root)
	for _, dir := range []string{p.Store, p.Blobs, p.Checkpoints, p.Tmp, p.Logs} {
		fi, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, fi.IsDir(), dir)
	}
	assert.Equal(t, filepath.Join(root, "state", "checkpoints"), CheckpointPath(root))
}

func TestEnsureStateDirsRejectsSymlinkAndFiles(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	require.NoError(t, os.Symlink(target, filepath.Join(root, "store")))
	assert.Error(t, EnsureStateDirs(root))

	root2 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root2, "blobs"), []byte("x"), 0o600))
	assert.Error(t, EnsureStateDirs(root2))
}
