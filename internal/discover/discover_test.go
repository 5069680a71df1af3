package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestManifestsSkipsNodeModulesAndVCSDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "package.json"))
	touch(t, filepath.Join(root, "packages", "a", "package.json"))
	touch(t, filepath.Join(root, "node_modules", "left-pad", "package.json"))
	touch(t, filepath.Join(root, ".git", "hooks", "package.json"))

	found, err := Manifests(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "package.json"),
		filepath.Join(root, "packages", "a", "package.json"),
	}, found)
}

func TestManifestsEmptyTree(t *testing.T) {
	root := t.TempDir()
	found, err := Manifests(root)
	require.NoError(t, err)
	assert.Empty(t, found)
}
