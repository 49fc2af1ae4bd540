package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EmptyRootRemovesContents(t *testing.T) {
	m, fs := newTestManager(t, Options{CompressFormat: "tar.gz", RelativePath: "/out"})

	require.NoError(t, afero.WriteFile(fs, "/out/a.txt", []byte("a"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/sub/b.txt", []byte("b"), 0o644))

	require.NoError(t, m.EmptyRoot())

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// the root itself survives
	exists, err := afero.DirExists(fs, "/out")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestManager_EmptyRootWithoutRootConfigured(t *testing.T) {
	m, _ := newTestManager(t, Options{CompressFormat: "tar.gz"})
	require.NoError(t, m.EmptyRoot())
}

func TestManager_EmptyRootMissingDirectory(t *testing.T) {
	m, _ := newTestManager(t, Options{CompressFormat: "tar.gz", RelativePath: "/never-created"})
	require.NoError(t, m.EmptyRoot())
}

func TestManager_EmptyRootRefusesWorkingDirectory(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	for _, root := range []string{wd, filepath.Dir(wd)} {
		m, fs := newTestManager(t, Options{CompressFormat: "tar.gz", RelativePath: root})

		marker := filepath.Join(root, "marker.txt")
		require.NoError(t, afero.WriteFile(fs, marker, []byte("still here"), 0o644))

		require.NoError(t, m.EmptyRoot())

		exists, err := afero.Exists(fs, marker)
		require.NoError(t, err)
		assert.True(t, exists, "root %s containing the working directory must not be emptied", root)
	}
}
