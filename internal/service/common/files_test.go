package common

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCopyTree_PreservesSymlinks copies files and recreates links without following them.
func TestCopyTree_PreservesSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}

	src := t.TempDir()
	dst := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(src, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib", "a.so"), []byte("a"), 0o755))
	require.NoError(t, os.Symlink("a.so", filepath.Join(src, "lib", "b.so")))

	require.NoError(t, CopyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "lib", "a.so"))
	require.NoError(t, err)
	require.Equal(t, "a", string(data))

	link, err := os.Readlink(filepath.Join(dst, "lib", "b.so"))
	require.NoError(t, err)
	require.Equal(t, "a.so", link)
}

// TestResetDir clears stale contents.
func TestResetDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "target")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("x"), 0o600))

	require.NoError(t, ResetDir(dir))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	require.Empty(t, files)
}

// TestListFiles_Sorted returns relative slash paths in order.
func TestListFiles_Sorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b", "c.txt"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o600))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b/c.txt"}, files)
}

// TestIsProcessRunning_Unknown reports false for a name no process uses.
func TestIsProcessRunning_Unknown(t *testing.T) {
	t.Parallel()

	running, err := IsProcessRunning("no-such-process-name-for-tests.exe")
	require.NoError(t, err)
	require.False(t, running)
}
