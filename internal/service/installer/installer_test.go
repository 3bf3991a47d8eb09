package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/service/common/commontest"
)

func testManifest(t *testing.T) *config.Manifest {
	t.Helper()

	m, err := config.ParseManifest("package.json", []byte(`{
		"name": "demo",
		"version": "1.2.0",
		"build": {"win": {"productName": "Demo", "companyName": "ACME"}, "nsis": {"languages": ["English", "German"]}}
	}`))
	require.NoError(t, err)

	return m
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}
}

// TestNewMetadata normalizes the version and copies Windows metadata.
func TestNewMetadata(t *testing.T) {
	t.Parallel()

	meta, err := NewMetadata(testManifest(t), "1.2.0-beta.3", "out.exe")
	require.NoError(t, err)
	require.Equal(t, "1.2.0.0", meta.Version)
	require.Equal(t, "Demo", meta.ProductName)
	require.Equal(t, "ACME", meta.Company)
	require.Equal(t, "Demo.exe", meta.Executable)
	require.Equal(t, Compression, meta.Compression)
	require.Equal(t, []string{"English", "German"}, meta.Languages)
}

// TestNewMetadata_InvalidVersion rejects versions that cannot be normalized.
func TestNewMetadata_InvalidVersion(t *testing.T) {
	t.Parallel()

	_, err := NewMetadata(testManifest(t), "not-a-version", "out.exe")
	require.Error(t, err)
}

// TestDiff reports added, modified and removed files.
func TestDiff(t *testing.T) {
	t.Parallel()

	fromDir, toDir := t.TempDir(), t.TempDir()
	writeTree(t, fromDir, map[string]string{
		"same.txt":     "same",
		"changed.txt":  "old",
		"gone/old.txt": "bye",
	})
	writeTree(t, toDir, map[string]string{
		"same.txt":    "same",
		"changed.txt": "new",
		"lib/new.dll": "hello",
	})

	changes, err := Diff(fromDir, toDir)
	require.NoError(t, err)
	require.Equal(t, []string{"changed.txt", "lib/new.dll"}, changes.Updated)
	require.Equal(t, []string{"gone/old.txt"}, changes.Removed)
}

// TestNSISGenerator_Full ships the whole source tree.
func TestNSISGenerator_Full(t *testing.T) {
	t.Parallel()

	meta, err := NewMetadata(testManifest(t), "1.2.0", "demo-Setup.exe")
	require.NoError(t, err)

	script, err := NewNSISGenerator().Full(context.Background(), meta, "/build/demo")
	require.NoError(t, err)
	require.Contains(t, script, "Unicode true")
	require.Contains(t, script, "SetCompressor /SOLID lzma")
	require.Contains(t, script, `OutFile "demo-Setup.exe"`)
	require.Contains(t, script, `VIProductVersion "1.2.0.0"`)
	require.Contains(t, script, `File /r "/build/demo`+string(filepath.Separator)+`*"`)
	require.Contains(t, script, `!insertmacro MUI_LANGUAGE "German"`)
	require.Contains(t, script, `"$INSTDIR\Demo.exe"`)
}

// TestNSISGenerator_SelfExtracting unpacks a single archive.
func TestNSISGenerator_SelfExtracting(t *testing.T) {
	t.Parallel()

	meta, err := NewMetadata(testManifest(t), "1.2.0", "demo-Setup.exe")
	require.NoError(t, err)

	script, err := NewNSISGenerator().SelfExtracting(context.Background(), meta, "/build/demo.7z")
	require.NoError(t, err)
	require.Contains(t, script, `File "/build/demo.7z"`)
	require.Contains(t, script, `Nsis7z::ExtractWithDetails "$INSTDIR\demo.7z"`)
	require.Contains(t, script, `Delete "$INSTDIR\demo.7z"`)
}

// TestNSISGenerator_Differential ships changed files and deletes stale ones.
func TestNSISGenerator_Differential(t *testing.T) {
	t.Parallel()

	fromDir, toDir := t.TempDir(), t.TempDir()
	writeTree(t, fromDir, map[string]string{"a.txt": "1", "old/b.txt": "2"})
	writeTree(t, toDir, map[string]string{"a.txt": "1", "lib/c.dll": "3"})

	meta, err := NewMetadata(testManifest(t), "1.2.0", "demo-Update.exe")
	require.NoError(t, err)

	script, err := NewNSISGenerator().Differential(context.Background(), meta, fromDir, toDir)
	require.NoError(t, err)
	require.Contains(t, script, `SetOutPath "$INSTDIR\lib"`)
	require.Contains(t, script, `File "`+filepath.Join(toDir, "lib", "c.dll")+`"`)
	require.Contains(t, script, `Delete "$INSTDIR\old\b.txt"`)
	require.NotContains(t, script, "a.txt")
}

// TestCompiler_Compile runs makensis from the source dir and removes the script.
func TestCompiler_Compile(t *testing.T) {
	t.Parallel()

	runner := commontest.NewFakeRunner()
	runner.Handle(DefaultCompiler, commontest.MakeNSIS)

	sourceDir := t.TempDir()
	output := filepath.Join(t.TempDir(), "demo-Setup.exe")

	compiler := NewCompiler("", runner, true)
	require.NoError(t, compiler.Compile(context.Background(), sourceDir, "OutFile \""+output+"\"\n"))

	calls := runner.CallsTo(DefaultCompiler)
	require.Len(t, calls, 1)
	require.Equal(t, sourceDir, calls[0].Dir)
	require.Equal(t, []string{"/NOCD", "-V2"}, calls[0].Args[:2])
	require.True(t, strings.HasSuffix(calls[0].Args[2], ".nsi"))
	require.FileExists(t, output)
	require.NoFileExists(t, calls[0].Args[2])
}

// TestCompiler_CompileFailure still removes the script.
func TestCompiler_CompileFailure(t *testing.T) {
	t.Parallel()

	failure := errors.New("boom")
	runner := commontest.NewFakeRunner()
	runner.Handle(DefaultCompiler, func(commontest.Call) error { return failure })

	err := NewCompiler("", runner, false).Compile(context.Background(), t.TempDir(), "OutFile \"x.exe\"\n")
	require.ErrorIs(t, err, failure)

	calls := runner.CallsTo(DefaultCompiler)
	require.Len(t, calls, 1)
	require.Equal(t, "-V4", calls[0].Args[1])
	require.NoFileExists(t, calls[0].Args[2])
}
