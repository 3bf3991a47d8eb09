package target

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/repository/registry"
	"github.com/oshokin/desktop-packager/internal/service/archive"
	"github.com/oshokin/desktop-packager/internal/service/assembler"
	"github.com/oshokin/desktop-packager/internal/service/collector"
	"github.com/oshokin/desktop-packager/internal/service/common/commontest"
	"github.com/oshokin/desktop-packager/internal/service/finisher"
	"github.com/oshokin/desktop-packager/internal/service/installer"
)

const resourceEditor = "rcedit"

type fakeFetcher struct {
	runtimeDir string
	codecDir   string
}

func (f *fakeFetcher) FetchRuntime(context.Context, platform.Task, string, string) (string, error) {
	return f.runtimeDir, nil
}

func (f *fakeFetcher) FetchCodec(context.Context, platform.Task, string) (string, error) {
	return f.codecDir, nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
	}
}

func newProject(t *testing.T, build string) (string, *config.Manifest) {
	t.Helper()

	projectDir := t.TempDir()
	manifestText := `{"name": "demo", "version": "1.2.0", "main": "index.html", "build": ` + build + `}`
	writeFiles(t, projectDir, map[string]string{
		"package.json": manifestText,
		"index.html":   "<html>",
	})

	manifest, err := config.ParseManifest("package.json", []byte(manifestText))
	require.NoError(t, err)

	return projectDir, manifest
}

func newDirectoryBuilder(fetcher *fakeFetcher, runner *commontest.FakeRunner) *DirectoryBuilder {
	runner.Handle(archive.DefaultExecutable, commontest.SevenZip)

	return NewDirectoryBuilder(DirectoryParams{
		Runtime:        fetcher,
		Codec:          fetcher,
		Collector:      collector.New(nil),
		Assembler:      assembler.New(archive.NewTool("", runner)),
		Runner:         runner,
		ResourceEditor: resourceEditor,
	})
}

// TestFindRuntimeRoot looks through the wrapper directory left by extraction.
func TestFindRuntimeRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"nwjs-v0.14.7-win-x64/nw.exe": "MZ"})

	root, err := findRuntimeRoot(dir, platform.Windows)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "nwjs-v0.14.7-win-x64"), root)

	_, err = findRuntimeRoot(dir, platform.Linux)
	require.ErrorIs(t, err, errRuntimeRootNotFound)
}

// TestDirectoryBuilder_LinuxUnpacked copies the runtime, replaces the codec
// and renames the executable after the application files are copied.
func TestDirectoryBuilder_LinuxUnpacked(t *testing.T) {
	t.Parallel()

	projectDir, manifest := newProject(t, `{"ffmpegIntegration": true}`)
	fetcher := &fakeFetcher{runtimeDir: t.TempDir(), codecDir: t.TempDir()}
	writeFiles(t, fetcher.runtimeDir, map[string]string{
		"nwjs-v0.14.7-linux-x64/nw":               "ELF",
		"nwjs-v0.14.7-linux-x64/lib/libffmpeg.so": "stub",
	})
	writeFiles(t, fetcher.codecDir, map[string]string{"libffmpeg.so": "full"})

	runner := commontest.NewFakeRunner()
	job := &Job{
		Task:           platform.Task{Platform: platform.Linux, Arch: platform.X64},
		ProjectDir:     projectDir,
		Manifest:       manifest,
		RuntimeVersion: "0.14.7",
	}

	targetDir, err := newDirectoryBuilder(fetcher, runner).Build(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(projectDir, "dist", "demo-1.2.0-linux-x64"), targetDir)

	require.FileExists(t, filepath.Join(targetDir, "demo"))
	require.NoFileExists(t, filepath.Join(targetDir, "nw"))
	require.FileExists(t, filepath.Join(targetDir, "index.html"))

	codec, err := os.ReadFile(filepath.Join(targetDir, "lib", "libffmpeg.so"))
	require.NoError(t, err)
	require.Equal(t, "full", string(codec))

	embedded, err := os.ReadFile(filepath.Join(targetDir, "package.json"))
	require.NoError(t, err)
	require.NotContains(t, string(embedded), `"build"`)
	require.Empty(t, runner.Calls())
}

const macInfoPlist = `<?xml version="1.0" encoding="UTF-16"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleDisplayName</key>
	<string>nwjs</string>
	<key>CFBundleExecutable</key>
	<string>nwjs</string>
	<key>CFBundleIdentifier</key>
	<string>io.nwjs.nwjs</string>
	<key>CFBundleName</key>
	<string>nwjs</string>
	<key>CFBundleShortVersionString</key>
	<string>0.14.7</string>
	<key>CFBundleVersion</key>
	<string>2743.82</string>
</dict>
</plist>
`

func encodeUTF16(t *testing.T, text string) string {
	t.Helper()

	raw, err := finisher.Encoding{UTF16: true, BOM: true}.Encode(text)
	require.NoError(t, err)

	return string(raw)
}

func decodeFile(t *testing.T, path string) string {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	text, err := finisher.DetectEncoding(raw).Decode(raw)
	require.NoError(t, err)

	return text
}

// TestDirectoryBuilder_Mac patches the bundle, replaces the framework codec,
// copies files into app.nw and renames the bundle after the copy.
func TestDirectoryBuilder_Mac(t *testing.T) {
	t.Parallel()

	projectDir, manifest := newProject(t, `{
		"packed": true,
		"ffmpegIntegration": true,
		"mac": {"displayName": "Demo Display", "description": "Demo app", "copyright": "ACME"}
	}`)

	const (
		runtimeApp = "nwjs-v0.14.7-osx-x64/nwjs.app/Contents/"
		codecPath  = "Versions/55.0.2883.87/nwjs Framework.framework/Versions/A/libffmpeg.dylib"
	)

	localizedStrings := "CFBundleName = \"nwjs\";\nNSHumanReadableCopyright = \"old\";\nCustomKey = \"keep\";\n"

	fetcher := &fakeFetcher{runtimeDir: t.TempDir(), codecDir: t.TempDir()}
	writeFiles(t, fetcher.runtimeDir, map[string]string{
		runtimeApp + "Info.plist":                           encodeUTF16(t, macInfoPlist),
		runtimeApp + "Resources/en.lproj/InfoPlist.strings": encodeUTF16(t, localizedStrings),
		runtimeApp + "MacOS/nwjs":                           "MACHO",
		runtimeApp + codecPath:                              "stub",
	})
	writeFiles(t, fetcher.codecDir, map[string]string{"libffmpeg.dylib": "full"})

	runner := commontest.NewFakeRunner()
	job := &Job{
		Task:           platform.Task{Platform: platform.Mac, Arch: platform.X64},
		ProjectDir:     projectDir,
		Manifest:       manifest,
		RuntimeVersion: "0.14.7",
	}

	targetDir, err := newDirectoryBuilder(fetcher, runner).Build(context.Background(), job)
	require.NoError(t, err)

	bundle := filepath.Join(targetDir, "Demo Display.app")
	require.NoDirExists(t, filepath.Join(targetDir, "nwjs.app"))
	require.FileExists(t, filepath.Join(bundle, "Contents", "MacOS", "nwjs"))

	plistText := decodeFile(t, filepath.Join(bundle, "Contents", "Info.plist"))
	require.Contains(t, plistText, `encoding="UTF-16"`)

	var descriptor map[string]any
	_, err = plist.Unmarshal([]byte(strings.Replace(plistText, `encoding="UTF-16"`, `encoding="UTF-8"`, 1)), &descriptor)
	require.NoError(t, err)
	require.Equal(t, "io.github.nwjs.demo", descriptor["CFBundleIdentifier"])
	require.Equal(t, "demo", descriptor["CFBundleName"])
	require.Equal(t, "Demo Display", descriptor["CFBundleDisplayName"])
	require.Equal(t, "1.2.0", descriptor["CFBundleVersion"])
	require.Equal(t, "1.2.0", descriptor["CFBundleShortVersionString"])
	require.Equal(t, "nwjs", descriptor["CFBundleExecutable"])

	localized := decodeFile(t, filepath.Join(bundle, "Contents", "Resources", "en.lproj", "InfoPlist.strings"))
	require.Contains(t, localized, `CFBundleName = "demo";`)
	require.Contains(t, localized, `NSHumanReadableCopyright = "ACME";`)
	require.Contains(t, localized, `CustomKey = "keep";`)

	codec, err := os.ReadFile(filepath.Join(bundle, "Contents", filepath.FromSlash(codecPath)))
	require.NoError(t, err)
	require.Equal(t, "full", string(codec))

	appDir := filepath.Join(bundle, "Contents", "Resources", "app.nw")
	require.FileExists(t, filepath.Join(appDir, "index.html"))

	embedded, err := os.ReadFile(filepath.Join(appDir, "package.json"))
	require.NoError(t, err)
	require.Contains(t, string(embedded), `"name"`)
	require.NotContains(t, string(embedded), `"build"`)
	require.Empty(t, runner.Calls())
}

// TestDirectoryBuilder_ClearsStaleContents starts every build from an empty directory.
func TestDirectoryBuilder_ClearsStaleContents(t *testing.T) {
	t.Parallel()

	projectDir, manifest := newProject(t, `{}`)
	fetcher := &fakeFetcher{runtimeDir: t.TempDir()}
	writeFiles(t, fetcher.runtimeDir, map[string]string{"nw": "ELF"})

	job := &Job{
		Task:       platform.Task{Platform: platform.Linux, Arch: platform.X86},
		ProjectDir: projectDir,
		Manifest:   manifest,
	}
	writeFiles(t, job.TargetDir(), map[string]string{"stale.txt": "old"})

	targetDir, err := newDirectoryBuilder(fetcher, commontest.NewFakeRunner()).Build(context.Background(), job)
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(targetDir, "stale.txt"))
}

// TestDirectoryBuilder_WindowsPacked patches the stub before appending the payload.
func TestDirectoryBuilder_WindowsPacked(t *testing.T) {
	t.Parallel()

	projectDir, manifest := newProject(t, `{"packed": true, "win": {"productName": "Demo"}}`)
	fetcher := &fakeFetcher{runtimeDir: t.TempDir()}
	writeFiles(t, fetcher.runtimeDir, map[string]string{"nw.exe": "MZ\n"})

	runner := commontest.NewFakeRunner()
	job := &Job{
		Task:       platform.Task{Platform: platform.Windows, Arch: platform.X64},
		ProjectDir: projectDir,
		Manifest:   manifest,
	}

	targetDir, err := newDirectoryBuilder(fetcher, runner).Build(context.Background(), job)
	require.NoError(t, err)

	calls := runner.Calls()
	require.Equal(t, resourceEditor, calls[0].Name)
	require.Equal(t, "nw.exe", calls[0].Args[0])

	exe, err := os.ReadFile(filepath.Join(targetDir, "Demo.exe"))
	require.NoError(t, err)
	require.Equal(t, "MZ\nindex.html\npackage.json\n", string(exe))
	require.NoFileExists(t, filepath.Join(targetDir, "index.html"))
}

// TestDirectoryBuilder_UnknownPlatform fails before touching the filesystem.
func TestDirectoryBuilder_UnknownPlatform(t *testing.T) {
	t.Parallel()

	projectDir, manifest := newProject(t, `{}`)
	job := &Job{Task: platform.Task{Platform: platform.Platform(42)}, ProjectDir: projectDir, Manifest: manifest}

	_, err := newDirectoryBuilder(&fakeFetcher{}, commontest.NewFakeRunner()).Build(context.Background(), job)
	require.ErrorIs(t, err, platform.ErrUnknownPlatform)
}

// TestArchiveBuilder replaces a previous archive instead of merging into it.
func TestArchiveBuilder(t *testing.T) {
	t.Parallel()

	runner := commontest.NewFakeRunner()
	runner.Handle(archive.DefaultExecutable, commontest.SevenZip)

	targetDir := filepath.Join(t.TempDir(), "demo-1.2.0-win-x64")
	writeFiles(t, targetDir, map[string]string{"a.txt": "a"})
	writeFiles(t, filepath.Dir(targetDir), map[string]string{"demo-1.2.0-win-x64.zip": "stale\n"})

	dest, err := NewArchiveBuilder(archive.NewTool("", runner)).Build(context.Background(), targetDir, config.TargetZip)
	require.NoError(t, err)
	require.Equal(t, targetDir+".zip", dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "a.txt\n", string(data))

	_, err = NewArchiveBuilder(archive.NewTool("", runner)).Build(context.Background(), targetDir, config.TargetInstaller)
	require.ErrorIs(t, err, config.ErrUnknownTarget)
}

type installerFixture struct {
	projectDir string
	manifest   *config.Manifest
	runner     *commontest.FakeRunner
	builder    *InstallerBuilder
}

func newInstallerFixture(t *testing.T, version string, diffUpdaters bool) *installerFixture {
	t.Helper()

	projectDir := t.TempDir()
	build := `{"nsis": {"diffUpdaters": false}}`
	if diffUpdaters {
		build = `{"nsis": {"diffUpdaters": true}}`
	}

	manifest, err := config.ParseManifest("package.json",
		[]byte(`{"name": "demo", "version": "`+version+`", "build": `+build+`}`))
	require.NoError(t, err)

	runner := commontest.NewFakeRunner()
	runner.Handle(archive.DefaultExecutable, commontest.SevenZip)
	runner.Handle(installer.DefaultCompiler, commontest.MakeNSIS)

	return &installerFixture{
		projectDir: projectDir,
		manifest:   manifest,
		runner:     runner,
		builder: NewInstallerBuilder(InstallerParams{
			Archiver:  archive.NewTool("", runner),
			Generator: installer.NewNSISGenerator(),
			Compiler:  installer.NewCompiler("", runner, true),
		}),
	}
}

func (f *installerFixture) build(t *testing.T, task platform.Task, kind config.TargetKind) *Job {
	t.Helper()

	job := &Job{Task: task, ProjectDir: f.projectDir, Manifest: f.manifest}
	writeFiles(t, job.TargetDir(), map[string]string{"demo.exe": "MZ " + f.manifest.Version})

	require.NoError(t, f.builder.Build(context.Background(), job, job.TargetDir(), kind))

	return job
}

var winX64 = platform.Task{Platform: platform.Windows, Arch: platform.X64}

// TestInstallerBuilder_Full records one installer and no updaters.
func TestInstallerBuilder_Full(t *testing.T) {
	t.Parallel()

	f := newInstallerFixture(t, "1.2.0", true)
	job := f.build(t, winX64, config.TargetInstaller)

	outputDir := f.manifest.OutputDir(f.projectDir)
	setup := filepath.Join(outputDir, "demo-1.2.0-x64-Setup.exe")
	require.FileExists(t, setup)

	versions, err := registry.NewFileRepository(outputDir).Load(context.Background())
	require.NoError(t, err)

	entry, ok := versions.Entry("1.2.0")
	require.True(t, ok)
	require.Equal(t, filepath.Join(outputDir, "demo-1.2.0-win-"+registry.ArchPlaceholder), entry.Source)
	require.Equal(t, job.TargetDir(), entry.SourceFor("x64"))
	require.Equal(t, map[string]string{"x64": setup}, entry.Installers)
	require.Empty(t, entry.Updaters)
}

// TestInstallerBuilder_SelfExtracting ships a 7z snapshot of the bundle.
func TestInstallerBuilder_SelfExtracting(t *testing.T) {
	t.Parallel()

	f := newInstallerFixture(t, "1.2.0", false)
	job := f.build(t, winX64, config.TargetInstaller7z)

	require.FileExists(t, job.TargetDir()+".7z")

	setup, err := os.ReadFile(filepath.Join(f.manifest.OutputDir(f.projectDir), "demo-1.2.0-x64-Setup.exe"))
	require.NoError(t, err)
	require.Contains(t, string(setup), "Nsis7z::ExtractWithDetails")
}

// TestInstallerBuilder_Updaters builds updaters from every older version only.
func TestInstallerBuilder_Updaters(t *testing.T) {
	t.Parallel()

	projectDir := ""

	for _, version := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		f := newInstallerFixture(t, version, true)
		if projectDir == "" {
			projectDir = f.projectDir
		}

		f.projectDir = projectDir
		f.build(t, winX64, config.TargetInstaller)
	}

	outputDir := filepath.Join(projectDir, "dist")

	versions, err := registry.NewFileRepository(outputDir).Load(context.Background())
	require.NoError(t, err)

	entry, ok := versions.Entry("1.2.0")
	require.True(t, ok)
	require.Len(t, entry.Updaters, 2)
	require.Contains(t, entry.Updaters, "1.0.0")
	require.Contains(t, entry.Updaters, "1.1.0")
	require.NotContains(t, entry.Updaters, "1.2.0")
	require.FileExists(t, filepath.Join(outputDir, "demo-1.0.0-to-1.2.0-x64-Update.exe"))
}

// TestInstallerBuilder_UpdatersDisabled builds no updater.
func TestInstallerBuilder_UpdatersDisabled(t *testing.T) {
	t.Parallel()

	projectDir := ""

	for _, version := range []string{"1.0.0", "1.1.0"} {
		f := newInstallerFixture(t, version, false)
		if projectDir == "" {
			projectDir = f.projectDir
		}

		f.projectDir = projectDir
		f.build(t, winX64, config.TargetInstaller)
	}

	matches, err := filepath.Glob(filepath.Join(projectDir, "dist", "*-Update.exe"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

// TestInstallerBuilder_SkipsOtherPlatforms is a no-op outside Windows.
func TestInstallerBuilder_SkipsOtherPlatforms(t *testing.T) {
	t.Parallel()

	f := newInstallerFixture(t, "1.2.0", true)
	f.build(t, platform.Task{Platform: platform.Linux, Arch: platform.X64}, config.TargetInstaller)

	require.Empty(t, f.runner.Calls())

	entries, err := os.ReadDir(f.manifest.OutputDir(f.projectDir))
	require.NoError(t, err)

	for _, entry := range entries {
		require.False(t, strings.HasSuffix(entry.Name(), ".exe"))
		require.NotEqual(t, registry.Filename, entry.Name())
	}
}

// TestInstallerBuilder_SourceSharedByArchitectures records one source for
// both architectures and builds each updater from its own bundle.
func TestInstallerBuilder_SourceSharedByArchitectures(t *testing.T) {
	t.Parallel()

	winX86 := platform.Task{Platform: platform.Windows, Arch: platform.X86}
	projectDir := ""

	for _, version := range []string{"1.0.0", "1.1.0"} {
		f := newInstallerFixture(t, version, true)
		if projectDir == "" {
			projectDir = f.projectDir
		}

		f.projectDir = projectDir
		f.build(t, winX86, config.TargetInstaller)
		f.build(t, winX64, config.TargetInstaller)
	}

	outputDir := filepath.Join(projectDir, "dist")

	versions, err := registry.NewFileRepository(outputDir).Load(context.Background())
	require.NoError(t, err)

	first, ok := versions.Entry("1.0.0")
	require.True(t, ok)
	require.Equal(t, filepath.Join(outputDir, "demo-1.0.0-win-"+registry.ArchPlaceholder), first.Source)
	require.Len(t, first.Installers, 2)

	for _, arch := range []string{"x86", "x64"} {
		script, err := os.ReadFile(filepath.Join(outputDir, "demo-1.0.0-to-1.1.0-"+arch+"-Update.exe"))
		require.NoError(t, err)
		require.Contains(t, string(script), filepath.Join(outputDir, "demo-1.1.0-win-"+arch, "demo.exe"))
	}
}

// TestInstallerBuilder_UpdaterFromRecordedSource reads the older bundle from
// the recorded source instead of the output pattern.
func TestInstallerBuilder_UpdaterFromRecordedSource(t *testing.T) {
	t.Parallel()

	f := newInstallerFixture(t, "1.1.0", true)
	outputDir := f.manifest.OutputDir(f.projectDir)

	archived := filepath.Join(t.TempDir(), "archive", "demo-1.0.0-"+registry.ArchPlaceholder)
	writeFiles(t, strings.ReplaceAll(archived, registry.ArchPlaceholder, "x64"), map[string]string{
		"demo.exe": "MZ 1.0.0",
		"old.dll":  "gone in 1.1.0",
	})

	versions := registry.New()
	versions.AddVersion("1.0.0", archived)
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, registry.NewFileRepository(outputDir).Save(context.Background(), versions))

	f.build(t, winX64, config.TargetInstaller)

	script, err := os.ReadFile(filepath.Join(outputDir, "demo-1.0.0-to-1.1.0-x64-Update.exe"))
	require.NoError(t, err)
	require.Contains(t, string(script), `Delete "$INSTDIR\old.dll"`)
}

// TestInstallerBuilder_MissingOlderBundle skips the updater of a version
// whose bundle is gone and still records the new installer.
func TestInstallerBuilder_MissingOlderBundle(t *testing.T) {
	t.Parallel()

	f := newInstallerFixture(t, "1.1.0", true)
	outputDir := f.manifest.OutputDir(f.projectDir)

	versions := registry.New()
	versions.AddVersion("1.0.0", filepath.Join(outputDir, "demo-1.0.0-win-"+registry.ArchPlaceholder))
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, registry.NewFileRepository(outputDir).Save(context.Background(), versions))

	f.build(t, winX64, config.TargetInstaller)

	require.NoFileExists(t, filepath.Join(outputDir, "demo-1.0.0-to-1.1.0-x64-Update.exe"))

	saved, err := registry.NewFileRepository(outputDir).Load(context.Background())
	require.NoError(t, err)

	entry, ok := saved.Entry("1.1.0")
	require.True(t, ok)
	require.Len(t, entry.Installers, 1)
	require.Empty(t, entry.Updaters)
}
