package target

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/assembler"
	"github.com/oshokin/desktop-packager/internal/service/collector"
	"github.com/oshokin/desktop-packager/internal/service/common"
	"github.com/oshokin/desktop-packager/internal/service/finisher"
)

var (
	errRuntimeRootNotFound = errors.New("runtime root not found")
	errCodecNotFound       = errors.New("codec library not found")
)

// RuntimeFetcher returns the extracted runtime package for a task.
type RuntimeFetcher interface {
	FetchRuntime(ctx context.Context, task platform.Task, version, flavor string) (string, error)
}

// CodecFetcher returns the extracted codec package for a task.
type CodecFetcher interface {
	FetchCodec(ctx context.Context, task platform.Task, version string) (string, error)
}

// Job describes one bundle to build.
type Job struct {
	Task       platform.Task
	ProjectDir string
	Manifest   *config.Manifest
	// RuntimeVersion is the concrete runtime version, aliases already resolved.
	RuntimeVersion string
}

// TargetDir returns the canonical bundle directory of the job.
func (j *Job) TargetDir() string {
	return filepath.Join(
		j.Manifest.OutputDir(j.ProjectDir),
		j.Manifest.TargetName(j.Manifest.Version, j.Task.Platform.String(), j.Task.Arch.String()),
	)
}

// DirectoryParams are the collaborators of a DirectoryBuilder.
type DirectoryParams struct {
	Runtime        RuntimeFetcher
	Codec          CodecFetcher
	Collector      *collector.Collector
	Assembler      *assembler.Assembler
	Runner         common.Runner
	ResourceEditor string
	// Progress receives copy progress bars; nil disables them.
	Progress io.Writer
}

// DirectoryBuilder produces populated target directories.
type DirectoryBuilder struct {
	params DirectoryParams
}

// NewDirectoryBuilder returns a DirectoryBuilder.
func NewDirectoryBuilder(params DirectoryParams) *DirectoryBuilder {
	return &DirectoryBuilder{params: params}
}

// Build creates the bundle for job and returns its directory. The runtime
// is patched before application files are copied and renamed afterwards.
func (b *DirectoryBuilder) Build(ctx context.Context, job *Job) (string, error) {
	task := job.Task
	if !task.Platform.Valid() {
		return "", fmt.Errorf("%w: %s", platform.ErrUnknownPlatform, task.Platform)
	}

	targetDir := job.TargetDir()
	build := job.Manifest.Build

	logger.InfoKV(ctx, "Building directory target", "path", targetDir)

	runtimeDir, err := b.params.Runtime.FetchRuntime(ctx, task, job.RuntimeVersion, build.RuntimeFlavor)
	if err != nil {
		return "", fmt.Errorf("fetch runtime: %w", err)
	}

	warnIfBusy(ctx, task.Platform, job.Manifest)

	if err = common.ResetDir(targetDir); err != nil {
		return "", fmt.Errorf("reset target directory: %w", err)
	}

	runtimeRoot, err := findRuntimeRoot(runtimeDir, task.Platform)
	if err != nil {
		return "", err
	}

	if err = common.CopyTree(runtimeRoot, targetDir); err != nil {
		return "", fmt.Errorf("copy runtime: %w", err)
	}

	if build.CodecIntegration {
		if err = b.integrateCodec(ctx, job, targetDir); err != nil {
			return "", err
		}
	}

	if err = os.MkdirAll(task.Platform.ResourceRoot(targetDir), common.DirMode); err != nil {
		return "", fmt.Errorf("create resource root: %w", err)
	}

	fin, err := finisher.New(task.Platform, finisher.Params{
		ProjectDir:     job.ProjectDir,
		Manifest:       job.Manifest,
		Runner:         b.params.Runner,
		ResourceEditor: b.params.ResourceEditor,
	})
	if err != nil {
		return "", err
	}

	if err = fin.Prepare(ctx, targetDir); err != nil {
		return "", fmt.Errorf("prepare runtime: %w", err)
	}

	if err = b.copyFiles(ctx, job, targetDir); err != nil {
		return "", err
	}

	if err = fin.Finalize(ctx, targetDir); err != nil {
		return "", fmt.Errorf("finalize runtime: %w", err)
	}

	return targetDir, nil
}

func (b *DirectoryBuilder) copyFiles(ctx context.Context, job *Job, targetDir string) error {
	files, err := b.params.Collector.Collect(ctx, job.ProjectDir, job.Manifest.OutputDir(job.ProjectDir), job.Manifest)
	if err != nil {
		return fmt.Errorf("collect files: %w", err)
	}

	embedded, err := job.Manifest.Embedded()
	if err != nil {
		return err
	}

	err = b.params.Assembler.Assemble(ctx, &assembler.Input{
		Platform:     job.Task.Platform,
		ProjectDir:   job.ProjectDir,
		Files:        files,
		TargetDir:    targetDir,
		Packed:       job.Manifest.Build.Packed,
		ManifestName: job.Manifest.Filename,
		Manifest:     embedded,
		Progress:     b.params.Progress,
	})
	if err != nil {
		return fmt.Errorf("assemble files: %w", err)
	}

	return nil
}

// integrateCodec overwrites the stub codec library with the full one.
func (b *DirectoryBuilder) integrateCodec(ctx context.Context, job *Job, targetDir string) error {
	task := job.Task

	codecDir, err := b.params.Codec.FetchCodec(ctx, task, job.RuntimeVersion)
	if err != nil {
		return fmt.Errorf("fetch codec: %w", err)
	}

	sources, err := doublestar.Glob(os.DirFS(codecDir), "**/"+task.Platform.CodecLibrary(), doublestar.WithFilesOnly())
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		return fmt.Errorf("%w: %s in %s", errCodecNotFound, task.Platform.CodecLibrary(), codecDir)
	}

	stubs, err := doublestar.Glob(os.DirFS(targetDir), task.Platform.CodecGlob(), doublestar.WithFilesOnly())
	if err != nil {
		return err
	}

	if len(stubs) == 0 {
		logger.WarnKV(ctx, "Runtime ships no codec library to replace", "pattern", task.Platform.CodecGlob())
	}

	source := filepath.Join(codecDir, filepath.FromSlash(sources[0]))

	for _, stub := range stubs {
		logger.DebugKV(ctx, "Replacing codec library", "path", stub)

		if err = common.CopyFile(source, filepath.Join(targetDir, filepath.FromSlash(stub))); err != nil {
			return fmt.Errorf("replace codec library: %w", err)
		}
	}

	return nil
}

// findRuntimeRoot returns the directory holding the runtime stub, looking
// through single wrapper directories left by extraction.
func findRuntimeRoot(dir string, p platform.Platform) (string, error) {
	for {
		exists, err := common.Exists(filepath.Join(dir, p.Stub()))
		if err != nil {
			return "", err
		}

		if exists {
			return dir, nil
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}

		if len(entries) != 1 || !entries[0].IsDir() {
			return "", fmt.Errorf("%w: no %s in %s", errRuntimeRootNotFound, p.Stub(), dir)
		}

		dir = filepath.Join(dir, entries[0].Name())
	}
}

// entryName is the name the finalized bundle runs under.
func entryName(p platform.Platform, manifest *config.Manifest) string {
	switch p {
	case platform.Windows:
		return manifest.Build.Win.ProductName + ".exe"
	case platform.Mac:
		return manifest.Build.Mac.DisplayName
	default:
		return manifest.Name
	}
}

func warnIfBusy(ctx context.Context, p platform.Platform, manifest *config.Manifest) {
	name := entryName(p, manifest)

	running, err := common.IsProcessRunning(name)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)

		return
	}

	if running {
		logger.WarnKV(ctx, "Application is running, clearing its bundle may fail", "process", name)
	}
}
