package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/archive"
	"github.com/oshokin/desktop-packager/internal/service/assembler"
	"github.com/oshokin/desktop-packager/internal/service/collector"
	"github.com/oshokin/desktop-packager/internal/service/common"
	"github.com/oshokin/desktop-packager/internal/service/download"
	"github.com/oshokin/desktop-packager/internal/service/installer"
	"github.com/oshokin/desktop-packager/internal/service/target"
)

// errSettingsAreNotSet is returned when Run gets no settings.
var errSettingsAreNotSet = errors.New("settings are not set")

// VersionResolver maps runtime version aliases to concrete versions.
type VersionResolver interface {
	ResolveVersion(ctx context.Context, version string) (string, error)
}

// Toolchain holds replaceable collaborators. Nil fields get the defaults
// derived from Settings.
type Toolchain struct {
	Runner    common.Runner
	Runtime   target.RuntimeFetcher
	Codec     target.CodecFetcher
	Resolver  VersionResolver
	Inspector collector.DependencyInspector
	Generator target.ScriptGenerator
}

// Options contains inputs for the build entry point.
type Options struct {
	// Settings are the validated top-level inputs.
	Settings *config.Settings
	// Toolchain overrides default collaborators; nil uses defaults.
	Toolchain *Toolchain
}

// Builder runs the pipeline of every task.
type Builder struct {
	directories *target.DirectoryBuilder
	archives    *target.ArchiveBuilder
	installers  *target.InstallerBuilder
	strategy    Strategy
}

// Run builds every enabled platform and architecture of the project.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "desktop-packager")

	if opts == nil || opts.Settings == nil {
		return errSettingsAreNotSet
	}

	settings := opts.Settings
	if err := config.Validate(settings); err != nil {
		return err
	}

	if settings.Quiet {
		logger.SetQuiet(true)
	}

	tasks, err := Plan(settings)
	if err != nil {
		return err
	}

	projectDir, err := filepath.Abs(settings.ProjectDir)
	if err != nil {
		return fmt.Errorf("resolve project directory: %w", err)
	}

	manifest, err := config.LoadManifest(projectDir, settings)
	if err != nil {
		return err
	}

	tools := withDefaults(opts.Toolchain, settings)

	runtimeVersion, err := tools.Resolver.ResolveVersion(ctx, manifest.Build.RuntimeVersion)
	if err != nil {
		return fmt.Errorf("resolve runtime version: %w", err)
	}

	configs := make([]TaskConfig, 0, len(tasks))
	for _, task := range tasks {
		configs = append(configs, NewTaskConfig(task, projectDir, manifest, runtimeVersion))
	}

	logger.InfoKV(ctx, "Building application",
		"name", manifest.Name,
		"version", manifest.Version,
		"runtime", runtimeVersion,
		"tasks", len(configs))

	if err = newBuilder(tools, settings).Execute(ctx, configs); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	logger.Info(ctx, "Build completed successfully")

	return nil
}

func withDefaults(custom *Toolchain, settings *config.Settings) *Toolchain {
	tools := new(Toolchain)
	if custom != nil {
		*tools = *custom
	}

	if tools.Runner == nil {
		tools.Runner = common.NewExecRunner(settings.Quiet)
	}

	if tools.Runtime == nil || tools.Codec == nil || tools.Resolver == nil {
		downloader := download.New(download.Options{
			Mirror:      settings.Mirror,
			CodecMirror: settings.CodecMirror,
			CacheDir:    settings.CacheDir,
			Archiver:    archive.NewTool(settings.SevenZip, tools.Runner),
			Progress:    progressOutput(settings),
		})

		if tools.Runtime == nil {
			tools.Runtime = downloader
		}

		if tools.Codec == nil {
			tools.Codec = downloader
		}

		if tools.Resolver == nil {
			tools.Resolver = downloader
		}
	}

	if tools.Inspector == nil {
		tools.Inspector = collector.NewModulesInspector()
	}

	if tools.Generator == nil {
		tools.Generator = installer.NewNSISGenerator()
	}

	return tools
}

func newBuilder(tools *Toolchain, settings *config.Settings) *Builder {
	archiver := archive.NewTool(settings.SevenZip, tools.Runner)

	strategy := Sequential
	if settings.Concurrent {
		strategy = Concurrent(settings.MaxParallel)
	}

	return &Builder{
		directories: target.NewDirectoryBuilder(target.DirectoryParams{
			Runtime:        tools.Runtime,
			Codec:          tools.Codec,
			Collector:      collector.New(tools.Inspector),
			Assembler:      assembler.New(archiver),
			Runner:         tools.Runner,
			ResourceEditor: settings.ResourceEditor,
			Progress:       progressOutput(settings),
		}),
		archives: target.NewArchiveBuilder(archiver),
		installers: target.NewInstallerBuilder(target.InstallerParams{
			Archiver:  archiver,
			Generator: tools.Generator,
			Compiler:  installer.NewCompiler(settings.InstallerCompiler, tools.Runner, settings.Quiet),
		}),
		strategy: strategy,
	}
}

// progressOutput returns where progress bars are drawn. Interleaved bars
// of parallel tasks are unreadable, so concurrent builds draw none.
func progressOutput(settings *config.Settings) io.Writer {
	if settings.Quiet || settings.Concurrent {
		return nil
	}

	return os.Stderr
}

// Execute runs the pipeline of every task with the builder's strategy.
func (b *Builder) Execute(ctx context.Context, configs []TaskConfig) error {
	return b.strategy(ctx, configs, b.runTask)
}

// runTask builds the bundle of one task and then every requested target
// derived from it.
func (b *Builder) runTask(ctx context.Context, cfg TaskConfig) error {
	ctx = logger.WithKV(ctx, "task", cfg.task.String())

	job := &target.Job{
		Task:           cfg.task,
		ProjectDir:     cfg.projectDir,
		Manifest:       cfg.manifest,
		RuntimeVersion: cfg.runtimeVersion,
	}

	targetDir, err := b.directories.Build(ctx, job)
	if err != nil {
		return err
	}

	for _, kind := range cfg.manifest.Build.Targets {
		if kind.IsInstaller() {
			err = b.installers.Build(ctx, job, targetDir, kind)
		} else {
			_, err = b.archives.Build(ctx, targetDir, kind)
		}

		if err != nil {
			return fmt.Errorf("build %s target: %w", kind, err)
		}
	}

	logger.InfoKV(ctx, "Task completed", "path", targetDir)

	return nil
}
