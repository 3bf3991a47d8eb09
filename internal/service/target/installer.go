package target

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/repository/registry"
	"github.com/oshokin/desktop-packager/internal/service/archive"
	"github.com/oshokin/desktop-packager/internal/service/common"
	"github.com/oshokin/desktop-packager/internal/service/installer"
)

// ScriptGenerator renders installer scripts.
type ScriptGenerator interface {
	Full(ctx context.Context, meta *installer.Metadata, sourceDir string) (string, error)
	SelfExtracting(ctx context.Context, meta *installer.Metadata, archivePath string) (string, error)
	Differential(ctx context.Context, meta *installer.Metadata, fromDir, toDir string) (string, error)
}

// ScriptCompiler compiles an installer script against a source tree.
type ScriptCompiler interface {
	Compile(ctx context.Context, sourceDir, script string) error
}

// RepositoryFactory opens the version registry of an output directory.
type RepositoryFactory func(outputDir string) registry.Repository

// InstallerParams are the collaborators of an InstallerBuilder.
type InstallerParams struct {
	Archiver  *archive.Tool
	Generator ScriptGenerator
	Compiler  ScriptCompiler
	// Registry defaults to a file repository in the output directory.
	Registry RepositoryFactory
}

// InstallerBuilder produces Windows installers and differential updaters.
type InstallerBuilder struct {
	params InstallerParams
}

// NewInstallerBuilder returns an InstallerBuilder.
func NewInstallerBuilder(params InstallerParams) *InstallerBuilder {
	if params.Registry == nil {
		params.Registry = func(outputDir string) registry.Repository {
			return registry.NewFileRepository(outputDir)
		}
	}

	return &InstallerBuilder{params: params}
}

// Build compiles the installer of the bundle in targetDir. With
// differential updates enabled it also compiles one updater from every
// registered older version whose bundle for this architecture is still on
// disk; versions with a missing bundle are logged and get no updater, so
// the updaters built can be fewer than the older registered versions. The
// registry is saved once, after every executable is produced. Other
// platforms than Windows are skipped.
func (b *InstallerBuilder) Build(ctx context.Context, job *Job, targetDir string, kind config.TargetKind) error {
	if job.Task.Platform != platform.Windows {
		logger.DebugKV(ctx, "Installers are built for Windows only, skipping", "target", kind)

		return nil
	}

	if !kind.IsInstaller() {
		return fmt.Errorf("%w: %q is not an installer", config.ErrUnknownTarget, kind)
	}

	manifest := job.Manifest
	outputDir := manifest.OutputDir(job.ProjectDir)
	repository := b.params.Registry(outputDir)

	versions, err := repository.Load(ctx)
	if err != nil {
		return fmt.Errorf("load version registry: %w", err)
	}

	arch := job.Task.Arch.String()
	version := manifest.Version

	setupPath := filepath.Join(outputDir, fmt.Sprintf("%s-%s-%s-Setup.exe", manifest.Name, version, arch))
	if err = b.buildSetup(ctx, manifest, targetDir, setupPath, kind); err != nil {
		return err
	}

	source := filepath.Join(outputDir, manifest.TargetName(version, job.Task.Platform.String(), registry.ArchPlaceholder))
	versions.AddVersion(version, source)
	versions.SetInstaller(version, arch, setupPath)

	if manifest.Build.Installer.DiffUpdaters {
		if err = b.buildUpdaters(ctx, job, versions, targetDir); err != nil {
			return err
		}
	}

	if err = repository.Save(ctx, versions); err != nil {
		return fmt.Errorf("save version registry: %w", err)
	}

	return nil
}

func (b *InstallerBuilder) buildSetup(ctx context.Context, manifest *config.Manifest, targetDir, output string, kind config.TargetKind) error {
	meta, err := installer.NewMetadata(manifest, manifest.Version, output)
	if err != nil {
		return err
	}

	var script string

	if kind == config.TargetInstaller7z {
		archivePath := targetDir + "." + string(archive.SevenZip)
		if err = b.params.Archiver.Snapshot(ctx, targetDir, archivePath, archive.SevenZip); err != nil {
			return err
		}

		script, err = b.params.Generator.SelfExtracting(ctx, meta, archivePath)
	} else {
		script, err = b.params.Generator.Full(ctx, meta, targetDir)
	}

	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Building installer", "path", output)

	return b.params.Compiler.Compile(ctx, targetDir, script)
}

// buildUpdaters compiles updaters from the bundles of every strictly older
// registered version for the same architecture. The bundle comes from the
// version's recorded source, or from the output pattern when none is recorded.
func (b *InstallerBuilder) buildUpdaters(ctx context.Context, job *Job, versions *registry.Registry, targetDir string) error {
	manifest := job.Manifest
	outputDir := manifest.OutputDir(job.ProjectDir)
	arch := job.Task.Arch.String()
	version := manifest.Version

	older, err := versions.OlderThan(version)
	if err != nil {
		return err
	}

	for _, from := range older {
		fromDir := filepath.Join(outputDir, manifest.TargetName(from, job.Task.Platform.String(), arch))
		if entry, ok := versions.Entry(from); ok && entry.Source != "" {
			fromDir = entry.SourceFor(arch)
		}

		exists, err := common.Exists(fromDir)
		if err != nil {
			return err
		}

		if !exists {
			logger.WarnKV(ctx, "Bundle of an older version is missing, skipping its updater", "from", from, "path", fromDir)

			continue
		}

		output := filepath.Join(outputDir, fmt.Sprintf("%s-%s-to-%s-%s-Update.exe", manifest.Name, from, version, arch))

		meta, err := installer.NewMetadata(manifest, version, output)
		if err != nil {
			return err
		}

		script, err := b.params.Generator.Differential(ctx, meta, fromDir, targetDir)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Building updater", "from", from, "path", output)

		if err = b.params.Compiler.Compile(ctx, targetDir, script); err != nil {
			return err
		}

		versions.SetUpdater(from, version, arch, output)
	}

	return nil
}
