package finisher

import (
	"context"
	"path/filepath"

	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/logger"
)

type linuxFinisher struct {
	params Params
}

// Prepare has nothing to patch on Linux.
func (f *linuxFinisher) Prepare(context.Context, string) error {
	return nil
}

// Finalize renames the nw executable to the manifest package name.
func (f *linuxFinisher) Finalize(ctx context.Context, targetDir string) error {
	name := f.params.Manifest.Name

	logger.InfoKV(ctx, "Renaming executable", "name", name)

	return renameEntry(
		filepath.Join(targetDir, platform.Linux.Stub()),
		filepath.Join(targetDir, name),
	)
}
