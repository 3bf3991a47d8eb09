package target

import (
	"context"
	"fmt"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/service/archive"
)

// ArchiveBuilder snapshots bundles into archives.
type ArchiveBuilder struct {
	tool *archive.Tool
}

// NewArchiveBuilder returns an ArchiveBuilder.
func NewArchiveBuilder(tool *archive.Tool) *ArchiveBuilder {
	return &ArchiveBuilder{tool: tool}
}

// Build writes targetDir.zip or targetDir.7z, replacing a previous one,
// and returns its path.
func (b *ArchiveBuilder) Build(ctx context.Context, targetDir string, kind config.TargetKind) (string, error) {
	var format archive.Format

	switch kind {
	case config.TargetZip:
		format = archive.Zip
	case config.Target7z:
		format = archive.SevenZip
	default:
		return "", fmt.Errorf("%w: %q is not an archive", config.ErrUnknownTarget, kind)
	}

	dest := targetDir + "." + string(format)
	if err := b.tool.Snapshot(ctx, targetDir, dest, format); err != nil {
		return "", err
	}

	return dest, nil
}
