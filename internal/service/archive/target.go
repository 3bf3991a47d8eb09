package archive

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/common"
)

// Snapshot compresses the whole contents of dir into dest. Any archive
// already at dest is deleted first, so the result never merges with a
// previous build.
func (t *Tool) Snapshot(ctx context.Context, dir, dest string, format Format) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove previous archive: %w", err)
	}

	files, err := common.ListFiles(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	logger.InfoKV(ctx, "Building archive", "format", format, "path", dest)

	return t.Compress(ctx, dir, files, dest, format)
}
