package finisher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/domain/release"
	"github.com/oshokin/desktop-packager/internal/logger"
)

type windowsFinisher struct {
	params Params
}

// Prepare edits the version resource of the stub executable in place.
func (f *windowsFinisher) Prepare(ctx context.Context, targetDir string) error {
	args, err := f.resourceArgs()
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Patching version resource", "executable", platform.Windows.Stub())

	if err = f.params.Runner.Run(ctx, targetDir, f.params.ResourceEditor, args...); err != nil {
		return fmt.Errorf("edit version resource: %w", err)
	}

	return nil
}

// Finalize renames nw.exe to <ProductName>.exe.
func (f *windowsFinisher) Finalize(ctx context.Context, targetDir string) error {
	name := f.params.Manifest.Build.Win.ProductName + ".exe"

	logger.InfoKV(ctx, "Renaming executable", "name", name)

	return renameEntry(
		filepath.Join(targetDir, platform.Windows.Stub()),
		filepath.Join(targetDir, name),
	)
}

func (f *windowsFinisher) resourceArgs() ([]string, error) {
	win := f.params.Manifest.Build.Win

	productVersion, err := release.Normalize(win.ProductVersion)
	if err != nil {
		return nil, fmt.Errorf("product version: %w", err)
	}

	fileVersion, err := release.Normalize(win.FileVersion)
	if err != nil {
		return nil, fmt.Errorf("file version: %w", err)
	}

	args := []string{
		platform.Windows.Stub(),
		"--set-product-version", productVersion,
		"--set-file-version", fileVersion,
	}

	for _, pair := range win.StringTable() {
		args = append(args, "--set-version-string", pair[0], pair[1])
	}

	if win.Icon != "" {
		args = append(args, "--set-icon", resolve(f.params.ProjectDir, win.Icon))
	}

	return args, nil
}

// resolve makes path absolute against dir.
func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	abs, err := filepath.Abs(filepath.Join(dir, path))
	if err != nil {
		return filepath.Join(dir, path)
	}

	return abs
}
