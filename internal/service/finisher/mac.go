package finisher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/logger"
)

const (
	infoPlist   = "Contents/Info.plist"
	bundleIcon  = "Contents/Resources/app.icns"
	stringsGlob = "**/*.lproj/InfoPlist.strings"

	iconMode os.FileMode = 0o644
)

type macFinisher struct {
	params Params
}

// Prepare patches the bundle descriptor, icon and localized strings.
func (f *macFinisher) Prepare(ctx context.Context, targetDir string) error {
	bundle := platform.BundleDir(targetDir)
	mac := f.params.Manifest.Build.Mac

	logger.InfoKV(ctx, "Patching bundle descriptor", "bundle", bundle)

	if err := PatchPlist(filepath.Join(bundle, filepath.FromSlash(infoPlist)), map[string]string{
		"CFBundleIdentifier":         f.params.Manifest.Build.AppID,
		"CFBundleName":               mac.Name,
		"CFBundleDisplayName":        mac.DisplayName,
		"CFBundleVersion":            mac.Version,
		"CFBundleShortVersionString": mac.Version,
	}); err != nil {
		return fmt.Errorf("patch property list: %w", err)
	}

	if mac.Icon != "" {
		if err := replaceIcon(resolve(f.params.ProjectDir, mac.Icon), filepath.Join(bundle, filepath.FromSlash(bundleIcon))); err != nil {
			return fmt.Errorf("replace icon: %w", err)
		}
	}

	return f.patchLocalizedStrings(ctx, bundle)
}

// Finalize renames nwjs.app to <DisplayName>.app.
func (f *macFinisher) Finalize(ctx context.Context, targetDir string) error {
	name := f.params.Manifest.Build.Mac.DisplayName + ".app"

	logger.InfoKV(ctx, "Renaming bundle", "name", name)

	return renameEntry(platform.BundleDir(targetDir), filepath.Join(targetDir, name))
}

func (f *macFinisher) patchLocalizedStrings(ctx context.Context, bundle string) error {
	mac := f.params.Manifest.Build.Mac
	values := map[string]string{
		"CFBundleName":               mac.Name,
		"CFBundleDisplayName":        mac.DisplayName,
		"CFBundleGetInfoString":      mac.Description,
		"NSContactsUsageDescription": mac.Description,
		"NSHumanReadableCopyright":   mac.Copyright,
	}

	files, err := doublestar.Glob(os.DirFS(bundle), stringsGlob, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("find localized strings: %w", err)
	}

	for _, file := range files {
		logger.DebugKV(ctx, "Patching localized strings", "file", file)

		if err = PatchStrings(filepath.Join(bundle, filepath.FromSlash(file)), values); err != nil {
			return fmt.Errorf("patch %s: %w", file, err)
		}
	}

	return nil
}

// replaceIcon atomically swaps the bundle icon for the custom one.
func replaceIcon(src, dst string) error {
	icon, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = icon.Close()
	}()

	// go-update moves the old target aside, so one must exist.
	if _, err = os.Stat(dst); os.IsNotExist(err) {
		if err = os.WriteFile(dst, nil, iconMode); err != nil {
			return err
		}
	}

	if err = goupdate.Apply(icon, goupdate.Options{
		TargetPath: dst,
		TargetMode: iconMode,
	}); err != nil {
		return err
	}

	// go-update may leave the replaced file next to the target.
	_ = os.Remove(filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old"))

	return nil
}
