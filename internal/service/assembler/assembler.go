package assembler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/archive"
	"github.com/oshokin/desktop-packager/internal/service/common"
)

const manifestMode os.FileMode = 0o644

// Input describes one assembly.
type Input struct {
	// Platform of the bundle.
	Platform platform.Platform
	// ProjectDir is the source of Files.
	ProjectDir string
	// Files are slash-separated paths relative to ProjectDir.
	Files []string
	// TargetDir is the bundle root.
	TargetDir string
	// Packed selects the packed layout.
	Packed bool
	// ManifestName is the embedded manifest file name.
	ManifestName string
	// Manifest is the filtered manifest written into the bundle.
	Manifest []byte
	// Progress receives a copy progress bar; nil disables it.
	Progress io.Writer
}

// Assembler copies or packs application files.
type Assembler struct {
	archiver *archive.Tool
}

// New returns an Assembler compressing payloads with archiver.
func New(archiver *archive.Tool) *Assembler {
	return &Assembler{archiver: archiver}
}

// Assemble places in.Files into the bundle.
func (a *Assembler) Assemble(ctx context.Context, in *Input) error {
	if !in.Packed || in.Platform == platform.Mac {
		if !in.Platform.Valid() {
			return fmt.Errorf("%w: %s", platform.ErrUnknownPlatform, in.Platform)
		}

		return a.copyLoose(ctx, in, in.Platform.ResourceRoot(in.TargetDir))
	}

	switch in.Platform {
	case platform.Windows, platform.Linux:
		return a.appendPayload(ctx, in)
	default:
		return fmt.Errorf("%w: %s", platform.ErrUnknownPlatform, in.Platform)
	}
}

// copyLoose copies every file into root and writes the manifest over the
// project's own copy.
func (a *Assembler) copyLoose(ctx context.Context, in *Input, root string) error {
	logger.InfoKV(ctx, "Copying application files", "count", len(in.Files), "root", root)

	bar := newProgress(in.Progress, len(in.Files))

	for _, file := range in.Files {
		if file == in.ManifestName {
			_ = bar.Add(1)

			continue
		}

		src := filepath.Join(in.ProjectDir, filepath.FromSlash(file))
		dst := filepath.Join(root, filepath.FromSlash(file))

		if err := common.CopyFile(src, dst); err != nil {
			return err
		}

		_ = bar.Add(1)
	}

	_ = bar.Finish()

	if err := os.MkdirAll(root, common.DirMode); err != nil {
		return err
	}

	return renameio.WriteFile(filepath.Join(root, in.ManifestName), in.Manifest, manifestMode)
}

// appendPayload compresses the files plus the manifest into a temporary
// zip and appends its bytes to the runtime executable.
func (a *Assembler) appendPayload(ctx context.Context, in *Input) error {
	executable, err := in.Platform.Executable(in.TargetDir)
	if err != nil {
		return err
	}

	stage, err := os.MkdirTemp("", "payload-")
	if err != nil {
		return err
	}

	defer func() {
		_ = os.RemoveAll(stage)
	}()

	payload := filepath.Join(stage, "payload.zip")

	files := make([]string, 0, len(in.Files))
	for _, file := range in.Files {
		if file != in.ManifestName {
			files = append(files, file)
		}
	}

	logger.InfoKV(ctx, "Packing application files", "count", len(files))

	if len(files) > 0 {
		if err = a.archiver.Compress(ctx, in.ProjectDir, files, payload, archive.Zip); err != nil {
			return fmt.Errorf("compress payload: %w", err)
		}
	}

	manifestDir := filepath.Join(stage, "manifest")
	if err = os.MkdirAll(manifestDir, common.DirMode); err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Join(manifestDir, in.ManifestName), in.Manifest, manifestMode); err != nil {
		return err
	}

	if err = a.archiver.Compress(ctx, manifestDir, []string{in.ManifestName}, payload, archive.Zip); err != nil {
		return fmt.Errorf("compress manifest: %w", err)
	}

	if err = appendFile(executable, payload); err != nil {
		return fmt.Errorf("append payload: %w", err)
	}

	return os.Remove(payload)
}

// appendFile writes the bytes of src after the end of dst.
func appendFile(dst, src string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

func newProgress(w io.Writer, total int) *progressbar.ProgressBar {
	if w == nil {
		return progressbar.DefaultSilent(int64(total))
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Copying"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
