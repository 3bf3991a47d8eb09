package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/common"
)

// Format is an archive format produced by Compress.
type Format string

const (
	// Zip produces a .zip archive.
	Zip Format = "zip"
	// SevenZip produces a .7z archive.
	SevenZip Format = "7z"
)

// DefaultExecutable is the archiver looked up on PATH.
const DefaultExecutable = "7z"

// ErrUnknownExtension is returned when extracting an unsupported archive.
var ErrUnknownExtension = errors.New("unknown archive extension")

// Tool drives the archiver.
type Tool struct {
	executable string
	runner     common.Runner
}

// NewTool returns a Tool invoking executable through runner.
func NewTool(executable string, runner common.Runner) *Tool {
	if executable == "" {
		executable = DefaultExecutable
	}

	return &Tool{
		executable: executable,
		runner:     runner,
	}
}

// Extract unpacks a .zip or .tar.gz archive into dest. The intermediate
// .tar produced while unwrapping gzip is removed afterwards.
func (t *Tool) Extract(ctx context.Context, archivePath, dest string) error {
	name := strings.ToLower(filepath.Base(archivePath))

	if err := os.MkdirAll(dest, common.DirMode); err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(name, ".zip"):
		return t.extract(ctx, archivePath, dest)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		if err := t.extract(ctx, archivePath, dest); err != nil {
			return err
		}

		tarPath := filepath.Join(dest, tarName(filepath.Base(archivePath)))

		if err := t.extract(ctx, tarPath, dest); err != nil {
			return err
		}

		if err := os.Remove(tarPath); err != nil {
			return fmt.Errorf("remove intermediate tar: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownExtension, archivePath)
	}
}

// Compress stores files, given relative to root, into dest. The member
// list goes through a list file so long file sets do not hit argument
// length limits, and the tool runs inside root so stored paths stay
// relative. An existing dest is updated, not replaced.
func (t *Tool) Compress(ctx context.Context, root string, files []string, dest string, format Format) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	listFile, err := os.CreateTemp("", "archive-list-*.txt")
	if err != nil {
		return fmt.Errorf("create list file: %w", err)
	}

	listPath := listFile.Name()

	defer func() {
		_ = os.Remove(listPath)
	}()

	for _, file := range files {
		if _, err = fmt.Fprintln(listFile, filepath.FromSlash(file)); err != nil {
			_ = listFile.Close()

			return fmt.Errorf("write list file: %w", err)
		}
	}

	if err = listFile.Close(); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Compressing files", "root", root, "count", len(files), "dest", dest)

	return t.runner.Run(ctx, root, t.executable, "a", "-t"+string(format), dest, "@"+listPath)
}

func (t *Tool) extract(ctx context.Context, archivePath, dest string) error {
	return t.runner.Run(ctx, "", t.executable, "x", archivePath, "-o"+dest, "-y")
}

// tarName derives the inner tar name 7z produces for a gzip archive.
func tarName(base string) string {
	lower := strings.ToLower(base)

	switch {
	case strings.HasSuffix(lower, ".tgz"):
		return base[:len(base)-len(".tgz")] + ".tar"
	default:
		return base[:len(base)-len(".gz")]
	}
}
