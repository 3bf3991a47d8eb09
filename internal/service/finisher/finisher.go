package finisher

import (
	"context"
	"fmt"
	"os"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/domain/platform"
	"github.com/oshokin/desktop-packager/internal/service/common"
)

// Finisher patches a runtime copy before application files are added and
// renames its entry point afterwards.
type Finisher interface {
	Prepare(ctx context.Context, targetDir string) error
	Finalize(ctx context.Context, targetDir string) error
}

// Params are the inputs shared by every finisher.
type Params struct {
	// ProjectDir resolves relative icon paths.
	ProjectDir string
	// Manifest supplies names, versions and platform metadata.
	Manifest *config.Manifest
	// Runner executes the resource editor.
	Runner common.Runner
	// ResourceEditor is the Windows resource editor executable.
	ResourceEditor string
}

// New returns the finisher for p.
//
//nolint:ireturn // Callers dispatch over the platform variants.
func New(p platform.Platform, params Params) (Finisher, error) {
	switch p {
	case platform.Windows:
		return &windowsFinisher{params: params}, nil
	case platform.Mac:
		return &macFinisher{params: params}, nil
	case platform.Linux:
		return &linuxFinisher{params: params}, nil
	default:
		return nil, fmt.Errorf("%w: %s", platform.ErrUnknownPlatform, p)
	}
}

// renameEntry renames from to to, replacing a leftover destination.
func renameEntry(from, to string) error {
	if from == to {
		return nil
	}

	if err := os.RemoveAll(to); err != nil {
		return err
	}

	return os.Rename(from, to)
}
