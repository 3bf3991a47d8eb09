package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Filename is the registry file name inside the output directory.
const Filename = "versions.nsis.json"

// fileMode is the permission of the registry file.
const fileMode os.FileMode = 0o644

// Repository defines persistence operations for the version registry.
type Repository interface {
	Load(ctx context.Context) (*Registry, error)
	Save(ctx context.Context, registry *Registry) error
}

// FileRepository persists the registry to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the registry file.
	path string
}

// NewFileRepository creates a repository for the registry inside outputDir.
func NewFileRepository(outputDir string) *FileRepository {
	return &FileRepository{
		path: filepath.Join(filepath.Clean(outputDir), Filename),
	}
}

// Path returns the registry file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the registry from disk. A missing file yields an empty registry.
func (r *FileRepository) Load(_ context.Context) (*Registry, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}

		return nil, fmt.Errorf("read version registry: %w", err)
	}

	entries := make(map[string]*Entry)
	if err = json.Unmarshal(contents, &entries); err != nil {
		return nil, fmt.Errorf("decode version registry: %w", err)
	}

	registry := New()

	for version, entry := range entries {
		if entry == nil {
			continue
		}

		stored := registry.AddVersion(version, entry.Source)

		for arch, path := range entry.Installers {
			stored.Installers[arch] = path
		}

		for from, byArch := range entry.Updaters {
			for arch, path := range byArch {
				registry.SetUpdater(from, version, arch, path)
			}
		}
	}

	return registry, nil
}

// Save writes the registry atomically, so an interrupted write leaves the
// previous file intact.
func (r *FileRepository) Save(_ context.Context, registry *Registry) error {
	data, err := json.MarshalIndent(registry.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode version registry: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	if err = renameio.WriteFile(r.path, data, fileMode); err != nil {
		return fmt.Errorf("write version registry: %w", err)
	}

	return nil
}
