package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/logger"
)

// genericExcludes are never shipped.
//
//nolint:gochecknoglobals // Constant pattern table.
var genericExcludes = []string{
	"**/node_modules/.bin/**",
	"**/node_modules/*/{example,examples,test,tests}/**",
	"**/{.DS_Store,.git,.hg,.svn,*.log}",
	"**/{.git,.hg,.svn}/**",
	"**/*.{swp,swo}",
	"**/.idea/**",
	"**/.vscode/**",
}

// DependencyInspector reports top-level dependency folders that are not
// needed at runtime.
type DependencyInspector interface {
	Excludable(ctx context.Context, projectDir string, manifest *config.Manifest) ([]string, error)
}

// Collector selects project files.
type Collector struct {
	inspector DependencyInspector
}

// New returns a Collector. A nil inspector excludes no dependencies.
func New(inspector DependencyInspector) *Collector {
	return &Collector{inspector: inspector}
}

// Collect returns the files under projectDir to ship, relative to
// projectDir. outputDir is excluded even when an inclusion pattern
// matches it.
func (c *Collector) Collect(ctx context.Context, projectDir, outputDir string, manifest *config.Manifest) ([]string, error) {
	excludes, err := c.excludes(ctx, projectDir, outputDir, manifest)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(projectDir)
	selected := make(map[string]struct{})

	for _, pattern := range manifest.Build.Files {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}

		for _, match := range matches {
			if excluded(match, excludes) {
				continue
			}

			selected[match] = struct{}{}
		}
	}

	files := make([]string, 0, len(selected))
	for file := range selected {
		files = append(files, file)
	}

	sort.Strings(files)

	logger.DebugKV(ctx, "Collected project files", "count", len(files), "excludes", len(excludes))

	return files, nil
}

func (c *Collector) excludes(ctx context.Context, projectDir, outputDir string, manifest *config.Manifest) ([]string, error) {
	patterns := make([]string, 0, len(manifest.Build.Excludes)+len(genericExcludes)+1)

	for _, pattern := range manifest.Build.Excludes {
		patterns = append(patterns, strings.TrimPrefix(filepath.ToSlash(pattern), "./"))
	}

	patterns = append(patterns, genericExcludes...)

	if c.inspector != nil {
		deps, err := c.inspector.Excludable(ctx, projectDir, manifest)
		if err != nil {
			return nil, fmt.Errorf("inspect dependencies: %w", err)
		}

		for _, dep := range deps {
			patterns = append(patterns, "node_modules/"+doublestar.EscapeMeta(dep)+"/**")
		}
	}

	if rel, ok := relativeInside(projectDir, outputDir); ok {
		patterns = append(patterns, doublestar.EscapeMeta(rel)+"/**")
	}

	return patterns, nil
}

// excluded reports whether path matches any exclusion pattern.
func excluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}

	return false
}

// relativeInside returns dir relative to root when dir lies inside root.
func relativeInside(root, dir string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}
