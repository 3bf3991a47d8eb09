package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oshokin/desktop-packager/internal/config"
)

const modulesDir = "node_modules"

// ModulesInspector walks a flat node_modules tree from the manifest's
// runtime dependencies. Every top-level folder not reached is excludable.
type ModulesInspector struct{}

// NewModulesInspector returns the default DependencyInspector.
func NewModulesInspector() *ModulesInspector {
	return &ModulesInspector{}
}

type packageDeps struct {
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

func (p packageDeps) names() []string {
	names := make([]string, 0, len(p.Dependencies)+len(p.OptionalDependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}

	for name := range p.OptionalDependencies {
		names = append(names, name)
	}

	return names
}

// Excludable implements DependencyInspector.
func (i *ModulesInspector) Excludable(_ context.Context, projectDir string, manifest *config.Manifest) ([]string, error) {
	installed, err := installedModules(filepath.Join(projectDir, modulesDir))
	if err != nil {
		return nil, err
	}

	if len(installed) == 0 {
		return nil, nil
	}

	var root packageDeps

	for key, target := range map[string]*map[string]string{
		"dependencies":         &root.Dependencies,
		"optionalDependencies": &root.OptionalDependencies,
	} {
		if raw, ok := manifest.Raw(key); ok {
			if err := json.Unmarshal(raw, target); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
	}

	reached := make(map[string]struct{})
	queue := root.names()

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if _, seen := reached[name]; seen {
			continue
		}

		reached[name] = struct{}{}

		deps, err := readPackageDeps(filepath.Join(projectDir, modulesDir, filepath.FromSlash(name), "package.json"))
		if err != nil {
			return nil, err
		}

		queue = append(queue, deps.names()...)
	}

	var excludable []string

	for _, name := range installed {
		if _, ok := reached[name]; !ok {
			excludable = append(excludable, name)
		}
	}

	return excludable, nil
}

// installedModules lists top-level package folders, expanding @scope dirs.
func installedModules(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string

	for _, entry := range entries {
		name := entry.Name()

		switch {
		case strings.HasPrefix(name, "."):
			continue
		case strings.HasPrefix(name, "@"):
			scoped, err := os.ReadDir(filepath.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("read scope %s: %w", name, err)
			}

			for _, pkg := range scoped {
				names = append(names, name+"/"+pkg.Name())
			}
		default:
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}

// readPackageDeps returns the dependencies of an installed package; a
// missing package yields none.
func readPackageDeps(path string) (packageDeps, error) {
	var deps packageDeps

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return deps, nil
		}

		return deps, err
	}

	if err = json.Unmarshal(contents, &deps); err != nil {
		return deps, fmt.Errorf("decode %s: %w", path, err)
	}

	return deps, nil
}
