package registry

import (
	"sort"
	"strings"

	"github.com/oshokin/desktop-packager/internal/domain/release"
)

// ArchPlaceholder stands for the architecture in a recorded source path.
const ArchPlaceholder = "${ARCH}"

// Entry describes one built version.
type Entry struct {
	// Source is the target directory the version was built from, with the
	// architecture left as ArchPlaceholder. It is shared by every arch.
	Source string `json:"source"`
	// Installers maps architecture to installer path.
	Installers map[string]string `json:"installers"`
	// Updaters maps a prior version to architecture to updater path.
	Updaters map[string]map[string]string `json:"updaters"`
}

// SourceFor returns the target directory of the version built for arch.
func (e *Entry) SourceFor(arch string) string {
	return strings.ReplaceAll(e.Source, ArchPlaceholder, arch)
}

// Registry is the in-memory form of the ledger, keyed by version string.
type Registry struct {
	entries map[string]*Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// AddVersion records version with its source directory, keeping any
// installers and updaters already registered for it.
func (r *Registry) AddVersion(version, source string) *Entry {
	entry, ok := r.entries[version]
	if !ok {
		entry = &Entry{
			Installers: make(map[string]string),
			Updaters:   make(map[string]map[string]string),
		}
		r.entries[version] = entry
	}

	entry.Source = source

	return entry
}

// SetInstaller records the installer built for version and arch.
func (r *Registry) SetInstaller(version, arch, path string) {
	entry := r.ensure(version)
	entry.Installers[arch] = path
}

// SetUpdater records the updater from an older version to version for arch.
func (r *Registry) SetUpdater(from, version, arch, path string) {
	entry := r.ensure(version)

	byArch, ok := entry.Updaters[from]
	if !ok {
		byArch = make(map[string]string)
		entry.Updaters[from] = byArch
	}

	byArch[arch] = path
}

// Entry returns the entry recorded for version.
func (r *Registry) Entry(version string) (*Entry, bool) {
	entry, ok := r.entries[version]

	return entry, ok
}

// Len returns the number of recorded versions.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Versions returns every recorded version in ascending semantic order.
// Versions that do not parse are ordered lexically after the valid ones.
func (r *Registry) Versions() []string {
	versions := make([]string, 0, len(r.entries))
	for version := range r.entries {
		versions = append(versions, version)
	}

	sort.SliceStable(versions, func(i, j int) bool {
		cmp, err := release.Compare(versions[i], versions[j])
		if err != nil {
			return versions[i] < versions[j]
		}

		return cmp < 0
	})

	return versions
}

// OlderThan returns the recorded versions strictly less than version, in
// ascending order.
func (r *Registry) OlderThan(version string) ([]string, error) {
	current, err := release.Parse(version)
	if err != nil {
		return nil, err
	}

	var older []string

	for _, candidate := range r.Versions() {
		parsed, err := release.Parse(candidate)
		if err != nil {
			return nil, err
		}

		if parsed.LT(current) {
			older = append(older, candidate)
		}
	}

	return older, nil
}

func (r *Registry) ensure(version string) *Entry {
	if entry, ok := r.entries[version]; ok {
		return entry
	}

	return r.AddVersion(version, "")
}
