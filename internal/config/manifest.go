package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/xeipuuv/gojsonschema"
)

// Runtime flavors.
const (
	FlavorNormal = "normal"
	FlavorSDK    = "sdk"
)

const (
	defaultOutput        = "./dist/"
	defaultOutputPattern = "${NAME}-${VERSION}-${PLATFORM}-${ARCH}"
	defaultRuntime       = "lts"
	defaultLanguage      = "English"
)

// errInvalidManifest wraps schema violations.
var errInvalidManifest = errors.New("invalid manifest")

// WinConfig holds Windows version-resource metadata.
type WinConfig struct {
	ProductName     string            `json:"productName"`
	CompanyName     string            `json:"companyName"`
	FileDescription string            `json:"fileDescription"`
	ProductVersion  string            `json:"productVersion"`
	FileVersion     string            `json:"fileVersion"`
	Copyright       string            `json:"copyright"`
	VersionStrings  map[string]string `json:"versionStrings"`
	Icon            string            `json:"icon"`
}

// MacConfig holds application bundle metadata.
type MacConfig struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Copyright   string `json:"copyright"`
	Icon        string `json:"icon"`
}

// InstallerConfig holds Windows installer settings.
type InstallerConfig struct {
	Icon             string   `json:"icon"`
	UnIcon           string   `json:"unIcon"`
	Languages        []string `json:"languages"`
	InstallDirectory string   `json:"installDirectory"`
	DiffUpdaters     bool     `json:"diffUpdaters"`
}

// BuildConfig is the build section of a project manifest with defaults
// applied. It is shared read-only between task pipelines.
type BuildConfig struct {
	RuntimeVersion       string                     `json:"nwVersion"`
	RuntimeFlavor        string                     `json:"nwFlavor"`
	Output               string                     `json:"output"`
	OutputPattern        string                     `json:"outputPattern"`
	Packed               bool                       `json:"packed"`
	RawTargets           []string                   `json:"targets"`
	Files                []string                   `json:"files"`
	Excludes             []string                   `json:"excludes"`
	AppID                string                     `json:"appId"`
	CodecIntegration     bool                       `json:"ffmpegIntegration"`
	StrippedProperties   []string                   `json:"strippedProperties"`
	OverriddenProperties map[string]json.RawMessage `json:"overriddenProperties"`
	Win                  WinConfig                  `json:"win"`
	Mac                  MacConfig                  `json:"mac"`
	Installer            InstallerConfig            `json:"nsis"`

	// Targets is RawTargets after validation.
	Targets []TargetKind `json:"-"`
}

// Manifest is a loaded project manifest.
type Manifest struct {
	// Filename is the manifest base name, e.g. package.json.
	Filename string
	// Name and Version identify the application.
	Name        string
	Version     string
	Description string
	// Build is the validated build configuration.
	Build *BuildConfig

	raw map[string]json.RawMessage
}

// LoadManifest reads, validates and decodes the manifest of the project in
// dir. Comments and trailing commas are tolerated.
func LoadManifest(dir string, settings *Settings) (*Manifest, error) {
	filename := settings.ManifestFilename()

	contents, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return ParseManifest(filename, contents)
}

// ParseManifest decodes manifest contents named filename.
func ParseManifest(filename string, contents []byte) (*Manifest, error) {
	data := jsonc.ToJSON(contents)

	if err := validateManifest(data); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	var head struct {
		Name        string       `json:"name"`
		Version     string       `json:"version"`
		Description string       `json:"description"`
		Build       *BuildConfig `json:"build"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	build := head.Build
	if build == nil {
		build = new(BuildConfig)
	}

	manifest := &Manifest{
		Filename:    filename,
		Name:        head.Name,
		Version:     head.Version,
		Description: head.Description,
		Build:       build,
		raw:         raw,
	}

	if err := manifest.applyDefaults(); err != nil {
		return nil, err
	}

	return manifest, nil
}

// Embedded returns the manifest shipped inside a bundle: top-level keys
// listed in StrippedProperties are dropped, overridden properties are
// merged in and every other value is copied verbatim.
func (m *Manifest) Embedded() ([]byte, error) {
	stripped := make(map[string]struct{}, len(m.Build.StrippedProperties))
	for _, key := range m.Build.StrippedProperties {
		stripped[key] = struct{}{}
	}

	embedded := make(map[string]json.RawMessage, len(m.raw))

	for key, value := range m.raw {
		if _, drop := stripped[key]; drop {
			continue
		}

		embedded[key] = value
	}

	for key, value := range m.Build.OverriddenProperties {
		embedded[key] = value
	}

	data, err := json.MarshalIndent(embedded, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode embedded manifest: %w", err)
	}

	return data, nil
}

// Raw returns the decoded top-level manifest value for key.
func (m *Manifest) Raw(key string) (json.RawMessage, bool) {
	value, ok := m.raw[key]

	return value, ok
}

// OutputDir returns the output directory resolved against projectDir.
func (m *Manifest) OutputDir(projectDir string) string {
	if filepath.IsAbs(m.Build.Output) {
		return filepath.Clean(m.Build.Output)
	}

	return filepath.Join(projectDir, m.Build.Output)
}

// TargetName expands the output pattern for one platform/arch bundle.
func (m *Manifest) TargetName(version, platform, arch string) string {
	return strings.NewReplacer(
		"${NAME}", m.Name,
		"${VERSION}", version,
		"${PLATFORM}", platform,
		"${ARCH}", arch,
	).Replace(m.Build.OutputPattern)
}

func (m *Manifest) applyDefaults() error {
	b := m.Build

	b.RuntimeVersion = orDefault(b.RuntimeVersion, defaultRuntime)
	b.RuntimeFlavor = orDefault(b.RuntimeFlavor, FlavorNormal)
	b.Output = orDefault(b.Output, defaultOutput)
	b.OutputPattern = orDefault(b.OutputPattern, defaultOutputPattern)
	b.AppID = orDefault(b.AppID, "io.github.nwjs."+m.Name)

	if len(b.Files) == 0 {
		b.Files = []string{"**/*"}
	}

	if b.StrippedProperties == nil {
		b.StrippedProperties = []string{"build"}
	}

	b.Targets = make([]TargetKind, 0, len(b.RawTargets))

	for _, token := range b.RawTargets {
		kind, err := ParseTarget(token)
		if err != nil {
			return err
		}

		b.Targets = append(b.Targets, kind)
	}

	b.Win.ProductName = orDefault(b.Win.ProductName, m.Name)
	b.Win.FileDescription = orDefault(b.Win.FileDescription, m.Description)
	b.Win.ProductVersion = orDefault(b.Win.ProductVersion, m.Version)
	b.Win.FileVersion = orDefault(b.Win.FileVersion, b.Win.ProductVersion)

	b.Mac.Name = orDefault(b.Mac.Name, m.Name)
	b.Mac.DisplayName = orDefault(b.Mac.DisplayName, b.Mac.Name)
	b.Mac.Version = orDefault(b.Mac.Version, m.Version)
	b.Mac.Description = orDefault(b.Mac.Description, m.Description)

	if len(b.Installer.Languages) == 0 {
		b.Installer.Languages = []string{defaultLanguage}
	}

	b.Installer.InstallDirectory = orDefault(b.Installer.InstallDirectory, `$LOCALAPPDATA\`+m.Name)

	return nil
}

// StringTable returns the Windows string table: the standard entries
// derived from WinConfig overlaid with VersionStrings, sorted by key.
func (w *WinConfig) StringTable() [][2]string {
	table := map[string]string{
		"ProductName":     w.ProductName,
		"CompanyName":     w.CompanyName,
		"FileDescription": w.FileDescription,
		"LegalCopyright":  w.Copyright,
	}

	for key, value := range w.VersionStrings {
		table[key] = value
	}

	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, [2]string{key, table[key]})
	}

	return pairs
}

func validateManifest(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("%w: %s", errInvalidManifest, strings.Join(problems, "; "))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
