package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds the packager's top-level inputs. They come from command
// line flags, optionally seeded from a YAML settings file.
type Settings struct {
	// ProjectDir is the root of the application source tree.
	ProjectDir string `yaml:"project_dir"`
	// Win, Mac and Linux enable the respective platforms.
	Win   bool `yaml:"win"`
	Mac   bool `yaml:"mac"`
	Linux bool `yaml:"linux"`
	// X86 and X64 enable the respective architectures.
	X86 bool `yaml:"x86"`
	X64 bool `yaml:"x64"`
	// ManifestKind selects package.json or a Chrome app manifest.json.
	ManifestKind string `yaml:"manifest_kind"`
	// Mirror is the base URL runtime packages are downloaded from.
	Mirror string `yaml:"mirror"`
	// CodecMirror is the base URL codec packages are downloaded from.
	CodecMirror string `yaml:"codec_mirror"`
	// CacheDir keeps downloaded and extracted runtime packages.
	CacheDir string `yaml:"cache_dir"`
	// Concurrent runs tasks in parallel.
	Concurrent bool `yaml:"concurrent"`
	// MaxParallel caps concurrent tasks; zero means no cap.
	MaxParallel int `yaml:"max_parallel"`
	// Quiet hides informational logs and tool output.
	Quiet bool `yaml:"quiet"`
	// SevenZip is the archiver executable.
	SevenZip string `yaml:"seven_zip"`
	// ResourceEditor is the Windows resource editor executable.
	ResourceEditor string `yaml:"resource_editor"`
	// InstallerCompiler is the installer compiler executable.
	InstallerCompiler string `yaml:"installer_compiler"`
}

// Manifest kinds accepted by Settings.ManifestKind.
const (
	// ManifestPackage reads package.json.
	ManifestPackage = "package"
	// ManifestApp reads a Chrome app manifest.json.
	ManifestApp = "app"
)

const (
	// DefaultSettingsFilename is the default settings file name.
	DefaultSettingsFilename = "desktop-packager.yaml"

	// DefaultMirror serves runtime packages.
	DefaultMirror = "https://dl.nwjs.io/"

	// DefaultCodecMirror serves prebuilt codec packages.
	DefaultCodecMirror = "https://github.com/nwjs-ffmpeg-prebuilt/nwjs-ffmpeg-prebuilt/releases/download/"

	// DefaultSevenZip, DefaultResourceEditor and DefaultInstallerCompiler
	// are looked up on PATH.
	DefaultSevenZip          = "7z"
	DefaultResourceEditor    = "rcedit"
	DefaultInstallerCompiler = "makensis"

	// DefaultFilePermissions is the permission for settings files.
	DefaultFilePermissions = 0o600
)

var (
	// errSettingsAreNotSet is returned when nil settings are provided.
	errSettingsAreNotSet = errors.New("settings are not set")
	// errUnknownManifestKind is returned for an unsupported manifest selector.
	errUnknownManifestKind = errors.New("unknown manifest kind")
	// errNegativeParallelism is returned for a negative task cap.
	errNegativeParallelism = errors.New("max parallel tasks must not be negative")
)

// Load reads settings from path and validates them.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultSettingsFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&settings); err != nil {
		return nil, err
	}

	return &settings, nil
}

// Save writes settings to path.
func Save(path string, settings *Settings) error {
	if settings == nil {
		return errSettingsAreNotSet
	}

	if path == "" {
		path = DefaultSettingsFilename
	}

	if err := Validate(settings); err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks settings and fills defaults for empty fields.
func Validate(settings *Settings) error {
	if settings == nil {
		return errSettingsAreNotSet
	}

	if settings.ProjectDir == "" {
		settings.ProjectDir = "."
	}

	switch settings.ManifestKind {
	case "":
		settings.ManifestKind = ManifestPackage
	case ManifestPackage, ManifestApp:
	default:
		return fmt.Errorf("%w: %q", errUnknownManifestKind, settings.ManifestKind)
	}

	if settings.MaxParallel < 0 {
		return errNegativeParallelism
	}

	if settings.Mirror == "" {
		settings.Mirror = DefaultMirror
	}

	if settings.CodecMirror == "" {
		settings.CodecMirror = DefaultCodecMirror
	}

	for _, mirror := range []string{settings.Mirror, settings.CodecMirror} {
		if _, err := url.ParseRequestURI(mirror); err != nil {
			return fmt.Errorf("invalid mirror URL: %w", err)
		}
	}

	if settings.CacheDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = os.TempDir()
		}

		settings.CacheDir = filepath.Join(cacheDir, "desktop-packager")
	}

	if settings.SevenZip == "" {
		settings.SevenZip = DefaultSevenZip
	}

	if settings.ResourceEditor == "" {
		settings.ResourceEditor = DefaultResourceEditor
	}

	if settings.InstallerCompiler == "" {
		settings.InstallerCompiler = DefaultInstallerCompiler
	}

	return nil
}

// ManifestFilename returns the manifest file name for the configured kind.
func (s *Settings) ManifestFilename() string {
	if s.ManifestKind == ManifestApp {
		return "manifest.json"
	}

	return "package.json"
}
