package config

import (
	"errors"
	"fmt"
	"strings"
)

// TargetKind is an artifact requested in addition to the directory bundle.
type TargetKind string

const (
	// TargetZip snapshots the bundle into a .zip archive.
	TargetZip TargetKind = "zip"
	// Target7z snapshots the bundle into a .7z archive.
	Target7z TargetKind = "7z"
	// TargetInstaller builds a full Windows installer.
	TargetInstaller TargetKind = "nsis"
	// TargetInstaller7z builds a self-extracting Windows installer.
	TargetInstaller7z TargetKind = "nsis7z"
)

// ErrUnknownTarget is returned for unrecognized target kinds.
var ErrUnknownTarget = errors.New("unknown target")

// ParseTarget normalizes a requested target kind.
func ParseTarget(token string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "zip":
		return TargetZip, nil
	case "7z":
		return Target7z, nil
	case "nsis", "installer":
		return TargetInstaller, nil
	case "nsis7z", "installer7z":
		return TargetInstaller7z, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, token)
	}
}

// IsInstaller reports whether the target produces a Windows installer.
func (k TargetKind) IsInstaller() bool {
	return k == TargetInstaller || k == TargetInstaller7z
}
