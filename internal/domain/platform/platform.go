package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Platform is one of the three logical desktop platforms.
type Platform int

const (
	// Windows targets win32 executables.
	Windows Platform = iota + 1
	// Mac targets macOS application bundles.
	Mac
	// Linux targets ELF executables.
	Linux
)

// Arch is a CPU architecture of a runtime build.
type Arch int

const (
	// X86 is the 32-bit Intel architecture.
	X86 Arch = iota + 1
	// X64 is the 64-bit Intel architecture.
	X64
)

// ErrUnknownPlatform is returned for tokens outside the recognized aliases.
var ErrUnknownPlatform = errors.New("unknown platform")

// ErrUnknownArch is returned for unrecognized architecture tokens.
var ErrUnknownArch = errors.New("unknown architecture")

// All lists platforms in matrix order.
func All() []Platform {
	return []Platform{Windows, Mac, Linux}
}

// AllArches lists architectures in matrix order.
func AllArches() []Arch {
	return []Arch{X86, X64}
}

// Parse normalizes a platform token. Recognized aliases:
// win, win32, windows; mac, osx, darwin; linux.
func Parse(token string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "win", "win32", "windows":
		return Windows, nil
	case "mac", "osx", "darwin":
		return Mac, nil
	case "linux":
		return Linux, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlatform, token)
	}
}

// String returns the short token used in output names ("win", "mac", "linux").
func (p Platform) String() string {
	switch p {
	case Windows:
		return "win"
	case Mac:
		return "mac"
	case Linux:
		return "linux"
	default:
		return fmt.Sprintf("platform(%d)", int(p))
	}
}

// Valid reports whether p is one of the three logical platforms.
func (p Platform) Valid() bool {
	return p == Windows || p == Mac || p == Linux
}

// ParseArch normalizes an architecture token (x86, ia32, x64, amd64).
func ParseArch(token string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "x86", "ia32", "386":
		return X86, nil
	case "x64", "amd64":
		return X64, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownArch, token)
	}
}

// String returns "x86" or "x64".
func (a Arch) String() string {
	switch a {
	case X86:
		return "x86"
	case X64:
		return "x64"
	default:
		return fmt.Sprintf("arch(%d)", int(a))
	}
}

// Task is the atomic unit of work: one platform/architecture bundle.
type Task struct {
	Platform Platform
	Arch     Arch
}

// String renders the task as "<platform>-<arch>".
func (t Task) String() string {
	return t.Platform.String() + "-" + t.Arch.String()
}
