package release

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
)

// numericFields is the number of fields in a Windows resource version.
const numericFields = 4

// ErrInvalidVersion is returned for versions that cannot be normalized or ordered.
var ErrInvalidVersion = errors.New("invalid version")

// Normalize converts a semantic version into the N.N.N.N form.
// Pre-release and build metadata are dropped, missing fields are padded
// with zeroes and extra fields are truncated: "1.2.3-beta.1" gives "1.2.3.0".
func Normalize(version string) (string, error) {
	core := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}

	if core == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}

	parts := strings.Split(core, ".")
	fields := make([]string, numericFields)

	for i := range fields {
		fields[i] = "0"

		if i >= len(parts) {
			continue
		}

		n, err := strconv.ParseUint(parts[i], 10, 16)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInvalidVersion, version, err)
		}

		fields[i] = strconv.FormatUint(n, 10)
	}

	return strings.Join(fields, "."), nil
}

// Parse reads a semantic version, tolerating a leading "v" and missing
// minor or patch fields.
func Parse(version string) (semver.Version, error) {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, version, err)
	}

	return v, nil
}

// Compare orders two versions per semantic-versioning precedence rules.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}

	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}

	return va.Compare(vb), nil
}
