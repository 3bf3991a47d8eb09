package finisher

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// stringsLine matches `Key = "value";` entries of a localized-strings file.
var stringsLine = regexp.MustCompile(`^(\s*"?)([A-Za-z0-9_.]+)("?\s*=\s*)"((?:[^"\\]|\\.)*)"(\s*;.*)$`)

// PatchStrings rewrites the values of known keys in a localized-strings
// file. Unknown keys, comments and the file encoding are preserved.
func PatchStrings(path string, values map[string]string) error {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	enc := DetectEncoding(raw)

	text, err := enc.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out, err := enc.Encode(ReplaceStrings(text, values))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return os.WriteFile(path, out, info.Mode().Perm())
}

// ReplaceStrings applies values to the entries of a strings document.
func ReplaceStrings(text string, values map[string]string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		body := strings.TrimSuffix(line, "\r")

		m := stringsLine.FindStringSubmatch(body)
		if m == nil {
			continue
		}

		value, ok := values[m[2]]
		if !ok {
			continue
		}

		replaced := m[1] + m[2] + m[3] + `"` + escapeStrings(value) + `"` + m[5]
		if len(body) != len(line) {
			replaced += "\r"
		}

		lines[i] = replaced
	}

	return strings.Join(lines, "\n")
}

func escapeStrings(value string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(value)
}
