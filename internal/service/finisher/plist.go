package finisher

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"howett.net/plist"
)

// PatchPlist sets string values in a property-list file, keeping its
// serialization format and text encoding.
func PatchPlist(path string, values map[string]string) error {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	enc := DetectEncoding(raw)

	text, err := enc.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	// Decoded text is UTF-8 and its declaration has to say so.
	declared, hasDeclaration := declaredEncoding(text)
	if enc.UTF16 && hasDeclaration {
		text = setDeclaredEncoding(text, "UTF-8")
	}

	var doc map[string]any

	format, err := plist.Unmarshal([]byte(text), &doc)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for key, value := range values {
		doc[key] = value
	}

	out, err := plist.MarshalIndent(doc, format, "\t")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", path, err)
	}

	if format != plist.BinaryFormat {
		serialized := string(out)
		if enc.UTF16 && hasDeclaration {
			serialized = setDeclaredEncoding(serialized, declared)
		}

		if out, err = enc.Encode(serialized); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return os.WriteFile(path, out, info.Mode().Perm())
}

// xmlDeclaration captures the encoding named by an XML declaration.
//
//nolint:gochecknoglobals // Compiled once.
var xmlDeclaration = regexp.MustCompile(`^(\s*<\?xml[^>]*?encoding=["'])([^"']*)(["'])`)

func declaredEncoding(text string) (string, bool) {
	match := xmlDeclaration.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}

	return match[2], true
}

func setDeclaredEncoding(text, name string) string {
	loc := xmlDeclaration.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}

	return text[:loc[4]] + name + text[loc[5]:]
}
