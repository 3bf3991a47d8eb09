package finisher

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Encoding describes how a text resource is stored on disk.
type Encoding struct {
	// UTF16 is set for UTF-16 files; otherwise the file is UTF-8.
	UTF16 bool
	// BigEndian selects UTF-16BE over UTF-16LE.
	BigEndian bool
	// BOM records a leading byte order mark.
	BOM bool
}

//nolint:gochecknoglobals // Constant byte patterns.
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	// utf16CF is "CF" spelled in UTF-16LE. Every key of a bundle property
	// list starts with that prefix, so its presence identifies UTF-16 text.
	utf16CF = []byte{'C', 0, 'F', 0}
)

// DetectEncoding inspects raw bytes. A byte order mark wins; otherwise the
// data is UTF-16LE when it contains the UTF-16 spelling of "CF", and UTF-8
// in every other case.
func DetectEncoding(raw []byte) Encoding {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return Encoding{BOM: true}
	case bytes.HasPrefix(raw, bomUTF16LE):
		return Encoding{UTF16: true, BOM: true}
	case bytes.HasPrefix(raw, bomUTF16BE):
		return Encoding{UTF16: true, BigEndian: true, BOM: true}
	case bytes.Contains(raw, utf16CF):
		return Encoding{UTF16: true}
	default:
		return Encoding{}
	}
}

// Decode converts raw bytes in encoding e into a UTF-8 string.
func (e Encoding) Decode(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, e.bom())

	if !e.UTF16 {
		return string(raw), nil
	}

	decoded, err := e.codec().NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode utf-16: %w", err)
	}

	return string(decoded), nil
}

// Encode converts text back into encoding e, restoring the byte order mark.
func (e Encoding) Encode(text string) ([]byte, error) {
	body := []byte(text)

	if e.UTF16 {
		encoded, err := e.codec().NewEncoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("encode utf-16: %w", err)
		}

		body = encoded
	}

	return append(append([]byte(nil), e.bom()...), body...), nil
}

// String names the encoding for logs.
func (e Encoding) String() string {
	switch {
	case e.UTF16 && e.BigEndian:
		return "utf-16be"
	case e.UTF16:
		return "utf-16le"
	default:
		return "utf-8"
	}
}

func (e Encoding) bom() []byte {
	if !e.BOM {
		return nil
	}

	switch {
	case e.UTF16 && e.BigEndian:
		return bomUTF16BE
	case e.UTF16:
		return bomUTF16LE
	default:
		return bomUTF8
	}
}

//nolint:ireturn // encoding.Encoding is the x/text abstraction.
func (e Encoding) codec() encoding.Encoding {
	endianness := unicode.LittleEndian
	if e.BigEndian {
		endianness = unicode.BigEndian
	}

	return unicode.UTF16(endianness, unicode.IgnoreBOM)
}
