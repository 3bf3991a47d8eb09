package finisher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectEncoding covers byte order marks and the UTF-16 "CF" heuristic.
func TestDetectEncoding(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  []byte
		want Encoding
	}{
		{"plain utf-8", []byte("<key>CFBundleName</key>"), Encoding{}},
		{"utf-8 bom", []byte("\xEF\xBB\xBFkey"), Encoding{BOM: true}},
		{"utf-16le bom", []byte{0xFF, 0xFE, 'a', 0}, Encoding{UTF16: true, BOM: true}},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0, 'a'}, Encoding{UTF16: true, BigEndian: true, BOM: true}},
		{"utf-16le without bom", []byte{'<', 0, 'C', 0, 'F', 0, 'B', 0}, Encoding{UTF16: true}},
		{"no cf prefix", []byte{'N', 0, 'S', 0}, Encoding{}},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, DetectEncoding(tc.raw), tc.name)
	}
}

// TestEncoding_Roundtrip re-encodes text into the detected encoding byte for byte.
func TestEncoding_Roundtrip(t *testing.T) {
	t.Parallel()

	for _, enc := range []Encoding{
		{},
		{BOM: true},
		{UTF16: true},
		{UTF16: true, BOM: true},
		{UTF16: true, BigEndian: true, BOM: true},
	} {
		raw, err := enc.Encode(`CFBundleName = "Привет";`)
		require.NoError(t, err, enc.String())

		require.Equal(t, enc, DetectEncoding(raw), enc.String())

		text, err := enc.Decode(raw)
		require.NoError(t, err, enc.String())
		require.Equal(t, `CFBundleName = "Привет";`, text, enc.String())
	}
}
