package installer

import (
	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/domain/release"
)

// Compression is the compressor every installer uses.
const Compression = "/SOLID lzma"

// Metadata describes an installer independent of its payload strategy.
type Metadata struct {
	AppName          string
	ProductName      string
	Company          string
	Description      string
	Version          string
	Copyright        string
	Icon             string
	UnIcon           string
	Compression      string
	Languages        []string
	InstallDirectory string
	Executable       string
	Output           string
}

// NewMetadata derives installer metadata from the manifest. Version is
// normalized to four numeric fields.
func NewMetadata(manifest *config.Manifest, version, output string) (*Metadata, error) {
	normalized, err := release.Normalize(version)
	if err != nil {
		return nil, err
	}

	win := manifest.Build.Win
	nsis := manifest.Build.Installer

	return &Metadata{
		AppName:          manifest.Name,
		ProductName:      win.ProductName,
		Company:          win.CompanyName,
		Description:      win.FileDescription,
		Version:          normalized,
		Copyright:        win.Copyright,
		Icon:             nsis.Icon,
		UnIcon:           nsis.UnIcon,
		Compression:      Compression,
		Languages:        append([]string(nil), nsis.Languages...),
		InstallDirectory: nsis.InstallDirectory,
		Executable:       win.ProductName + ".exe",
		Output:           output,
	}, nil
}
