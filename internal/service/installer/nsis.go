package installer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"
)

// NSISGenerator renders installer scripts for makensis.
type NSISGenerator struct{}

// NewNSISGenerator returns the default script generator.
func NewNSISGenerator() *NSISGenerator {
	return &NSISGenerator{}
}

type fileEntry struct {
	Source string
	Dir    string
}

type scriptData struct {
	*Metadata

	SourceDir   string
	Archive     string
	ArchiveName string
	Updated     []fileEntry
	Removed     []string
}

const scriptHeader = `Unicode true
SetCompressor {{ .Compression }}

!include "MUI2.nsh"

Name "{{ .ProductName }}"
OutFile "{{ .Output }}"
InstallDir "{{ .InstallDirectory }}"
RequestExecutionLevel user

VIProductVersion "{{ .Version }}"
VIAddVersionKey /LANG=0 "ProductName" "{{ .ProductName }}"
VIAddVersionKey /LANG=0 "CompanyName" "{{ .Company }}"
VIAddVersionKey /LANG=0 "FileDescription" "{{ .Description }}"
VIAddVersionKey /LANG=0 "FileVersion" "{{ .Version }}"
VIAddVersionKey /LANG=0 "LegalCopyright" "{{ .Copyright }}"
{{ if .Icon }}!define MUI_ICON "{{ .Icon }}"
{{ end }}{{ if .UnIcon }}!define MUI_UNICON "{{ .UnIcon }}"
{{ end }}
!insertmacro MUI_PAGE_DIRECTORY
!insertmacro MUI_PAGE_INSTFILES
!insertmacro MUI_UNPAGE_INSTFILES
{{ range .Languages }}!insertmacro MUI_LANGUAGE "{{ . }}"
{{ end }}`

const uninstallSection = `
Section "Uninstall"
  RMDir /r "$INSTDIR"
  Delete "$SMPROGRAMS\{{ .ProductName }}.lnk"
  DeleteRegKey HKCU "Software\Microsoft\Windows\CurrentVersion\Uninstall\{{ .AppName }}"
SectionEnd
`

const registerSection = `  WriteUninstaller "$INSTDIR\Uninstall.exe"
  CreateShortCut "$SMPROGRAMS\{{ .ProductName }}.lnk" "$INSTDIR\{{ .Executable }}"
  WriteRegStr HKCU "Software\Microsoft\Windows\CurrentVersion\Uninstall\{{ .AppName }}" "DisplayName" "{{ .ProductName }}"
  WriteRegStr HKCU "Software\Microsoft\Windows\CurrentVersion\Uninstall\{{ .AppName }}" "DisplayVersion" "{{ .Version }}"
  WriteRegStr HKCU "Software\Microsoft\Windows\CurrentVersion\Uninstall\{{ .AppName }}" "UninstallString" "$INSTDIR\Uninstall.exe"
`

//nolint:gochecknoglobals // Parsed once.
var (
	fullScript = template.Must(template.New("full").Funcs(template.FuncMap{
		"sep": func() string { return string(filepath.Separator) },
	}).Parse(scriptHeader + `
Section "Install"
  SetOutPath "$INSTDIR"
  File /r "{{ .SourceDir }}{{ sep }}*"
` + registerSection + `SectionEnd
` + uninstallSection))

	selfExtractingScript = template.Must(template.New("7z").Parse(scriptHeader + `
Section "Install"
  SetOutPath "$INSTDIR"
  File "{{ .Archive }}"
  Nsis7z::ExtractWithDetails "$INSTDIR\{{ .ArchiveName }}" "Installing {{ .ProductName }} %s..."
  Delete "$INSTDIR\{{ .ArchiveName }}"
` + registerSection + `SectionEnd
` + uninstallSection))

	differentialScript = template.Must(template.New("diff").Parse(scriptHeader + `
Section "Update"
{{ range .Updated }}  SetOutPath "$INSTDIR{{ .Dir }}"
  File "{{ .Source }}"
{{ end }}{{ range .Removed }}  Delete "$INSTDIR\{{ . }}"
{{ end }}  WriteRegStr HKCU "Software\Microsoft\Windows\CurrentVersion\Uninstall\{{ .AppName }}" "DisplayVersion" "{{ .Version }}"
SectionEnd
`))
)

// Full renders an installer shipping the whole sourceDir tree.
func (g *NSISGenerator) Full(_ context.Context, meta *Metadata, sourceDir string) (string, error) {
	return render(fullScript, &scriptData{Metadata: meta, SourceDir: sourceDir})
}

// SelfExtracting renders an installer that unpacks one 7z archive.
func (g *NSISGenerator) SelfExtracting(_ context.Context, meta *Metadata, archivePath string) (string, error) {
	return render(selfExtractingScript, &scriptData{
		Metadata:    meta,
		Archive:     archivePath,
		ArchiveName: filepath.Base(archivePath),
	})
}

// Differential renders an updater that patches an installation of the
// fromDir bundle into the toDir bundle.
func (g *NSISGenerator) Differential(_ context.Context, meta *Metadata, fromDir, toDir string) (string, error) {
	changes, err := Diff(fromDir, toDir)
	if err != nil {
		return "", fmt.Errorf("diff bundles: %w", err)
	}

	data := &scriptData{Metadata: meta}

	for _, file := range changes.Updated {
		dir := ""
		if parent := path.Dir(file); parent != "." {
			dir = `\` + windowsPath(parent)
		}

		data.Updated = append(data.Updated, fileEntry{
			Source: filepath.Join(toDir, filepath.FromSlash(file)),
			Dir:    dir,
		})
	}

	for _, file := range changes.Removed {
		data.Removed = append(data.Removed, windowsPath(file))
	}

	return render(differentialScript, data)
}

func render(tmpl *template.Template, data *scriptData) (string, error) {
	var builder strings.Builder
	if err := tmpl.Execute(&builder, data); err != nil {
		return "", fmt.Errorf("render %s script: %w", tmpl.Name(), err)
	}

	return builder.String(), nil
}

func windowsPath(slashPath string) string {
	return strings.ReplaceAll(slashPath, "/", `\`)
}
