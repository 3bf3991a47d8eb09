package platform

import (
	"fmt"
	"path/filepath"
)

// Runtime file names inside an extracted runtime package.
const (
	windowsStub = "nw.exe"
	linuxStub   = "nw"
	macBundle   = "nwjs.app"

	windowsCodec = "ffmpeg.dll"
	linuxCodec   = "libffmpeg.so"
	macCodec     = "libffmpeg.dylib"
)

// Stub returns the name of the runtime entry point at the root of a bundle:
// the executable on Windows and Linux, the application bundle folder on Mac.
func (p Platform) Stub() string {
	switch p {
	case Windows:
		return windowsStub
	case Mac:
		return macBundle
	default:
		return linuxStub
	}
}

// CodecLibrary returns the file name of the media codec library.
func (p Platform) CodecLibrary() string {
	switch p {
	case Windows:
		return windowsCodec
	case Mac:
		return macCodec
	default:
		return linuxCodec
	}
}

// CodecGlob returns a slash-separated glob, relative to the target
// directory, matching the stub codec library shipped with the runtime.
func (p Platform) CodecGlob() string {
	switch p {
	case Windows:
		return windowsCodec
	case Mac:
		return macBundle + "/Contents/{Frameworks,Versions/*}/nwjs Framework.framework/**/" + macCodec
	default:
		return "lib/" + linuxCodec
	}
}

// ResourceRoot returns the directory inside targetDir that receives
// application files: the bundle root on Windows and Linux, the embedded
// app.nw folder on Mac.
func (p Platform) ResourceRoot(targetDir string) string {
	if p == Mac {
		return filepath.Join(BundleDir(targetDir), "Contents", "Resources", "app.nw")
	}

	return targetDir
}

// Executable returns the path of the runtime executable that carries an
// appended payload in packed mode.
func (p Platform) Executable(targetDir string) (string, error) {
	switch p {
	case Windows:
		return filepath.Join(targetDir, windowsStub), nil
	case Linux:
		return filepath.Join(targetDir, linuxStub), nil
	default:
		return "", fmt.Errorf("%w: no standalone executable on %s", ErrUnknownPlatform, p)
	}
}

// BundleDir returns the stub application bundle inside a Mac target directory.
func BundleDir(targetDir string) string {
	return filepath.Join(targetDir, macBundle)
}
