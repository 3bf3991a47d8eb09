// Package version exposes build metadata of the desktop-packager binary.
//
// Version, Commit and BuildTime are injected through -ldflags and fall back
// to development values for local builds.
package version
