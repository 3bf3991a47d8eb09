// Package release handles application version strings: semantic ordering
// for the version registry and the strict four-field form required by
// Windows version resources and installer metadata.
package release
