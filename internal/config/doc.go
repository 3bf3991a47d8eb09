// Package config defines the packager inputs.
//
// Settings carries the platform/architecture switches and tool locations and
// can be persisted as YAML. BuildConfig is decoded from the project manifest,
// validated against an embedded JSON Schema and completed with defaults; it
// is read-only once LoadManifest returns.
package config
