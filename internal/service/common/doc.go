// Package common holds helpers shared by the packaging services.
//
// It provides the blocking subprocess Runner used for every external tool
// (archiver, resource editor, installer compiler), the ToolError carrying a
// tool's exit code, a process probe and the filesystem helpers for copying
// runtime trees.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
