// Package installer produces Windows installers.
//
// Metadata is the contract shared by the full, self-extracting and
// differential installer scripts. NSISGenerator renders those scripts,
// Diff compares two bundle trees for differential updaters and Compiler
// turns a script into an executable with makensis.
package installer
