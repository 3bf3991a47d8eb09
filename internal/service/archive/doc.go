// Package archive wraps the external 7z archiver for extracting runtime
// packages and compressing bundles.
package archive
