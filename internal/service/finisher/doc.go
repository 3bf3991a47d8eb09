// Package finisher applies the per-platform edits around the file copy.
//
// Prepare runs before application files are copied and patches the stub
// runtime (Windows version resources, Mac property list, icons and
// localized strings). Finalize runs after the copy and renames the stub
// executable or bundle to the product name. The ordering matters: resource
// tools expect the original stub name, and copying must not clobber the
// renamed entry point.
package finisher
