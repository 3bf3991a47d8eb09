// Package assembler places the selected application files into a bundle,
// either packed (one archive appended to the runtime executable, or copied
// into the Mac resource folder) or as loose files, and writes the embedded
// manifest.
package assembler
