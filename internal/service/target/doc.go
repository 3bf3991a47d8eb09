// Package target builds the per-task artifacts: the directory bundle and
// the archives and Windows installers derived from it.
package target
