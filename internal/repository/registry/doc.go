// Package registry implements the version registry: a JSON ledger of built
// versions, their installers and the differential updaters between them.
//
// FileRepository loads and stores the ledger on disk. The file is not safe
// for concurrent writers; callers serialize builds that share an output
// directory.
package registry
