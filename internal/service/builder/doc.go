// Package builder plans the platform and architecture task matrix and runs
// one packaging pipeline per task, one after another or in parallel.
package builder
