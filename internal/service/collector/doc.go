// Package collector computes the set of project files shipped in a bundle.
//
// The inclusion set is the glob expansion of the configured file patterns;
// the exclusion set joins project excludes, generic editor/VCS/dependency
// noise, dependency folders that are not needed at runtime and the output
// directory. Results are sorted, relative and slash-separated.
package collector
