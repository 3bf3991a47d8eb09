// Package platform models the build matrix: the closed set of target
// platforms, the supported architectures and the Task pairing them.
//
// Platform tokens coming from manifests or flags are normalized once, at the
// boundary, by Parse; everything downstream switches over the typed value.
package platform
