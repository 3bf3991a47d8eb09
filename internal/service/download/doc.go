// Package download fetches runtime and codec packages from their mirrors
// into a local cache and extracts them. An extracted cache entry is reused
// as is; there is no expiry.
package download
