// Package filesystem provides the afero filesystems tablepatch works on:
// the game installation, mod sources and the read-only reference copy of
// the original tables, which may be a plain directory or a zip archive.
package filesystem
