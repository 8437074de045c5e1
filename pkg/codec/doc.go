// Package codec binds table kinds to their binary encoders.
//
// A Kind is selected once, by file extension, and carries everything the
// engines need to know about a table: how to decode and encode it, whether
// its sections are hierarchical, how to create a default root, and
// whether it replaces the generic by-index reversal with a dedicated
// category strategy.
//
// The built-in kinds use small little-endian layouts, each tagged with a
// four byte magic:
//
//	records  .rtb  flat sections of keyed records
//	tree     .htb  sections of root nodes with keyed children
//	msg      .msg  per-language message rows
//	slots    .slt  fixed slot tables
package codec
