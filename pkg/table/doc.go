// Package table defines the record model shared by every table kind.
//
// A Table is a decoded binary record table. It exposes one or more named
// sections, each an ordered collection of Entries addressed by a
// table-scoped Index. Some kinds are hierarchical: their sections hold
// Parent entries whose SubEntries form a second level of keyed records.
//
// The install and uninstall engines only ever see these interfaces; the
// concrete record layouts live with their codecs.
package table
