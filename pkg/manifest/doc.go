// Package manifest reads mod definitions.
//
// A mod ships either a mod.yaml file or a legacy installinfo.xml file at
// its root. Both describe the same things: identity (name, version,
// author, description), the files to merge or copy with their ordering
// priority, bulk directory copies, and the logical message records to
// write into the per-language message tables.
//
// Plan turns a manifest into the ordered list of file steps the install
// engine walks: first-priority files, default files, last-priority files,
// then every file found under the listed directories.
package manifest
