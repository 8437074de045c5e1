// Package msgsync writes logical messages into groups of per-language
// message tables that must stay row-parallel.
//
// Every table of a group has the same row count at every commit. A message
// is allocated once and written into each language table at the same
// position (index mode) or under the same key (keyed mode), so other
// tables can store the returned id as a cross reference.
package msgsync
