// Package ledger records which mod touched which (file, section, index)
// triples so an install can be reversed exactly.
//
// The ledger is the only state that survives between runs. It is loaded
// at the start of a run, mutated in memory while tables are merged or
// reverted, and saved once at the very end of a successful run. A missing
// or unreadable ledger file means no mods are installed.
package ledger
