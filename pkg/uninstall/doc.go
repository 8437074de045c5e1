// Package uninstall reverses what a mod installed, using the mod ledger
// and the optional reference copy of each table.
//
// For every tracked index the live entry is replaced by the reference
// entry with the same index, or deleted when the reference has none. In
// hierarchical tables the same rule applies to sub-entries, and a root
// left without sub-entries is removed. Kinds with a category uninstaller
// (slot tables, message tables) use it instead. Raw files are restored
// from the reference copy or deleted.
//
// The reverted tables go through the same commit as an install.
package uninstall
