// Package cache holds parsed tables for the duration of a run and defers
// every disk write to a single commit point.
//
// Tables are decoded once per path and mutated in memory. Nothing touches
// the game directory until SaveAllParsed, which encodes every dirty table
// before the first write. Raw files are copied by SaveAllRaw, strictly
// after the tables. Each file is backed up right before it is first
// overwritten, and a journal of the backups is kept next to them so a run
// that died mid-commit can be rolled back by the next one.
package cache
