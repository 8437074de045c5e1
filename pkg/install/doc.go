// Package install applies a mod to a game installation.
//
// A run walks the manifest plan in order. Each table file is decoded from
// the mod, its symbolic keys are resolved against the destination table
// held by the session cache, and its entries are merged in; every merged
// index is recorded in the mod's ledger record. Raw files are queued for a
// byte copy. Message records are written last. Nothing reaches the disk
// until the commit, which writes tables before raw files and saves the
// ledger as its final step.
//
// Reinstalling a mod first reverts the files its new version no longer
// ships, and the message rows it wrote before, so repeated installs of the
// same mod converge on the same tables.
package install
