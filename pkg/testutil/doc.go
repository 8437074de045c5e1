// Package testutil builds in-memory game installations for engine tests.
//
// A TestEnvironment holds a game filesystem, a reference copy of the
// original tables and a ledger filesystem, all backed by afero memory
// filesystems, plus a configuration with three languages. Helpers write
// and read encoded tables so tests can compare bytes before and after a
// run.
package testutil
