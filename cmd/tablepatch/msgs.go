package tablepatch

// Command descriptions
const (
	MsgRootShort = "Install and uninstall game table mods"
	MsgRootLong  = `tablepatch merges mod-supplied records into a game's binary tables,
records every change in a ledger, and reverses a mod exactly on uninstall.

Nothing is written to the game directory until every table of a mod has
been merged in memory. A failure during the write restores every file from
its backup.`

	MsgInstallShort   = "Install a mod from a directory or .zip archive"
	MsgInstallLong    = "Install merges the tables of a mod into the game, copies its other files, and writes its messages. Installing an installed mod again upgrades it."
	MsgUninstallShort = "Uninstall an installed mod"
	MsgListShort      = "List installed mods"
	MsgShowShort      = "Describe a mod without installing it"
	MsgVersionShort   = "Print version information"
)

// Flag descriptions
const (
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagGame      = "Game installation directory (overrides game.dir)"
	MsgFlagReference = "Original copy of the game tables, a directory or .zip (overrides game.reference)"
	MsgFlagConfig    = "Config file (default $XDG_CONFIG_HOME/tablepatch/config.toml)"
)

// Output
const (
	MsgInstalled       = "Installed %s %s: %d table(s), %d file(s)\n"
	MsgUpgraded        = "Upgraded %s to %s, reverted %d file(s) no longer shipped\n"
	MsgUninstalled     = "Uninstalled %s %s\n"
	MsgNoMods          = "No mods installed."
	MsgNoChanges       = "No changes were made to the game files."
	MsgChangesUndone   = "All changes were undone."
	MsgInconsistent    = "The game files may be inconsistent. Reinstall the game data from its original source."
	MsgLedgerNotSaved  = "The game files were changed but the mod ledger was not saved; uninstall may not find this mod."
	MsgVersionTemplate = "tablepatch version %s\n  commit: %s\n  built:  %s\n"
)
