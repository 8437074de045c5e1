// Package config loads tablepatch configuration.
//
// Values are layered with koanf: embedded defaults, then a user TOML file,
// then TABLEPATCH_ environment variables (double underscore separates
// levels, so TABLEPATCH_GAME__DIR sets game.dir), then explicit overrides
// such as command line flags.
package config
