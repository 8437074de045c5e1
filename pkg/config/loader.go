package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/tablepatch/pkg/errors"
)

// EnvPrefix prefixes environment variables read into the configuration.
const EnvPrefix = "TABLEPATCH_"

// LoadOptions selects the user file and explicit overrides.
type LoadOptions struct {
	// File is a user config path. When empty, the XDG config file is used
	// if it exists.
	File string

	// Overrides are dotted keys (for example "game.dir") applied last.
	Overrides map[string]interface{}
}

// Load builds the configuration from all layers.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to load defaults")
	}

	// 2. User file
	path := opts.File
	if path == "" {
		path = userConfigPath()
	} else if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfig, "config file %s", path)
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfig, "failed to load config from %s", path)
			}
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to load environment")
	}

	// 4. Overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfig, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "failed to unmarshal configuration")
	}

	if err := postProcess(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfig, "invalid configuration")
	}
	return &cfg, nil
}

// envKey maps TABLEPATCH_GAME__DIR to game.dir.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func userConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tablepatch", "config.toml")
	}
	return filepath.Join(xdg.ConfigHome, "tablepatch", "config.toml")
}

// DefaultLedgerPath is used when ledger.path is not configured.
func DefaultLedgerPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "tablepatch", "ledger.toml")
}

func postProcess(cfg *Config) error {
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath()
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = ".tablepatch/backup"
	}
	if cfg.Messages.Groups == nil {
		cfg.Messages.Groups = make(map[string]MessageGroup)
	}
	return cfg.Validate()
}
