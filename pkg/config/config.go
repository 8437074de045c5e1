package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Config is the complete tablepatch configuration.
type Config struct {
	Game     Game     `koanf:"game"`
	Ledger   Ledger   `koanf:"ledger"`
	Backup   Backup   `koanf:"backup"`
	Messages Messages `koanf:"messages"`
	Resolver Resolver `koanf:"resolver"`
}

// Game locates the installation being patched.
type Game struct {
	Dir       string `koanf:"dir"`
	Reference string `koanf:"reference"`
}

// Ledger locates the mod ledger.
type Ledger struct {
	Path string `koanf:"path"`
}

// Backup controls where pre-commit copies of touched files go.
type Backup struct {
	Dir string `koanf:"dir"`
}

// Messages configures per-language message groups.
type Messages struct {
	Languages []string                `koanf:"languages"`
	Groups    map[string]MessageGroup `koanf:"groups"`
}

// MessageGroup is one set of parallel per-language message tables. The
// table for a language lives at Base + language + ".msg". Template derives
// row names from a numeric argument.
type MessageGroup struct {
	Base     string `koanf:"base"`
	Template string `koanf:"template"`
}

// Resolver configures ID conflict resolution.
type Resolver struct {
	Reserved []string `koanf:"reserved"`
	FirstID  int      `koanf:"first_id"`
}

// Path returns the table path for one language of the group.
func (g MessageGroup) Path(language string) string {
	return g.Base + language + ".msg"
}

// GroupNames lists configured message groups, sorted.
func (m Messages) GroupNames() []string {
	names := make([]string, 0, len(m.Groups))
	for n := range m.Groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BackupDir returns the absolute backup directory.
func (c *Config) BackupDir() string {
	if filepath.IsAbs(c.Backup.Dir) {
		return c.Backup.Dir
	}
	return filepath.Join(c.Game.Dir, c.Backup.Dir)
}

// Validate checks values the engines rely on.
func (c *Config) Validate() error {
	if len(c.Messages.Languages) == 0 {
		return fmt.Errorf("messages.languages must list at least one language")
	}
	seen := make(map[string]bool)
	for _, lang := range c.Messages.Languages {
		if seen[lang] {
			return fmt.Errorf("messages.languages lists %q twice", lang)
		}
		seen[lang] = true
	}
	for name, g := range c.Messages.Groups {
		if g.Base == "" {
			return fmt.Errorf("messages.groups.%s.base is empty", name)
		}
		if g.Template == "" {
			return fmt.Errorf("messages.groups.%s.template is empty", name)
		}
		if err := checkTemplate(g.Template); err != nil {
			return fmt.Errorf("messages.groups.%s.template: %w", name, err)
		}
	}
	if c.Resolver.FirstID < 0 {
		return fmt.Errorf("resolver.first_id must not be negative")
	}
	return nil
}

// checkTemplate requires a name template to format exactly one integer.
func checkTemplate(tmpl string) error {
	if out := fmt.Sprintf(tmpl, 1); strings.Contains(out, "%!") {
		return fmt.Errorf("%q must take exactly one integer verb, formats as %q", tmpl, out)
	}
	if fmt.Sprintf(tmpl, 1) == fmt.Sprintf(tmpl, 2) {
		return fmt.Errorf("%q does not use its number", tmpl)
	}
	return nil
}
