package ledger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/logging"
)

// Store persists a ledger as a TOML file.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a store writing to path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Path returns the ledger file path.
func (s *Store) Path() string { return s.path }

// Load reads the ledger. A missing or corrupt file yields an empty ledger.
func (s *Store) Load() *Ledger {
	logger := logging.GetLogger("ledger")

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", s.path).Msg("Cannot read ledger, assuming no mods are installed")
		}
		return New()
	}

	l := New()
	if err := toml.Unmarshal(data, l); err != nil {
		logger.Warn().Err(err).Str("path", s.path).Msg("Corrupt ledger, assuming no mods are installed")
		return New()
	}
	if l.Mods == nil {
		l.Mods = make(map[string]*Mod)
	}
	for name, m := range l.Mods {
		if m == nil {
			delete(l.Mods, name)
			continue
		}
		if m.Name == "" {
			m.Name = name
		}
	}

	logger.Debug().Int("mods", len(l.Mods)).Str("path", s.path).Msg("Ledger loaded")
	return l
}

// Save writes the ledger through a temporary file so a failed write never
// leaves a truncated ledger behind.
func (s *Store) Save(l *Ledger) error {
	data, err := toml.Marshal(l)
	if err != nil {
		return errors.Wrap(err, errors.ErrLedgerSave, "cannot encode ledger")
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, errors.ErrLedgerSave, "cannot create ledger directory").
			WithDetail("path", s.path)
	}

	tmp := fmt.Sprintf("%s.tmp", s.path)
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrLedgerSave, "cannot write ledger").
			WithDetail("path", tmp)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrap(err, errors.ErrLedgerSave, "cannot replace ledger").
			WithDetail("path", s.path)
	}
	return nil
}
