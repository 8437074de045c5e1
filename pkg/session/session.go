// Package session holds the state of one install or uninstall run: the
// game filesystem, the file cache, the loaded ledger and the helpers the
// engines share. A session owns the game directory lock for its lifetime.
package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/tablepatch/pkg/cache"
	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/config"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/filesystem"
	"github.com/arthur-debert/tablepatch/pkg/ledger"
	"github.com/arthur-debert/tablepatch/pkg/logging"
	"github.com/arthur-debert/tablepatch/pkg/progress"
	"github.com/arthur-debert/tablepatch/pkg/resolver"
)

// StateDir is the per-game directory holding the lock and backups.
const StateDir = ".tablepatch"

// LockFile guards a game directory against concurrent runs.
const LockFile = StateDir + "/lock"

// Options configures Open. Zero-valued filesystems are derived from the
// configuration.
type Options struct {
	Config *config.Config

	// Game is the installation root. Defaults to an OS filesystem rooted
	// at Config.Game.Dir.
	Game afero.Fs
	// Reference is the read-only original copy of the tables. Defaults to
	// Config.Game.Reference when set.
	Reference afero.Fs
	// Backups receives pre-commit copies. Defaults to Config.Backup.Dir.
	Backups afero.Fs
	// LedgerFS holds the ledger file. Defaults to the OS filesystem.
	LedgerFS afero.Fs

	Kinds    *codec.Registry
	Observer progress.Observer
}

// Session is the state of one run.
type Session struct {
	Config    *config.Config
	FS        afero.Fs
	Reference afero.Fs
	Cache     *cache.Cache
	Ledger    *ledger.Ledger
	Store     *ledger.Store
	Resolver  *resolver.Resolver
	Kinds     *codec.Registry
	Observer  progress.Observer
	Log       zerolog.Logger

	closers []io.Closer
	locked  bool
	state   State
}

// Open acquires the game lock, restores any interrupted commit and loads
// the ledger.
func Open(opts Options) (*Session, error) {
	logger := logging.GetLogger("session")
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New(errors.ErrConfig, "session requires a configuration")
	}

	s := &Session{
		Config:   cfg,
		FS:       opts.Game,
		Kinds:    opts.Kinds,
		Observer: opts.Observer,
		Resolver: resolver.New(cfg.Resolver.Reserved, cfg.Resolver.FirstID),
		Log:      logger,
	}
	if s.Kinds == nil {
		s.Kinds = codec.DefaultRegistry()
	}
	if s.Observer == nil {
		s.Observer = progress.Noop{}
	}

	if s.FS == nil {
		if cfg.Game.Dir == "" {
			return nil, errors.New(errors.ErrConfig, "game directory is not configured")
		}
		if ok, _ := afero.DirExists(afero.NewOsFs(), cfg.Game.Dir); !ok {
			return nil, errors.Newf(errors.ErrConfig, "game directory %s does not exist", cfg.Game.Dir).
				WithDetail("path", cfg.Game.Dir)
		}
		s.FS = filesystem.NewOS(cfg.Game.Dir)
	}

	if err := s.lock(); err != nil {
		return nil, err
	}

	s.Reference = opts.Reference
	if s.Reference == nil && cfg.Game.Reference != "" {
		ref, closer, err := filesystem.OpenReadOnly(cfg.Game.Reference)
		if err != nil {
			s.unlock()
			return nil, errors.Wrapf(err, errors.ErrConfig, "cannot open reference copy %s", cfg.Game.Reference)
		}
		s.Reference = ref
		s.closers = append(s.closers, closer)
	}
	if s.Reference == nil {
		logger.Warn().Msg("No reference copy configured, uninstall cannot restore original records")
	}

	backups, err := s.backupFS(opts.Backups)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Cache = cache.New(s.FS, s.Reference, backups)
	recovered, err := s.Cache.Recover()
	if err != nil {
		s.Close()
		return nil, err
	}
	if recovered {
		logger.Warn().Msg("Restored files from an interrupted run")
	}

	ledgerFS := opts.LedgerFS
	if ledgerFS == nil {
		ledgerFS = afero.NewOsFs()
	}
	s.Store = ledger.NewStore(ledgerFS, cfg.Ledger.Path)
	s.Ledger = s.Store.Load()

	logger.Debug().
		Str("ledger", cfg.Ledger.Path).
		Int("mods", len(s.Ledger.Mods)).
		Msg("Session opened")
	return s, nil
}

func (s *Session) backupFS(fs afero.Fs) (afero.Fs, error) {
	if fs != nil {
		return fs, nil
	}
	dir := s.Config.Backup.Dir
	base, root := s.FS, dir
	if filepath.IsAbs(dir) {
		base = afero.NewOsFs()
	}
	if err := base.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfig, "cannot create backup directory %s", dir)
	}
	return afero.NewBasePathFs(base, root), nil
}

func (s *Session) lock() error {
	if err := s.FS.MkdirAll(StateDir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrConfig, "cannot create state directory")
	}
	f, err := s.FS.OpenFile(LockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			owner, _ := afero.ReadFile(s.FS, LockFile)
			return errors.Newf(errors.ErrLocked, "another run is using this game directory (%s)", string(owner)).
				WithDetail("lock", LockFile)
		}
		return errors.Wrap(err, errors.ErrLocked, "cannot create lock file")
	}
	_, werr := fmt.Fprintf(f, "pid %d since %s", os.Getpid(), time.Now().Format(time.RFC3339))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = s.FS.Remove(LockFile)
		return errors.Wrap(werr, errors.ErrLocked, "cannot write lock file")
	}
	s.locked = true
	return nil
}

func (s *Session) unlock() {
	if !s.locked {
		return
	}
	if err := s.FS.Remove(LockFile); err != nil && !os.IsNotExist(err) {
		s.Log.Warn().Err(err).Msg("Cannot remove lock file")
	}
	s.locked = false
}

// SaveLedger persists the ledger. Called once at the end of a successful
// run.
func (s *Session) SaveLedger() error {
	return s.Store.Save(s.Ledger)
}

// Close releases the lock and the reference copy.
func (s *Session) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	s.unlock()
	return first
}
