package cache

import (
	stderrors "errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/filesystem"
	"github.com/arthur-debert/tablepatch/pkg/logging"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// Opener opens the bytes of a raw file when the commit copies it.
type Opener func() (io.ReadCloser, error)

type parsed struct {
	kind  *codec.Kind
	table table.Table
	dirty bool
}

type rawFile struct {
	dest      string
	open      Opener
	overwrite bool
}

// Cache is the per-run file cache. It is not safe for concurrent use; a
// run owns it exclusively.
type Cache struct {
	fs        afero.Fs
	reference afero.Fs
	backups   afero.Fs
	log       zerolog.Logger

	tables    map[string]*parsed
	order     []string
	refTables map[string]table.Table

	raws     []rawFile
	removals []string

	records       []backupRecord
	backedUp      map[string]bool
	commitStarted bool
}

// New creates a cache over the game filesystem. reference may be nil when
// no original copy of the tables is available. backups receives copies of
// files before they are overwritten.
func New(fs, reference, backups afero.Fs) *Cache {
	return &Cache{
		fs:        fs,
		reference: reference,
		backups:   backups,
		log:       logging.GetLogger("cache"),
		tables:    make(map[string]*parsed),
		refTables: make(map[string]table.Table),
		backedUp:  make(map[string]bool),
	}
}

// CommitStarted reports whether any disk write happened in this run. While
// it is false the installation is provably unchanged.
func (c *Cache) CommitStarted() bool { return c.commitStarted }

// GetParsed returns the cached table for p, decoding it on first use. A
// table missing from the game directory is loaded from the reference copy.
func (c *Cache) GetParsed(p string, kind *codec.Kind) (table.Table, error) {
	p = filesystem.Clean(p)
	if entry, ok := c.tables[p]; ok {
		return entry.table, nil
	}

	data, err := afero.ReadFile(c.fs, p)
	if err != nil && os.IsNotExist(err) && c.reference != nil {
		c.log.Debug().Str("path", p).Msg("Table not in game directory, loading reference copy")
		data, err = afero.ReadFile(c.reference, p)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "table %s not found", p).
				WithDetail("path", p).
				WithDetail("kind", kind.Name)
		}
		return nil, errors.Wrapf(err, errors.ErrNotFound, "cannot read table %s", p).
			WithDetail("path", p)
	}

	t, err := kind.Decode(p, data)
	if err != nil {
		return nil, err
	}
	c.add(p, kind, t, false)
	return t, nil
}

// Lookup returns a table already held by the cache.
func (c *Cache) Lookup(p string) (table.Table, bool) {
	entry, ok := c.tables[filesystem.Clean(p)]
	if !ok {
		return nil, false
	}
	return entry.table, true
}

// AddParsed registers t as the new content of p. It is written on commit.
func (c *Cache) AddParsed(p string, kind *codec.Kind, t table.Table) {
	c.add(filesystem.Clean(p), kind, t, true)
}

func (c *Cache) add(p string, kind *codec.Kind, t table.Table, dirty bool) {
	if _, ok := c.tables[p]; !ok {
		c.order = append(c.order, p)
	}
	c.tables[p] = &parsed{kind: kind, table: t, dirty: dirty}
}

// MarkDirty flags a cached table for writing on commit.
func (c *Cache) MarkDirty(p string) {
	if entry, ok := c.tables[filesystem.Clean(p)]; ok {
		entry.dirty = true
	}
}

// Dirty lists the paths that will be written on commit.
func (c *Cache) Dirty() []string {
	var out []string
	for _, p := range c.order {
		if c.tables[p].dirty {
			out = append(out, p)
		}
	}
	return out
}

// Reference returns the original copy of a table, or nil when there is no
// reference copy of p.
func (c *Cache) Reference(p string, kind *codec.Kind) (table.Table, error) {
	p = filesystem.Clean(p)
	if t, ok := c.refTables[p]; ok {
		return t, nil
	}
	if c.reference == nil {
		return nil, nil
	}
	data, err := afero.ReadFile(c.reference, p)
	if err != nil {
		if os.IsNotExist(err) {
			c.refTables[p] = nil
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrNotFound, "cannot read reference table %s", p)
	}
	t, err := kind.Decode(p, data)
	if err != nil {
		return nil, err
	}
	c.refTables[p] = t
	return t, nil
}

// HasReference reports whether the reference copy contains p.
func (c *Cache) HasReference(p string) bool {
	if c.reference == nil {
		return false
	}
	ok, _ := afero.Exists(c.reference, filesystem.Clean(p))
	return ok
}

// OpenReference opens the reference copy of a raw file.
func (c *Cache) OpenReference(p string) Opener {
	p = filesystem.Clean(p)
	return func() (io.ReadCloser, error) {
		if c.reference == nil {
			return nil, os.ErrNotExist
		}
		return c.reference.Open(p)
	}
}

// AddRawFile queues a byte-for-byte copy to dest. Without overwrite, an
// existing destination is left alone.
func (c *Cache) AddRawFile(dest string, open Opener, overwrite bool) {
	c.raws = append(c.raws, rawFile{dest: filesystem.Clean(dest), open: open, overwrite: overwrite})
}

// RemoveFile queues deletion of dest.
func (c *Cache) RemoveFile(dest string) {
	c.removals = append(c.removals, filesystem.Clean(dest))
}

// SaveAllParsed writes every dirty table. All tables are encoded before
// the first write, so an encoding failure leaves the disk untouched.
func (c *Cache) SaveAllParsed() error {
	type pending struct {
		path string
		data []byte
	}
	var writes []pending
	for _, p := range c.Dirty() {
		entry := c.tables[p]
		data, err := entry.kind.Encode(p, entry.table)
		if err != nil {
			return err
		}
		writes = append(writes, pending{path: p, data: data})
	}

	for _, w := range writes {
		if err := c.CreateBackup(w.path); err != nil {
			return err
		}
		if err := c.fs.MkdirAll(path.Dir(w.path), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrCommit, "cannot create directory for %s", w.path)
		}
		if err := afero.WriteFile(c.fs, w.path, w.data, 0644); err != nil {
			return errors.Wrapf(err, errors.ErrCommit, "cannot write %s", w.path).WithDetail("path", w.path)
		}
		c.tables[w.path].dirty = false
		c.log.Debug().Str("path", w.path).Int("bytes", len(w.data)).Msg("Table written")
	}
	return nil
}

// SaveAllRaw performs queued raw copies, then queued deletions.
func (c *Cache) SaveAllRaw() error {
	for _, r := range c.raws {
		if !r.overwrite {
			if exists, _ := afero.Exists(c.fs, r.dest); exists {
				c.log.Debug().Str("path", r.dest).Msg("Destination exists, not overwriting")
				continue
			}
		}
		if err := c.CreateBackup(r.dest); err != nil {
			return err
		}
		if err := c.copyIn(r); err != nil {
			return errors.Wrapf(err, errors.ErrCommit, "cannot copy %s", r.dest).WithDetail("path", r.dest)
		}
	}
	c.raws = nil

	for _, p := range c.removals {
		exists, _ := afero.Exists(c.fs, p)
		if !exists {
			continue
		}
		if err := c.CreateBackup(p); err != nil {
			return err
		}
		if err := c.fs.Remove(p); err != nil {
			return errors.Wrapf(err, errors.ErrCommit, "cannot remove %s", p).WithDetail("path", p)
		}
	}
	return nil
}

func (c *Cache) copyIn(r rawFile) error {
	src, err := r.open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := c.fs.MkdirAll(path.Dir(r.dest), 0755); err != nil {
		return err
	}
	dst, err := c.fs.OpenFile(r.dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// CreateBackup saves the current bytes of p before the first write to it.
// It marks the commit as started.
func (c *Cache) CreateBackup(p string) error {
	p = filesystem.Clean(p)
	c.commitStarted = true
	if c.backedUp[p] {
		return nil
	}

	rec := backupRecord{Path: p}
	data, err := afero.ReadFile(c.fs, p)
	switch {
	case err == nil:
		rec.Existed = true
		if err := c.backups.MkdirAll(path.Dir(backupPath(p)), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrCommit, "cannot create backup directory for %s", p)
		}
		if err := afero.WriteFile(c.backups, backupPath(p), data, 0644); err != nil {
			return errors.Wrapf(err, errors.ErrCommit, "cannot back up %s", p)
		}
	case os.IsNotExist(err):
	default:
		return errors.Wrapf(err, errors.ErrCommit, "cannot read %s for backup", p)
	}

	c.records = append(c.records, rec)
	c.backedUp[p] = true
	if err := writeJournal(c.backups, c.records); err != nil {
		return errors.Wrap(err, errors.ErrCommit, "cannot write backup journal")
	}
	return nil
}

// RestoreBackups puts every backed-up path back to its pre-commit state,
// most recent first. Files that did not exist are deleted.
func (c *Cache) RestoreBackups() error {
	var errs []error
	for i := len(c.records) - 1; i >= 0; i-- {
		rec := c.records[i]
		if err := c.restore(rec); err != nil {
			c.log.Error().Err(err).Str("path", rec.Path).Msg("Failed to restore backup")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), errors.ErrRollback, "failed to restore backups").
			WithOutcome(errors.OutcomeInconsistent)
	}
	c.log.Info().Int("files", len(c.records)).Msg("Backups restored")
	return c.DiscardBackups()
}

func (c *Cache) restore(rec backupRecord) error {
	if !rec.Existed {
		if err := c.fs.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := afero.ReadFile(c.backups, backupPath(rec.Path))
	if err != nil {
		return err
	}
	if err := c.fs.MkdirAll(path.Dir(rec.Path), 0755); err != nil {
		return err
	}
	return afero.WriteFile(c.fs, rec.Path, data, 0644)
}

// DiscardBackups drops the backups of a finished commit.
func (c *Cache) DiscardBackups() error {
	c.records = nil
	c.backedUp = make(map[string]bool)
	if err := c.backups.RemoveAll(filesDir); err != nil {
		return errors.Wrap(err, errors.ErrCommit, "cannot remove backups")
	}
	if err := c.backups.Remove(journalFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCommit, "cannot remove backup journal")
	}
	return nil
}

// Recover restores the backups left by a run that died mid-commit. It
// reports whether there was anything to recover.
func (c *Cache) Recover() (bool, error) {
	records, err := readJournal(c.backups)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrRollback, "cannot read backup journal")
	}
	if len(records) == 0 {
		return false, nil
	}
	c.log.Warn().Int("files", len(records)).Msg("Found an interrupted commit, restoring backups")
	c.records = records
	return true, c.RestoreBackups()
}

// PurgeEmptyDirectories removes directories left empty by deleted files.
func (c *Cache) PurgeEmptyDirectories() {
	dirs := make(map[string]bool)
	for _, p := range c.removals {
		for d := path.Dir(p); d != "." && d != "/" && d != ""; d = path.Dir(d) {
			dirs[d] = true
		}
	}
	c.removals = nil

	// Deepest first so parents empty out after their children.
	sorted := make([]string, 0, len(dirs))
	for d := range dirs {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return strings.Count(sorted[i], "/") > strings.Count(sorted[j], "/")
	})

	for _, d := range sorted {
		empty, err := afero.IsEmpty(c.fs, d)
		if err != nil || !empty {
			continue
		}
		if err := c.fs.Remove(d); err == nil {
			c.log.Debug().Str("dir", d).Msg("Removed empty directory")
		}
	}
}
