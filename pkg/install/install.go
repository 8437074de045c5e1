package install

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/ledger"
	"github.com/arthur-debert/tablepatch/pkg/logging"
	"github.com/arthur-debert/tablepatch/pkg/manifest"
	"github.com/arthur-debert/tablepatch/pkg/merge"
	"github.com/arthur-debert/tablepatch/pkg/msgsync"
	"github.com/arthur-debert/tablepatch/pkg/progress"
	"github.com/arthur-debert/tablepatch/pkg/session"
	"github.com/arthur-debert/tablepatch/pkg/table"
	"github.com/arthur-debert/tablepatch/pkg/uninstall"
)

// Result summarizes a successful install.
type Result struct {
	Mod      string
	Version  string
	Tables   []string
	Raw      []string
	Skipped  []string
	Reverted []string
	Messages msgsync.Result
	Upgraded bool
}

type run struct {
	s     *session.Session
	src   afero.Fs
	m     *manifest.Manifest
	mod   *ledger.Mod
	reuse []reusable
	res   *Result
	log   zerolog.Logger
}

// reusable lists the message ids a previous install wrote to a group.
type reusable struct {
	group string
	mode  msgsync.Mode
	ids   []int32
}

// Install applies the mod in src described by m.
func Install(ctx context.Context, s *session.Session, src afero.Fs, m *manifest.Manifest) (*Result, error) {
	logger := logging.GetLogger("install").With().Str("mod", m.Name).Str("version", m.Version).Logger()
	defer logging.LogOperationStart(logger, "install")()

	r := &run{
		s:   s,
		src: src,
		m:   m,
		res: &Result{Mod: m.Name, Version: m.Version},
		log: logger,
	}
	if err := r.parseAndMerge(ctx); err != nil {
		return nil, s.Fail(err)
	}
	if err := s.Commit(ctx); err != nil {
		return nil, err
	}
	logger.Info().
		Int("tables", len(r.res.Tables)).
		Int("raw", len(r.res.Raw)).
		Msg("Mod installed")
	return r.res, nil
}

func (r *run) parseAndMerge(ctx context.Context) error {
	steps, err := r.m.Plan(r.src)
	if err != nil {
		return err
	}
	r.s.Begin()

	previous, upgrading := r.s.Ledger.Mod(r.m.Name)
	r.mod = r.s.Ledger.GetOrCreateMod(r.m.Name, r.m.Version)
	if upgrading {
		r.res.Upgraded = true
		kept := r.collectReusable(previous)
		if err := r.revertStale(ctx, previous, steps, kept); err != nil {
			return err
		}
	}

	for _, step := range steps {
		if err := r.s.Checkpoint(ctx); err != nil {
			return err
		}
		kind, err := r.s.Kinds.Classify(step.Destination, step.Kind)
		if err != nil {
			return err
		}
		if kind == nil {
			if err := r.queueRaw(step); err != nil {
				return err
			}
			continue
		}
		if err := r.mergeTable(step, kind); err != nil {
			r.log.Error().Err(err).Str("kind", kind.Name).Str("path", step.Source).Msg("Cannot install table")
			return errors.Wrapf(err, errors.GetErrorCode(err), "cannot install %s", step.Source).
				WithDetail("kind", kind.Name).
				WithDetail("path", step.Destination)
		}
	}

	if err := r.s.Checkpoint(ctx); err != nil {
		return err
	}
	if err := r.writeMessages(); err != nil {
		return err
	}
	r.mod.Prune()
	return nil
}

// revertStale undoes the previous install of this mod for files the new
// plan no longer writes. Message tables of configured groups are kept:
// their rows are rewritten in place by writeMessages.
func (r *run) revertStale(ctx context.Context, previous *ledger.Mod, steps []manifest.Step, kept map[string]bool) error {
	planned := manifest.Destinations(steps)
	var stale []string
	for _, tf := range previous.Files {
		if !planned[tf.Path] && !kept[tf.Path] {
			stale = append(stale, tf.Path)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	r.log.Info().Strs("files", stale).Msg("Reverting files from the previous version")
	if err := uninstall.UninstallFiles(ctx, r.s, previous, stale); err != nil {
		return err
	}
	r.res.Reverted = stale
	return nil
}

func (r *run) mergeTable(step manifest.Step, kind *codec.Kind) error {
	r.s.Observer.Step(progress.StageMerge, step.Destination)

	data, err := afero.ReadFile(r.src, step.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Newf(errors.ErrNotFound, "mod file %s not found", step.Source).WithDetail("path", step.Source)
		}
		return errors.Wrapf(err, errors.ErrNotFound, "cannot read mod file %s", step.Source)
	}
	incoming, err := kind.Decode(step.Source, data)
	if err != nil {
		return err
	}
	dest, err := r.s.Cache.GetParsed(step.Destination, kind)
	if err != nil {
		return err
	}

	tf := r.mod.File(step.Destination)
	if step.Kind != "" {
		tf.Kind = kind.Name
	}
	prepare := func(key string, in, existing []table.Entry) ([]table.Entry, error) {
		return r.s.Resolver.Resolve(in, existing, step.Destination, key, tf.Section(key))
	}
	trackFor := func(key string) merge.Tracker { return tf.Section(key) }

	for _, section := range incoming.Sections() {
		entries, _ := incoming.Entries(section)
		if kind.Hierarchical {
			err = merge.Tree(dest, section, entries, kind.NewRoot, trackFor, prepare)
		} else {
			err = merge.Section(dest, section, entries, tf.Section(section), prepare)
		}
		if err != nil {
			return err
		}
	}

	r.s.Cache.MarkDirty(step.Destination)
	r.res.Tables = append(r.res.Tables, step.Destination)
	r.log.Debug().Str("kind", kind.Name).Str("path", step.Destination).Msg("Table merged")
	return nil
}

func (r *run) queueRaw(step manifest.Step) error {
	r.s.Observer.Step(progress.StageCopy, step.Destination)

	if ok, _ := afero.Exists(r.src, step.Source); !ok {
		return errors.Newf(errors.ErrNotFound, "mod file %s not found", step.Source).WithDetail("path", step.Source)
	}

	// A file this mod did not write stays untouched unless overwrite is set.
	_, owned := r.mod.FindFile(step.Destination)
	if !step.Overwrite && !owned {
		if exists, _ := afero.Exists(r.s.FS, step.Destination); exists {
			r.log.Debug().Str("path", step.Destination).Msg("Destination exists, skipping raw file")
			r.res.Skipped = append(r.res.Skipped, step.Destination)
			return nil
		}
	}

	src, source := r.src, step.Source
	r.s.Cache.AddRawFile(step.Destination, func() (io.ReadCloser, error) {
		return src.Open(source)
	}, true)
	r.mod.File(step.Destination).Raw = true
	r.res.Raw = append(r.res.Raw, step.Destination)
	return nil
}

// collectReusable gathers the message ids the previous install wrote, per
// group and mode, and returns the message tables they live in.
func (r *run) collectReusable(previous *ledger.Mod) map[string]bool {
	kept := make(map[string]bool)
	cfg := r.s.Config.Messages
	for _, group := range cfg.GroupNames() {
		g := cfg.Groups[group]
		for _, mode := range []msgsync.Mode{msgsync.ModeIndex, msgsync.ModeKeyed} {
			var ids []int32
			for _, lang := range cfg.Languages {
				tf, ok := previous.FindFile(g.Path(lang))
				if !ok {
					continue
				}
				kept[tf.Path] = true
				if ids != nil {
					continue
				}
				if sec, ok := tf.FindSection(mode.Section()); ok {
					ids = parseIDs(sec.IDs)
				}
			}
			if len(ids) > 0 {
				r.reuse = append(r.reuse, reusable{group: group, mode: mode, ids: ids})
			}
		}
	}
	return kept
}

func parseIDs(keys []string) []int32 {
	ids := make([]int32, 0, len(keys))
	for _, k := range keys {
		if n, err := strconv.ParseInt(k, 10, 32); err == nil {
			ids = append(ids, int32(n))
		}
	}
	return ids
}

func (r *run) writeMessages() error {
	if len(r.m.Messages) == 0 && len(r.reuse) == 0 {
		return nil
	}
	r.s.Observer.Step(progress.StageMessages, "")

	kind, ok := r.s.Kinds.Lookup(codec.MessageKind().Name)
	if !ok {
		return errors.New(errors.ErrConfig, "no message table kind is registered")
	}
	cfg := r.s.Config.Messages
	sync := msgsync.New(r.s.Cache, kind, cfg.Languages, cfg.Groups, messageTracker{r.mod})
	for _, ru := range r.reuse {
		sync.Reuse(ru.group, ru.mode, ru.ids)
	}
	res, err := sync.WriteRecords(r.m.Records())
	if err != nil {
		return err
	}
	if err := sync.ReleaseUnused(); err != nil {
		return err
	}
	r.res.Messages = res
	return nil
}

// messageTracker records message rows in the mod's ledger record.
type messageTracker struct {
	mod *ledger.Mod
}

func (t messageTracker) Track(path, section, id string) {
	t.mod.File(path).Section(section).Add(id)
}

func (t messageTracker) Untrack(path, section, id string) {
	if tf, ok := t.mod.FindFile(path); ok {
		if sec, ok := tf.FindSection(section); ok {
			sec.Remove(id)
		}
	}
}
