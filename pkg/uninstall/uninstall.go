package uninstall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/ledger"
	"github.com/arthur-debert/tablepatch/pkg/logging"
	"github.com/arthur-debert/tablepatch/pkg/progress"
	"github.com/arthur-debert/tablepatch/pkg/session"
	"github.com/arthur-debert/tablepatch/pkg/table"
)

// Result summarizes a successful uninstall.
type Result struct {
	Mod      string
	Version  string
	Tables   []string
	Restored []string
	Deleted  []string
}

// Uninstall reverts every file of the named mod, commits, and removes the
// mod from the ledger.
func Uninstall(ctx context.Context, s *session.Session, name string) (*Result, error) {
	logger := logging.GetLogger("uninstall").With().Str("mod", name).Logger()
	defer logging.LogOperationStart(logger, "uninstall")()

	mod, ok := s.Ledger.Mod(name)
	if !ok {
		return nil, s.Fail(errors.Newf(errors.ErrNotFound, "mod %s is not installed", name).WithDetail("mod", name))
	}

	s.Begin()
	res := &Result{Mod: mod.Name, Version: mod.Version}
	if err := revert(ctx, s, mod, mod.Paths(), res); err != nil {
		return nil, s.Fail(err)
	}
	s.Ledger.RemoveMod(name)

	if err := s.Commit(ctx); err != nil {
		return nil, err
	}
	logger.Info().Int("tables", len(res.Tables)).Msg("Mod uninstalled")
	return res, nil
}

// UninstallFiles reverts the given files of mod in memory and drops them
// from its record. Nothing is written until the session commits.
func UninstallFiles(ctx context.Context, s *session.Session, mod *ledger.Mod, paths []string) error {
	return revert(ctx, s, mod, paths, &Result{})
}

func revert(ctx context.Context, s *session.Session, mod *ledger.Mod, paths []string, res *Result) error {
	logger := logging.GetLogger("uninstall").With().Str("mod", mod.Name).Logger()

	for _, p := range paths {
		if err := s.Checkpoint(ctx); err != nil {
			return err
		}
		tf, ok := mod.FindFile(p)
		if !ok {
			continue
		}
		s.Observer.Step(progress.StageRevert, p)

		if tf.Raw {
			revertRaw(s, logger, tf, res)
			mod.RemoveFile(p)
			continue
		}

		kind, err := s.Kinds.Classify(p, tf.Kind)
		if err != nil {
			return err
		}
		if kind == nil {
			return errors.Newf(errors.ErrConsistency, "ledger tracks sections in %s but it has no table kind", p).
				WithDetail("path", p)
		}
		if err := revertTable(s, logger, mod, kind, tf); err != nil {
			logger.Error().Err(err).Str("kind", kind.Name).Str("path", p).Msg("Cannot revert table")
			return errors.Wrapf(err, errors.GetErrorCode(err), "cannot revert %s", p).
				WithDetail("kind", kind.Name).
				WithDetail("path", p)
		}
		res.Tables = append(res.Tables, p)
		mod.RemoveFile(p)
	}
	mod.Prune()
	return nil
}

func revertRaw(s *session.Session, logger zerolog.Logger, tf *ledger.TrackedFile, res *Result) {
	if s.Cache.HasReference(tf.Path) {
		s.Cache.AddRawFile(tf.Path, s.Cache.OpenReference(tf.Path), true)
		res.Restored = append(res.Restored, tf.Path)
		logger.Debug().Str("path", tf.Path).Msg("Restoring raw file from reference")
		return
	}
	s.Cache.RemoveFile(tf.Path)
	res.Deleted = append(res.Deleted, tf.Path)
	logger.Debug().Str("path", tf.Path).Msg("Deleting raw file")
}

func revertTable(s *session.Session, logger zerolog.Logger, mod *ledger.Mod, kind *codec.Kind, tf *ledger.TrackedFile) error {
	live, err := s.Cache.GetParsed(tf.Path, kind)
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrNotFound) {
			logger.Warn().Str("path", tf.Path).Msg("Tracked table is gone, nothing to revert")
			return nil
		}
		return err
	}
	ref, err := s.Cache.Reference(tf.Path, kind)
	if err != nil {
		return err
	}

	for _, sec := range tf.Sections {
		ids := unshared(s.Ledger, logger, mod.Name, tf.Path, sec)
		if len(ids) == 0 {
			continue
		}

		switch {
		case kind.Category != nil:
			if err := kind.Category.UninstallByCategory(live, ref, sec.Key, ids); err != nil {
				return errors.Wrapf(err, errors.ErrConsistency, "section %s", sec.Key).WithDetail("section", sec.Key)
			}
		case kind.Hierarchical:
			if err := revertTree(live, ref, sec.Key, ids); err != nil {
				return err
			}
		default:
			revertSection(live, ref, sec.Key, ids)
		}
		logger.Debug().Str("path", tf.Path).Str("section", sec.Key).Int("ids", len(ids)).Msg("Section reverted")
	}
	s.Cache.MarkDirty(tf.Path)
	return nil
}

// unshared drops ids another installed mod also tracks; reverting them
// would undo that mod's change.
func unshared(l *ledger.Ledger, logger zerolog.Logger, mod, path string, sec *ledger.TrackedSection) []string {
	ids := make([]string, 0, len(sec.IDs))
	for _, id := range sec.IDs {
		if owners := l.Owners(path, sec.Key, id, mod); len(owners) > 0 {
			logger.Warn().
				Str("path", path).
				Str("section", sec.Key).
				Str("id", id).
				Strs("owners", owners).
				Msg("Entry is also tracked by another mod, leaving it in place")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func revertSection(live, ref table.Table, section string, ids []string) {
	entries, ok := live.Entries(section)
	if !ok {
		return
	}
	var refEntries []table.Entry
	if ref != nil {
		refEntries, _ = ref.Entries(section)
	}
	live.SetEntries(section, revertEntries(entries, refEntries, ids))
}

func revertTree(live, ref table.Table, key string, ids []string) error {
	section, rootIndex, ok := table.SplitSectionKey(key)
	if !ok {
		revertSection(live, ref, key, ids)
		return nil
	}
	roots, ok := live.Entries(section)
	if !ok {
		return nil
	}
	i := table.Find(roots, rootIndex)
	if i < 0 {
		return nil
	}
	root, ok := roots[i].(table.Parent)
	if !ok {
		return errors.Newf(errors.ErrConsistency, "entry %s in section %s is not a root", rootIndex, section)
	}

	var refRoot table.Parent
	if ref != nil {
		if refRoots, ok := ref.Entries(section); ok {
			if j := table.Find(refRoots, rootIndex); j >= 0 {
				refRoot, _ = refRoots[j].(table.Parent)
			}
		}
	}
	var refChildren []table.Entry
	if refRoot != nil {
		refChildren = refRoot.SubEntries()
	}

	// A root the original table has is kept even when it ends up empty;
	// merging never changes its own payload.
	children := revertEntries(root.SubEntries(), refChildren, ids)
	if len(children) == 0 && refRoot == nil {
		roots, _ = table.Remove(roots, rootIndex)
		live.SetEntries(section, roots)
		return nil
	}
	root.SetSubEntries(children)
	return nil
}

// revertEntries restores each id from reference or deletes it.
func revertEntries(entries, reference []table.Entry, ids []string) []table.Entry {
	for _, id := range ids {
		i := table.Find(entries, id)
		if i < 0 {
			continue
		}
		if j := table.Find(reference, id); j >= 0 {
			entries[i] = reference[j]
			continue
		}
		entries, _ = table.Remove(entries, id)
	}
	return entries
}
