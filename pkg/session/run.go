package session

import (
	"context"

	"github.com/arthur-debert/tablepatch/pkg/errors"
	"github.com/arthur-debert/tablepatch/pkg/progress"
)

// State is the phase of a run.
type State string

const (
	StateInit          State = "init"
	StateParseAndMerge State = "parse-and-merge"
	StateCommit        State = "commit"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// State returns the current phase.
func (s *Session) State() State {
	if s.state == "" {
		return StateInit
	}
	return s.state
}

// Begin enters the parse-and-merge phase.
func (s *Session) Begin() {
	s.state = StateParseAndMerge
}

// Checkpoint turns a cancelled context into a failure at the current step.
func (s *Session) Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCancelled, "run cancelled")
	}
	return nil
}

// Commit writes mutated tables, then raw copies and deletions, then drops
// the backups and saves the ledger. Failures before the ledger save are
// passed through Fail.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.Checkpoint(ctx); err != nil {
		return s.Fail(err)
	}
	s.state = StateCommit
	s.Observer.Step(progress.StageCommit, "")

	if err := s.Cache.SaveAllParsed(); err != nil {
		return s.Fail(err)
	}
	if err := s.Cache.SaveAllRaw(); err != nil {
		return s.Fail(err)
	}
	s.Cache.PurgeEmptyDirectories()
	if err := s.Cache.DiscardBackups(); err != nil {
		return s.Fail(err)
	}

	s.Observer.Step(progress.StageFinishing, s.Store.Path())
	if err := s.SaveLedger(); err != nil {
		s.state = StateFailed
		s.Log.Error().Err(err).Str("path", s.Store.Path()).Msg("Ledger save failed after commit")
		return errors.Wrap(err, errors.ErrLedgerSave, "game files were changed but the mod ledger could not be saved").
			WithOutcome(errors.OutcomeCommitted)
	}
	s.state = StateDone
	return nil
}

// Fail ends the run. Before the first disk write the installation is
// untouched; after it every backup is restored.
func (s *Session) Fail(err error) error {
	s.state = StateFailed
	code := errors.GetErrorCode(err)
	if code == errors.ErrUnknown {
		code = errors.ErrInternal
	}
	s.Log.Error().
		Err(err).
		Fields(errors.GetErrorDetails(err)).
		Bool("commit_started", s.Cache.CommitStarted()).
		Msg("Run failed")

	if !s.Cache.CommitStarted() {
		return errors.Wrap(err, code, "no changes were made").WithOutcome(errors.OutcomeUnchanged)
	}

	s.Observer.Step(progress.StageRollback, "")
	if rerr := s.Cache.RestoreBackups(); rerr != nil {
		return errors.Wrap(rerr, errors.ErrRollback,
			"restoring backups failed; the installation may be inconsistent, reinstall the game data from source").
			WithOutcome(errors.OutcomeInconsistent).
			WithDetail("cause", err.Error())
	}
	return errors.Wrap(err, code, "changes were undone").WithOutcome(errors.OutcomeRestored)
}
