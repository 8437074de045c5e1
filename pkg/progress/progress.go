// Package progress reports install and uninstall steps to the user. An
// observer never influences the outcome of a run.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// Stage names a phase of a run.
type Stage string

const (
	StageParse     Stage = "parse"
	StageMerge     Stage = "merge"
	StageCopy      Stage = "copy"
	StageMessages  Stage = "messages"
	StageRevert    Stage = "revert"
	StageCommit    Stage = "commit"
	StageRollback  Stage = "rollback"
	StageFinishing Stage = "finishing"
)

// Observer receives progress notifications.
type Observer interface {
	Step(stage Stage, path string)
	Done(err error)
}

// Noop discards notifications.
type Noop struct{}

func (Noop) Step(Stage, string) {}
func (Noop) Done(error)         {}

// Spinner shows the current step on a pterm spinner.
type Spinner struct {
	mu    sync.Mutex
	title string
	sp    *pterm.SpinnerPrinter
}

// NewSpinner starts a spinner writing to w.
func NewSpinner(w io.Writer, title string) *Spinner {
	s := &Spinner{title: title}
	sp, err := pterm.DefaultSpinner.WithWriter(w).WithRemoveWhenDone(false).Start(title)
	if err == nil {
		s.sp = sp
	}
	return s
}

func (s *Spinner) Step(stage Stage, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sp == nil {
		return
	}
	if path == "" {
		s.sp.UpdateText(fmt.Sprintf("%s: %s", s.title, stage))
		return
	}
	s.sp.UpdateText(fmt.Sprintf("%s: %s %s", s.title, stage, path))
}

func (s *Spinner) Done(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sp == nil {
		return
	}
	if err != nil {
		s.sp.Fail(s.title)
	} else {
		s.sp.Success(s.title)
	}
	s.sp = nil
}

// Recorder keeps every notification. Useful in tests and for summaries.
type Recorder struct {
	Steps []string
	Err   error
	Ended bool
}

func (r *Recorder) Step(stage Stage, path string) {
	r.Steps = append(r.Steps, string(stage)+" "+path)
}

func (r *Recorder) Done(err error) {
	r.Err = err
	r.Ended = true
}
