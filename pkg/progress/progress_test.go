package progress_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/tablepatch/pkg/progress"
)

func TestObservers(t *testing.T) {
	var buf bytes.Buffer
	observers := []progress.Observer{
		progress.Noop{},
		&progress.Recorder{},
		progress.NewSpinner(&buf, "installing"),
	}
	for _, o := range observers {
		assert.NotPanics(t, func() {
			o.Step(progress.StageMerge, "data/chars.rtb")
			o.Step(progress.StageCommit, "")
			o.Done(nil)
			o.Done(errors.New("late"))
		})
	}
}

func TestRecorder(t *testing.T) {
	r := &progress.Recorder{}
	r.Step(progress.StageParse, "a.rtb")
	r.Done(errors.New("boom"))
	assert.Equal(t, []string{"parse a.rtb"}, r.Steps)
	assert.True(t, r.Ended)
	assert.EqualError(t, r.Err, "boom")
}
