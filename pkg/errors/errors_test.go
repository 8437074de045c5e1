// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, outcome tracking and utility functions

package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/arthur-debert/tablepatch/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "not_found_error",
			code:    errors.ErrNotFound,
			message: "table not found",
			wantStr: "[NOT_FOUND] table not found",
		},
		{
			name:    "decode_error",
			code:    errors.ErrDecode,
			message: "bad magic",
			wantStr: "[DECODE] bad magic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}

			if err.Details == nil {
				t.Error("New() details should be initialized")
			}

			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	baseErr := stderrors.New("base error")

	t.Run("wrap_non_nil_error", func(t *testing.T) {
		err := errors.Wrap(baseErr, errors.ErrCommit, "write failed")

		if err.Wrapped != baseErr {
			t.Error("Wrap() should preserve wrapped error")
		}

		wantStr := "[COMMIT] write failed: base error"
		if got := err.Error(); got != wantStr {
			t.Errorf("Error() = %q, want %q", got, wantStr)
		}
	})

	t.Run("wrap_nil_error_returns_nil", func(t *testing.T) {
		if err := errors.Wrap(nil, errors.ErrInternal, "internal error"); err != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrDecode, "decode").
		WithDetail("path", "system/skills.rtb").
		WithDetail("kind", "records")

	if err.Details["path"] != "system/skills.rtb" {
		t.Errorf("WithDetail() path = %v", err.Details["path"])
	}
	if err.Details["kind"] != "records" {
		t.Errorf("WithDetail() kind = %v", err.Details["kind"])
	}
}

func TestIs(t *testing.T) {
	err1 := errors.New(errors.ErrNotFound, "error 1")
	err2 := errors.New(errors.ErrNotFound, "error 2")
	err3 := errors.New(errors.ErrInternal, "error 3")

	if !stderrors.Is(err1, err2) {
		t.Error("errors.Is() should match on code")
	}
	if err1.Is(err3) {
		t.Error("Is() should return false for different codes")
	}
}

func TestHasErrorCode(t *testing.T) {
	inner := errors.New(errors.ErrDecode, "bad table")
	outer := errors.Wrap(inner, errors.ErrInvalidInput, "install failed")

	if !errors.HasErrorCode(outer, errors.ErrDecode) {
		t.Error("HasErrorCode() should find inner code")
	}
	if errors.HasErrorCode(outer, errors.ErrCommit) {
		t.Error("HasErrorCode() should not find absent code")
	}
	if errors.HasErrorCode(nil, errors.ErrDecode) {
		t.Error("HasErrorCode(nil) should be false")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected errors.ErrorCode
	}{
		{"patch_error", errors.New(errors.ErrLedgerSave, "ledger"), errors.ErrLedgerSave},
		{"standard_error", stderrors.New("standard error"), errors.ErrUnknown},
		{"nil_error", nil, errors.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Outcome
	}{
		{
			name: "no_outcome_defaults_to_unchanged",
			err:  errors.New(errors.ErrDecode, "bad"),
			want: errors.OutcomeUnchanged,
		},
		{
			name: "outer_outcome",
			err:  errors.New(errors.ErrCommit, "disk full").WithOutcome(errors.OutcomeRestored),
			want: errors.OutcomeRestored,
		},
		{
			name: "inner_outcome_found_through_chain",
			err: errors.Wrap(
				errors.New(errors.ErrRollback, "restore").WithOutcome(errors.OutcomeInconsistent),
				errors.ErrCommit, "commit"),
			want: errors.OutcomeInconsistent,
		},
		{
			name: "standard_error",
			err:  stderrors.New("plain"),
			want: errors.OutcomeUnchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.OutcomeOf(tt.err); got != tt.want {
				t.Errorf("OutcomeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorChaining(t *testing.T) {
	rootCause := stderrors.New("root cause")
	decodeErr := errors.Wrap(rootCause, errors.ErrDecode, "cannot decode table")
	runErr := errors.Wrap(decodeErr, errors.ErrInvalidInput, "install failed")

	if !errors.IsErrorCode(runErr, errors.ErrInvalidInput) {
		t.Error("Top level should have ErrInvalidInput code")
	}
	if !stderrors.Is(runErr, rootCause) {
		t.Error("Should find root cause with errors.Is")
	}
}
