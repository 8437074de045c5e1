package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrConfig       ErrorCode = "CONFIG"
	ErrManifest     ErrorCode = "MANIFEST"
	ErrCancelled    ErrorCode = "CANCELLED"

	// Pre-commit failures. Nothing has been written when these surface.
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrDecode      ErrorCode = "DECODE"
	ErrConflict    ErrorCode = "CONFLICT"
	ErrConsistency ErrorCode = "CONSISTENCY"

	// Commit failures
	ErrCommit     ErrorCode = "COMMIT"
	ErrRollback   ErrorCode = "ROLLBACK"
	ErrLedgerSave ErrorCode = "LEDGER_SAVE"
	ErrLocked     ErrorCode = "LOCKED"
)

// Outcome describes the on-disk state of a game installation after a failed run.
type Outcome string

const (
	// OutcomeUnchanged means no disk write happened before the failure.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeRestored means writes happened and every backup was restored.
	OutcomeRestored Outcome = "restored"
	// OutcomeInconsistent means restoring backups failed.
	OutcomeInconsistent Outcome = "inconsistent"
	// OutcomeCommitted means the tables were committed but a later step failed.
	OutcomeCommitted Outcome = "committed"
)

// detailOutcome is the Details key used to carry an Outcome
const detailOutcome = "outcome"

// PatchError represents a structured error with code and details
type PatchError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *PatchError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *PatchError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *PatchError) Is(target error) bool {
	var targetErr *PatchError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new PatchError with the given code and message
func New(code ErrorCode, message string) *PatchError {
	return &PatchError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new PatchError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *PatchError {
	return &PatchError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a PatchError
func Wrap(err error, code ErrorCode, message string) *PatchError {
	if err == nil {
		return nil
	}
	return &PatchError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *PatchError {
	if err == nil {
		return nil
	}
	return &PatchError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *PatchError) WithDetail(key string, value interface{}) *PatchError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *PatchError) WithDetails(details map[string]interface{}) *PatchError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithOutcome records the installation state the failure left behind.
func (e *PatchError) WithOutcome(o Outcome) *PatchError {
	return e.WithDetail(detailOutcome, o)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var patchErr *PatchError
	if errors.As(err, &patchErr) {
		return patchErr.Code == code
	}
	return false
}

// HasErrorCode reports whether any PatchError in the chain carries code.
func HasErrorCode(err error, code ErrorCode) bool {
	for err != nil {
		var patchErr *PatchError
		if !errors.As(err, &patchErr) {
			return false
		}
		if patchErr.Code == code {
			return true
		}
		err = patchErr.Wrapped
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a PatchError
func GetErrorCode(err error) ErrorCode {
	var patchErr *PatchError
	if errors.As(err, &patchErr) {
		return patchErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a PatchError
func GetErrorDetails(err error) map[string]interface{} {
	var patchErr *PatchError
	if errors.As(err, &patchErr) {
		return patchErr.Details
	}
	return nil
}

// OutcomeOf returns the outcome recorded on the outermost PatchError that
// carries one. Errors without an outcome report OutcomeUnchanged.
func OutcomeOf(err error) Outcome {
	for err != nil {
		var patchErr *PatchError
		if !errors.As(err, &patchErr) {
			break
		}
		if o, ok := patchErr.Details[detailOutcome].(Outcome); ok {
			return o
		}
		err = patchErr.Wrapped
	}
	return OutcomeUnchanged
}
