package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied is returned when the user declines camera access.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDeviceUnavailable is returned when no camera device can be opened.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	// ErrSubmitInFlight is returned for field edits or repeat submits while a
	// submission is still being dispatched.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

// SchemaViolation reports a write to a field path the active form never
// declared. This is a programmer error, not user-recoverable.
type SchemaViolation struct {
	Path string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("field path %q is not declared in the form schema", e.Path)
}

// SequenceViolation reports a step navigation outside the allowed order.
// Callers recover by staying on (or re-clamping to) a valid index.
type SequenceViolation struct {
	From int
	To   int
}

func (e *SequenceViolation) Error() string {
	return fmt.Sprintf("cannot jump from step %d to step %d: target step has not been reached", e.From, e.To)
}

// ValidationIncomplete lists the visible required fields still missing on a
// step. It blocks forward navigation and submission until resolved.
type ValidationIncomplete struct {
	StepID  string
	Missing []string
}

func (e *ValidationIncomplete) Error() string {
	return fmt.Sprintf("step %q is incomplete: missing %s", e.StepID, strings.Join(e.Missing, ", "))
}

// FailureKind classifies a submission failure.
type FailureKind int

const (
	// FailureNetwork is a transient transport failure; the caller may retry
	// with the preserved form state.
	FailureNetwork FailureKind = iota
	// FailureValidationRejected means the server rejected the payload despite
	// client-side checks passing.
	FailureValidationRejected
	// FailureUnauthorized is fatal for the session.
	FailureUnauthorized
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureValidationRejected:
		return "validation-rejected"
	case FailureUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// SubmissionError is returned by a Submitter when dispatch fails. The form
// state and artifacts are never cleared on a SubmissionError, so a retry
// re-sends an equivalent payload.
type SubmissionError struct {
	Kind FailureKind
	// FieldErrors carries server-side field detail when the persistence
	// collaborator returns it; empty for generic rejections.
	FieldErrors map[string]string
	Err         error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("submission failed (%s)", e.Kind)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Retryable reports whether the user can retry without re-entering data.
func (e *SubmissionError) Retryable() bool { return e.Kind == FailureNetwork }
