package forms

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotPending is returned by MarkCompleted when the registry entry is not
// in the pending state. A repeat submission of an already-completed form is
// accepted without regressing the entry.
var ErrNotPending = errors.New("required form is not pending")

type RegistryRepository interface {
	Seed(ctx context.Context, patientID uuid.UUID, entries []*RequiredForm) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*RequiredForm, error)
	Get(ctx context.Context, patientID uuid.UUID, formKey string) (*RequiredForm, error)
	MarkCompleted(ctx context.Context, patientID uuid.UUID, formKey string, submissionID uuid.UUID) error
	MarkNotApplicable(ctx context.Context, patientID uuid.UUID, formKey string) error
}

type SubmissionRepository interface {
	Create(ctx context.Context, sub *FormSubmission) error
	GetByID(ctx context.Context, id uuid.UUID) (*FormSubmission, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FormSubmission, int, error)
}
