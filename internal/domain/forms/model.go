package forms

import (
	"time"

	"github.com/google/uuid"
)

// Required-form registry statuses. The submission path only ever moves an
// entry from pending to completed; not_applicable is set by staff and never
// touched by the engine.
const (
	StatusPending       = "pending"
	StatusCompleted     = "completed"
	StatusNotApplicable = "not_applicable"
)

// RequiredForm maps to the required_form table: one row per patient per
// standard form key.
type RequiredForm struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	FormKey      string     `db:"form_key" json:"form_key"`
	Title        string     `db:"title" json:"title"`
	Status       string     `db:"status" json:"status"`
	SubmissionID *uuid.UUID `db:"submission_id" json:"submission_id,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FormSubmission maps to the form_submission table: one accepted submission
// of one form, with any uploaded artifacts referenced by blob ID.
type FormSubmission struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	PatientID   uuid.UUID      `db:"patient_id" json:"patient_id"`
	FormKey     string         `db:"form_key" json:"form_key"`
	Answers     map[string]any `db:"answers" json:"answers"`
	ArtifactIDs []string       `db:"artifact_ids" json:"artifact_ids,omitempty"`
	SubmittedBy string         `db:"submitted_by" json:"submitted_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// UploadedFile is one binary part of a multipart submission, keyed by the
// file field's dotted path.
type UploadedFile struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}
