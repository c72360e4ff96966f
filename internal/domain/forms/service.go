package forms

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bridgewell/intake/internal/engine"
	"github.com/bridgewell/intake/internal/platform/blobstore"
)

type Service struct {
	registry    RegistryRepository
	submissions SubmissionRepository
	blobs       blobstore.BlobStore
}

func NewService(registry RegistryRepository, submissions SubmissionRepository, blobs blobstore.BlobStore) *Service {
	return &Service{registry: registry, submissions: submissions, blobs: blobs}
}

// ListRequiredForms returns the patient's registry, materializing pending
// entries for the standard forms on first read.
func (s *Service) ListRequiredForms(ctx context.Context, patientID uuid.UUID) ([]*RequiredForm, error) {
	entries, err := s.registry.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}

	seed := make([]*RequiredForm, 0, len(StandardFormKeys))
	for _, key := range StandardFormKeys {
		def, _ := Definition(key)
		seed = append(seed, &RequiredForm{
			FormKey: key,
			Title:   def.Title,
			Status:  StatusPending,
		})
	}
	if err := s.registry.Seed(ctx, patientID, seed); err != nil {
		return nil, err
	}
	return s.registry.ListByPatient(ctx, patientID)
}

// SetNotApplicable marks a pending registry entry not applicable. Staff use
// this for forms that do not apply to a patient, e.g. insurance_card for the
// uninsured.
func (s *Service) SetNotApplicable(ctx context.Context, patientID uuid.UUID, formKey string) error {
	if _, ok := Definition(formKey); !ok {
		return fmt.Errorf("unknown form: %s", formKey)
	}
	return s.registry.MarkNotApplicable(ctx, patientID, formKey)
}

// SubmitForm validates a form submission against its declared schema, files
// any binary artifacts in the blob store, persists the submission, and moves
// the registry entry from pending to completed. Repeat submissions of an
// already-completed form are accepted without regressing the registry.
func (s *Service) SubmitForm(ctx context.Context, patientID uuid.UUID, formKey string, answers map[string]any, files []*UploadedFile, submittedBy string) (*FormSubmission, error) {
	def, ok := Definition(formKey)
	if !ok {
		return nil, fmt.Errorf("unknown form: %s", formKey)
	}
	if patientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}

	store := engine.NewStore(def)
	for path, v := range answers {
		if err := store.Set(path, coerceAnswer(v)); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		field, declared := def.Field(f.Field)
		if !declared || field.Kind != engine.KindFile {
			return nil, &engine.SchemaViolation{Path: f.Field}
		}
		artifact := &engine.MediaArtifact{
			Payload:  f.Data,
			MIMEType: f.ContentType,
			Source:   engine.SourceUpload,
		}
		if err := store.Set(f.Field, artifact); err != nil {
			return nil, err
		}
	}
	state := store.State()

	if step, missing, incomplete := engine.FirstIncompleteStep(def, state); incomplete {
		return nil, &engine.ValidationIncomplete{StepID: step.ID, Missing: missing}
	}

	sub := &FormSubmission{
		ID:          uuid.New(),
		PatientID:   patientID,
		FormKey:     formKey,
		SubmittedBy: submittedBy,
	}

	// File the artifacts first so the stored answer map can reference blob
	// IDs instead of raw payloads.
	stored := make(map[string]any, len(state))
	for path, v := range state {
		if _, isArtifact := v.(*engine.MediaArtifact); !isArtifact {
			stored[path] = v
		}
	}
	for _, f := range files {
		meta := blobstore.BlobMetadata{
			FileName:     f.FileName,
			ContentType:  f.ContentType,
			PatientID:    patientID.String(),
			SubmissionID: sub.ID.String(),
			Category:     blobCategory(formKey),
			CreatedBy:    submittedBy,
			Tags:         map[string]string{"field": f.Field},
		}
		result, err := s.blobs.Upload(ctx, meta, bytes.NewReader(f.Data))
		if err != nil {
			return nil, fmt.Errorf("store artifact %s: %w", f.Field, err)
		}
		sub.ArtifactIDs = append(sub.ArtifactIDs, result.ID)
		stored[f.Field] = result.ID
	}
	sub.Answers = stored

	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.registry.MarkCompleted(ctx, patientID, formKey, sub.ID); err != nil {
		if !errors.Is(err, ErrNotPending) {
			return nil, err
		}
		log.Debug().Str("form_key", formKey).Str("patient_id", patientID.String()).
			Msg("registry entry not pending, leaving as-is")
	}
	return sub, nil
}

func (s *Service) GetSubmission(ctx context.Context, id uuid.UUID) (*FormSubmission, error) {
	return s.submissions.GetByID(ctx, id)
}

func (s *Service) ListSubmissions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FormSubmission, int, error) {
	return s.submissions.ListByPatient(ctx, patientID, limit, offset)
}

// coerceAnswer normalizes JSON-decoded values into the shapes the validator
// expects; multi-select answers arrive as []interface{}.
func coerceAnswer(v any) any {
	vals, isSlice := v.([]any)
	if !isSlice {
		return v
	}
	strs := make([]string, 0, len(vals))
	for _, item := range vals {
		str, isStr := item.(string)
		if !isStr {
			return v
		}
		strs = append(strs, str)
	}
	return strs
}
