package encounter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bridgewell/intake/internal/engine"
)

type Service struct {
	repo Repository
	def  *engine.FormDef
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, def: FormDefinition()}
}

// Definition exposes the wizard schema for the UI shell.
func (s *Service) Definition() *engine.FormDef {
	return s.def
}

// SubmitEncounter validates the answer map against the wizard schema, scores
// the PHQ-2 screening, and persists the record. When the structured store is
// unavailable the record is written in the compat shape and Fallback is set;
// the caller still treats the submission as a success.
func (s *Service) SubmitEncounter(ctx context.Context, sub *Submission) (*EncounterRecord, error) {
	if sub.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if sub.StaffID == uuid.Nil {
		return nil, fmt.Errorf("staff_id is required")
	}

	store := engine.NewStore(s.def)
	if err := store.Set("visit.patient_id", sub.PatientID.String()); err != nil {
		return nil, err
	}
	if err := store.Set("visit.staff_id", sub.StaffID.String()); err != nil {
		return nil, err
	}
	for path, v := range sub.Answers {
		if path == "visit.patient_id" || path == "visit.staff_id" {
			continue
		}
		if err := store.Set(path, v); err != nil {
			return nil, err
		}
	}
	state := store.State()

	if step, missing, incomplete := engine.FirstIncompleteStep(s.def, state); incomplete {
		return nil, &engine.ValidationIncomplete{StepID: step.ID, Missing: missing}
	}

	visitDate, err := time.Parse(engine.DateLayout, stringAt(state, "visit.date"))
	if err != nil {
		return nil, fmt.Errorf("invalid visit.date: %w", err)
	}

	score := engine.ScorePHQ2(stringAt(state, "phq2.interest"), stringAt(state, "phq2.depressed"))

	rec := &EncounterRecord{
		PatientID:        sub.PatientID,
		StaffID:          sub.StaffID,
		VisitDate:        visitDate,
		Location:         optStringAt(state, "visit.location"),
		HousingStatus:    stringAt(state, "housing.status"),
		HousingDetail:    optStringAt(state, "housing.other_detail"),
		FoodInsecurity:   stringAt(state, "food.insecurity"),
		TransportBarrier: boolAt(state, "transport.barrier"),
		PHQ2Interest:     stringAt(state, "phq2.interest"),
		PHQ2Depressed:    stringAt(state, "phq2.depressed"),
		PHQ2Total:        score.Total,
		PHQ2Band:         string(score.Band),
		ConsentVerbal:    boolAt(state, "consent.verbal"),
		Answers:          map[string]any(state),
		CreatedBy:        sub.StaffID.String(),
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if !errors.Is(err, ErrSchemaUnavailable) {
			return nil, err
		}
		log.Warn().Err(err).Str("patient_id", sub.PatientID.String()).
			Msg("structured encounter store unavailable, writing compat record")
		if err := s.repo.CreateCompat(ctx, rec); err != nil {
			return nil, err
		}
		rec.Fallback = true
	}
	return rec, nil
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*EncounterRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListEncounters(ctx context.Context, limit, offset int) ([]*EncounterRecord, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListEncountersByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*EncounterRecord, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func stringAt(state engine.FormState, path string) string {
	v, ok := state.Get(path)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

func optStringAt(state engine.FormState, path string) *string {
	v, ok := state.Get(path)
	if !ok {
		return nil
	}
	str, isStr := v.(string)
	if !isStr || str == "" {
		return nil
	}
	return &str
}

func boolAt(state engine.FormState, path string) bool {
	v, ok := state.Get(path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
