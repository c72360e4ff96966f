package encounter

import (
	"time"

	"github.com/google/uuid"
)

// EncounterRecord maps to the encounter_record table. The high-signal answers
// are lifted into columns for the surveillance read-path; the full answer map
// is kept alongside as the source of truth for the record.
type EncounterRecord struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	PatientID        uuid.UUID      `db:"patient_id" json:"patient_id"`
	StaffID          uuid.UUID      `db:"staff_id" json:"staff_id"`
	VisitDate        time.Time      `db:"visit_date" json:"visit_date"`
	Location         *string        `db:"location" json:"location,omitempty"`
	HousingStatus    string         `db:"housing_status" json:"housing_status"`
	HousingDetail    *string        `db:"housing_detail" json:"housing_detail,omitempty"`
	FoodInsecurity   string         `db:"food_insecurity" json:"food_insecurity"`
	TransportBarrier bool           `db:"transport_barrier" json:"transport_barrier"`
	PHQ2Interest     string         `db:"phq2_interest" json:"phq2_interest"`
	PHQ2Depressed    string         `db:"phq2_depressed" json:"phq2_depressed"`
	PHQ2Total        int            `db:"phq2_total" json:"phq2_total"`
	PHQ2Band         string         `db:"phq2_band" json:"phq2_band"`
	ConsentVerbal    bool           `db:"consent_verbal" json:"consent_verbal"`
	Answers          map[string]any `db:"answers" json:"answers"`
	Fallback         bool           `db:"-" json:"fallback"`
	CreatedBy        string         `db:"created_by" json:"created_by"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// Submission is the POST body for a completed encounter wizard: the flat
// dotted-path answer map the assembler produces on the client.
type Submission struct {
	PatientID uuid.UUID      `json:"patient_id"`
	StaffID   uuid.UUID      `json:"staff_id"`
	Answers   map[string]any `json:"answers"`
}
