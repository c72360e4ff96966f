package encounter

import "github.com/bridgewell/intake/internal/engine"

// FormDefinition declares the CHW encounter wizard. The same definition
// drives server-side validation here and step rendering in the UI shell, so
// visibility rules live in the schema rather than in handler code.
func FormDefinition() *engine.FormDef {
	return &engine.FormDef{
		Key:   "chw_encounter",
		Title: "Community Health Worker Encounter",
		Steps: []engine.Step{
			{
				ID:    "visit",
				Title: "Visit Information",
				Fields: []engine.FieldSchema{
					{Key: "visit.date", Kind: engine.KindDate, Required: true},
					{Key: "visit.patient_id", Kind: engine.KindText, Required: true},
					{Key: "visit.staff_id", Kind: engine.KindText, Required: true},
					{Key: "visit.location", Kind: engine.KindEnum,
						Options: []string{"clinic", "home", "shelter", "street", "phone"}},
				},
			},
			{
				ID:    "demographics",
				Title: "Demographics",
				Fields: []engine.FieldSchema{
					{Key: "demographics.age", Kind: engine.KindNumber, Required: true},
					{Key: "demographics.gender", Kind: engine.KindEnum,
						Options: []string{"female", "male", "nonbinary", "declined"}},
					{Key: "demographics.language", Kind: engine.KindEnum,
						Options: []string{"english", "spanish", "other"}},
				},
			},
			{
				ID:    "housing",
				Title: "Housing",
				Fields: []engine.FieldSchema{
					{Key: "housing.status", Kind: engine.KindEnum, Required: true,
						Options: []string{"stable", "transitional", "shelter", "unsheltered", "other"}},
					{Key: "housing.other_detail", Kind: engine.KindText, Required: true,
						VisibleIf: &engine.Condition{Path: "housing.status", Equals: "other"}},
					{Key: "housing.concerns", Kind: engine.KindMultiSelect,
						Options: []string{"mold", "pests", "overcrowding", "utilities", "safety"}},
				},
			},
			{
				ID:    "needs",
				Title: "Food & Transportation",
				Fields: []engine.FieldSchema{
					{Key: "food.insecurity", Kind: engine.KindEnum, Required: true,
						Options: []string{"never", "sometimes", "often"}},
					{Key: "transport.barrier", Kind: engine.KindBool, Required: true},
				},
			},
			{
				ID:    "screening",
				Title: "PHQ-2 Screening",
				Fields: []engine.FieldSchema{
					{Key: "phq2.interest", Kind: engine.KindEnum, Required: true,
						Options: engine.InterestAnswerCodes()},
					{Key: "phq2.depressed", Kind: engine.KindEnum, Required: true,
						Options: engine.DepressedAnswerCodes()},
				},
			},
			{
				ID:    "consent",
				Title: "Consent & Wrap-up",
				Fields: []engine.FieldSchema{
					{Key: "consent.verbal", Kind: engine.KindBool, Required: true},
					{Key: "consent.notes", Kind: engine.KindText},
				},
			},
		},
	}
}
