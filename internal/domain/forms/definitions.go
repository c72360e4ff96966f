package forms

import "github.com/bridgewell/intake/internal/engine"

// StandardFormKeys are the documents every patient must complete, in the
// order the portal presents them. Seeding the registry walks this list.
var StandardFormKeys = []string{
	"consent_to_treat",
	"hipaa_notice",
	"financial_agreement",
	"photo_id",
	"insurance_card",
	"hhn_enrollment",
	"handbook_receipt",
}

var definitions = map[string]*engine.FormDef{
	"consent_to_treat": {
		Key:   "consent_to_treat",
		Title: "Consent to Treat",
		Steps: []engine.Step{
			{
				ID:    "acknowledge",
				Title: "Acknowledgement",
				Fields: []engine.FieldSchema{
					{Key: "ack.agreed", Kind: engine.KindBool, Required: true},
					{Key: "ack.signature", Kind: engine.KindText, Required: true},
					{Key: "ack.date", Kind: engine.KindDate, Required: true},
				},
			},
		},
	},
	"hipaa_notice": {
		Key:   "hipaa_notice",
		Title: "HIPAA Notice of Privacy Practices",
		Steps: []engine.Step{
			{
				ID:    "acknowledge",
				Title: "Acknowledgement",
				Fields: []engine.FieldSchema{
					{Key: "ack.agreed", Kind: engine.KindBool, Required: true},
					{Key: "ack.signature", Kind: engine.KindText, Required: true},
				},
			},
		},
	},
	"financial_agreement": {
		Key:   "financial_agreement",
		Title: "Financial Agreement",
		Steps: []engine.Step{
			{
				ID:    "acknowledge",
				Title: "Acknowledgement",
				Fields: []engine.FieldSchema{
					{Key: "ack.agreed", Kind: engine.KindBool, Required: true},
					{Key: "ack.responsible_party", Kind: engine.KindText, Required: true},
				},
			},
		},
	},
	"photo_id": {
		Key:   "photo_id",
		Title: "Photo Identification",
		Steps: []engine.Step{
			{
				ID:    "document",
				Title: "Document",
				Fields: []engine.FieldSchema{
					{Key: "id.type", Kind: engine.KindEnum, Required: true,
						Options: []string{"drivers_license", "state_id", "passport", "other"}},
					{Key: "id.front", Kind: engine.KindFile, Required: true},
				},
			},
		},
	},
	"insurance_card": {
		Key:   "insurance_card",
		Title: "Insurance Card",
		Steps: []engine.Step{
			{
				ID:    "coverage",
				Title: "Coverage",
				Fields: []engine.FieldSchema{
					{Key: "insurance.covered", Kind: engine.KindBool, Required: true},
					{Key: "insurance.member_id", Kind: engine.KindText, Required: true,
						VisibleIf: &engine.Condition{Path: "insurance.covered", Equals: true}},
					{Key: "insurance.front", Kind: engine.KindFile, Required: true,
						VisibleIf: &engine.Condition{Path: "insurance.covered", Equals: true}},
					{Key: "insurance.back", Kind: engine.KindFile, Required: true,
						VisibleIf: &engine.Condition{Path: "insurance.covered", Equals: true}},
				},
			},
		},
	},
	"hhn_enrollment": {
		Key:   "hhn_enrollment",
		Title: "Healthy Homes Network Enrollment",
		Steps: []engine.Step{
			{
				ID:    "enrollment",
				Title: "Enrollment",
				Fields: []engine.FieldSchema{
					{Key: "hhn.enroll", Kind: engine.KindBool, Required: true},
					{Key: "hhn.contact_phone", Kind: engine.KindText, Required: true,
						VisibleIf: &engine.Condition{Path: "hhn.enroll", Equals: true}},
				},
			},
		},
	},
	"handbook_receipt": {
		Key:   "handbook_receipt",
		Title: "Patient Handbook Receipt",
		Steps: []engine.Step{
			{
				ID:    "acknowledge",
				Title: "Acknowledgement",
				Fields: []engine.FieldSchema{
					{Key: "ack.received", Kind: engine.KindBool, Required: true},
				},
			},
		},
	},
}

// Definition returns the declarative schema for a form key.
func Definition(key string) (*engine.FormDef, bool) {
	def, ok := definitions[key]
	return def, ok
}

// blobCategory maps a form key to the blob store category its artifacts are
// filed under.
func blobCategory(formKey string) string {
	switch formKey {
	case "photo_id":
		return "photo-id"
	case "insurance_card":
		return "insurance-card"
	case "consent_to_treat", "hipaa_notice", "financial_agreement":
		return "consent-form"
	}
	return "other"
}
