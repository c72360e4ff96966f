package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table. Intake is read-mostly here: patients are
// created at registration and looked up by the encounter wizard's step-1
// selection field.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	MRN       string     `db:"mrn" json:"mrn"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Email     *string    `db:"email" json:"email,omitempty"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName is the label shown in selection dropdowns.
func (p *Patient) DisplayName() string {
	return p.LastName + ", " + p.FirstName
}

// Staff maps to the staff table: community health workers and intake
// coordinators selectable as the encounter's conducting staff member.
type Staff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Role      string    `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (s *Staff) DisplayName() string {
	return s.LastName + ", " + s.FirstName
}
