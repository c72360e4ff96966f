package encounter

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrSchemaUnavailable is returned by Create when the structured table shape
// cannot accept the record (missing table or column on an out-of-date
// deployment). The service degrades to CreateCompat and flags the response.
var ErrSchemaUnavailable = errors.New("structured encounter schema unavailable")

type Repository interface {
	Create(ctx context.Context, rec *EncounterRecord) error
	// CreateCompat stores only the raw answer map. Records stored this way
	// are backfilled into the structured shape by a later migration.
	CreateCompat(ctx context.Context, rec *EncounterRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*EncounterRecord, error)
	List(ctx context.Context, limit, offset int) ([]*EncounterRecord, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*EncounterRecord, int, error)
}
