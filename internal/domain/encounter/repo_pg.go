package encounter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bridgewell/intake/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const encCols = `id, patient_id, staff_id, visit_date, location,
	housing_status, housing_detail, food_insecurity, transport_barrier,
	phq2_interest, phq2_depressed, phq2_total, phq2_band,
	consent_verbal, answers, created_by, created_at`

func (r *repoPG) Create(ctx context.Context, rec *EncounterRecord) error {
	rec.ID = uuid.New()
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter_record (
			id, patient_id, staff_id, visit_date, location,
			housing_status, housing_detail, food_insecurity, transport_barrier,
			phq2_interest, phq2_depressed, phq2_total, phq2_band,
			consent_verbal, answers, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		rec.ID, rec.PatientID, rec.StaffID, rec.VisitDate, rec.Location,
		rec.HousingStatus, rec.HousingDetail, rec.FoodInsecurity, rec.TransportBarrier,
		rec.PHQ2Interest, rec.PHQ2Depressed, rec.PHQ2Total, rec.PHQ2Band,
		rec.ConsentVerbal, answers, rec.CreatedBy,
	)
	if isSchemaError(err) {
		return fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}
	return err
}

func (r *repoPG) CreateCompat(ctx context.Context, rec *EncounterRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter_record_compat (id, patient_id, staff_id, answers, created_by)
		VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, rec.PatientID, rec.StaffID, answers, rec.CreatedBy,
	)
	return err
}

// isSchemaError matches undefined_table and undefined_column, the two shapes
// an out-of-date deployment produces.
func isSchemaError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "42P01" || pgErr.Code == "42703"
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*EncounterRecord, error) {
	return scanRec(r.conn(ctx).QueryRow(ctx, `SELECT `+encCols+` FROM encounter_record WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*EncounterRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM encounter_record`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+encCols+` FROM encounter_record
		ORDER BY visit_date DESC, created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	recs, err := collectRecs(rows)
	return recs, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*EncounterRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter_record WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+encCols+` FROM encounter_record
		WHERE patient_id = $1
		ORDER BY visit_date DESC, created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	recs, err := collectRecs(rows)
	return recs, total, err
}

func scanRec(row pgx.Row) (*EncounterRecord, error) {
	var rec EncounterRecord
	var answers []byte
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.StaffID, &rec.VisitDate, &rec.Location,
		&rec.HousingStatus, &rec.HousingDetail, &rec.FoodInsecurity, &rec.TransportBarrier,
		&rec.PHQ2Interest, &rec.PHQ2Depressed, &rec.PHQ2Total, &rec.PHQ2Band,
		&rec.ConsentVerbal, &answers, &rec.CreatedBy, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return &rec, nil
}

func collectRecs(rows pgx.Rows) ([]*EncounterRecord, error) {
	var recs []*EncounterRecord
	for rows.Next() {
		var rec EncounterRecord
		var answers []byte
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.StaffID, &rec.VisitDate, &rec.Location,
			&rec.HousingStatus, &rec.HousingDetail, &rec.FoodInsecurity, &rec.TransportBarrier,
			&rec.PHQ2Interest, &rec.PHQ2Depressed, &rec.PHQ2Total, &rec.PHQ2Band,
			&rec.ConsentVerbal, &answers, &rec.CreatedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &rec.Answers); err != nil {
				return nil, fmt.Errorf("unmarshal answers: %w", err)
			}
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
