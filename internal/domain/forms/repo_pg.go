package forms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bridgewell/intake/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func connFor(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

type registryRepoPG struct {
	pool *pgxpool.Pool
}

func NewRegistryRepo(pool *pgxpool.Pool) RegistryRepository {
	return &registryRepoPG{pool: pool}
}

const registryCols = `id, patient_id, form_key, title, status, submission_id, completed_at, created_at, updated_at`

func (r *registryRepoPG) Seed(ctx context.Context, patientID uuid.UUID, entries []*RequiredForm) error {
	conn := connFor(ctx, r.pool)
	for _, e := range entries {
		e.ID = uuid.New()
		e.PatientID = patientID
		// ON CONFLICT keeps seeding idempotent under concurrent first reads.
		_, err := conn.Exec(ctx, `
			INSERT INTO required_form (id, patient_id, form_key, title, status)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (patient_id, form_key) DO NOTHING`,
			e.ID, e.PatientID, e.FormKey, e.Title, e.Status,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *registryRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*RequiredForm, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `
		SELECT `+registryCols+` FROM required_form
		WHERE patient_id = $1
		ORDER BY created_at, form_key`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*RequiredForm
	for rows.Next() {
		var e RequiredForm
		if err := rows.Scan(&e.ID, &e.PatientID, &e.FormKey, &e.Title, &e.Status,
			&e.SubmissionID, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *registryRepoPG) Get(ctx context.Context, patientID uuid.UUID, formKey string) (*RequiredForm, error) {
	var e RequiredForm
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+registryCols+` FROM required_form
		WHERE patient_id = $1 AND form_key = $2`, patientID, formKey).
		Scan(&e.ID, &e.PatientID, &e.FormKey, &e.Title, &e.Status,
			&e.SubmissionID, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *registryRepoPG) MarkCompleted(ctx context.Context, patientID uuid.UUID, formKey string, submissionID uuid.UUID) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE required_form
		SET status = $3, submission_id = $4, completed_at = NOW(), updated_at = NOW()
		WHERE patient_id = $1 AND form_key = $2 AND status = $5`,
		patientID, formKey, StatusCompleted, submissionID, StatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *registryRepoPG) MarkNotApplicable(ctx context.Context, patientID uuid.UUID, formKey string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE required_form
		SET status = $3, updated_at = NOW()
		WHERE patient_id = $1 AND form_key = $2 AND status = $4`,
		patientID, formKey, StatusNotApplicable, StatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

type submissionRepoPG struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepoPG{pool: pool}
}

const submissionCols = `id, patient_id, form_key, answers, artifact_ids, submitted_by, created_at`

func (r *submissionRepoPG) Create(ctx context.Context, sub *FormSubmission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO form_submission (id, patient_id, form_key, answers, artifact_ids, submitted_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sub.ID, sub.PatientID, sub.FormKey, answers, sub.ArtifactIDs, sub.SubmittedBy,
	)
	return err
}

func (r *submissionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*FormSubmission, error) {
	var sub FormSubmission
	var answers []byte
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+submissionCols+` FROM form_submission WHERE id = $1`, id).
		Scan(&sub.ID, &sub.PatientID, &sub.FormKey, &answers, &sub.ArtifactIDs, &sub.SubmittedBy, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &sub.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return &sub, nil
}

func (r *submissionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FormSubmission, int, error) {
	conn := connFor(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM form_submission WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `
		SELECT `+submissionCols+` FROM form_submission
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var subs []*FormSubmission
	for rows.Next() {
		var sub FormSubmission
		var answers []byte
		if err := rows.Scan(&sub.ID, &sub.PatientID, &sub.FormKey, &answers,
			&sub.ArtifactIDs, &sub.SubmittedBy, &sub.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &sub.Answers); err != nil {
				return nil, 0, fmt.Errorf("unmarshal answers: %w", err)
			}
		}
		subs = append(subs, &sub)
	}
	return subs, total, rows.Err()
}
