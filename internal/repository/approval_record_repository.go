package repository

import (
	"context"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/database"
	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

const recordColumns = `
	submitter_email, work_date, status,
	approver_email, approved_at, rejection_reason,
	version, created_at, updated_at`

// PgApprovalRecordRepository manages approval_records. Every mutation is a
// single conditional statement keyed by (submitter_email, work_date).
type PgApprovalRecordRepository struct {
	db *database.DB
}

// NewApprovalRecordRepository creates a new PgApprovalRecordRepository.
func NewApprovalRecordRepository(db *database.DB) *PgApprovalRecordRepository {
	return &PgApprovalRecordRepository{db: db}
}

// Get retrieves the record for key.
func (r *PgApprovalRecordRepository) Get(ctx context.Context, key domain.RecordKey) (*domain.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records
		WHERE submitter_email = $1 AND work_date = $2`

	rec, err := scanRecord(r.db.QueryRow(ctx, query, key.SubmitterEmail, key.WorkDate))
	if isNoRows(err) {
		return nil, errors.NotFound("approval_record", key.String())
	}
	if err != nil {
		return nil, mapPgError(err, "failed to get approval record")
	}
	return rec, nil
}

// EnsurePending inserts rec if absent, then returns the stored row.
func (r *PgApprovalRecordRepository) EnsurePending(ctx context.Context, rec domain.ApprovalRecord) (*domain.ApprovalRecord, error) {
	query := `
		INSERT INTO approval_records
		    (submitter_email, work_date, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (submitter_email, work_date) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		rec.SubmitterEmail,
		rec.WorkDate,
		string(domain.StatusPending),
		rec.Version,
		rec.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err, "failed to create approval record")
	}
	return r.Get(ctx, rec.Key())
}

// Transition writes next if the row still has current's status and version.
func (r *PgApprovalRecordRepository) Transition(ctx context.Context, current, next domain.ApprovalRecord) error {
	query := `
		UPDATE approval_records
		SET status           = $5,
		    approver_email   = $6,
		    approved_at      = $7,
		    rejection_reason = $8,
		    version          = $9,
		    updated_at       = $10
		WHERE submitter_email = $1
		  AND work_date       = $2
		  AND status          = $3
		  AND version         = $4
		RETURNING version
	`

	var version int64
	err := r.db.QueryRow(ctx, query,
		current.SubmitterEmail,
		current.WorkDate,
		string(current.Status),
		current.Version,
		string(next.Status),
		next.ApproverEmail,
		next.ApprovedAt,
		next.RejectionReason,
		next.Version,
		next.UpdatedAt,
	).Scan(&version)
	if isNoRows(err) {
		return errors.InvalidState("approval record was modified concurrently", string(current.Status), string(next.Status))
	}
	return mapPgError(err, "failed to update approval record")
}

// Delete removes the row if it still has current's status and version.
func (r *PgApprovalRecordRepository) Delete(ctx context.Context, current domain.ApprovalRecord) error {
	query := `
		DELETE FROM approval_records
		WHERE submitter_email = $1
		  AND work_date       = $2
		  AND status          = $3
		  AND version         = $4
	`

	tag, err := r.db.Exec(ctx, query,
		current.SubmitterEmail,
		current.WorkDate,
		string(current.Status),
		current.Version,
	)
	if err != nil {
		return mapPgError(err, "failed to delete approval record")
	}
	if tag.RowsAffected() == 0 {
		return errors.InvalidState("approval record was modified concurrently", string(current.Status), "")
	}
	return nil
}

// ListBySubmitter returns a submitter's records with work_date in [from, to].
func (r *PgApprovalRecordRepository) ListBySubmitter(ctx context.Context, submitter string, from, to time.Time) ([]domain.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records
		WHERE submitter_email = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date ASC`

	return r.list(ctx, query, submitter, from, to)
}

// ListPending returns PENDING records of the given submitters in [from, to].
func (r *PgApprovalRecordRepository) ListPending(ctx context.Context, submitters []string, from, to time.Time) ([]domain.ApprovalRecord, error) {
	if len(submitters) == 0 {
		return []domain.ApprovalRecord{}, nil
	}
	query := `SELECT ` + recordColumns + ` FROM approval_records
		WHERE submitter_email = ANY($1)
		  AND status = 'PENDING'
		  AND work_date BETWEEN $2 AND $3
		ORDER BY work_date ASC, submitter_email ASC`

	return r.list(ctx, query, submitters, from, to)
}

func (r *PgApprovalRecordRepository) list(ctx context.Context, query string, args ...any) ([]domain.ApprovalRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "failed to list approval records")
	}
	defer rows.Close()

	records := []domain.ApprovalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan approval record")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to list approval records")
	}
	return records, nil
}

func scanRecord(row rowScanner) (*domain.ApprovalRecord, error) {
	rec := &domain.ApprovalRecord{}
	var status string

	err := row.Scan(
		&rec.SubmitterEmail,
		&rec.WorkDate,
		&status,
		&rec.ApproverEmail,
		&rec.ApprovedAt,
		&rec.RejectionReason,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	rec.WorkDate = domain.DateOf(rec.WorkDate)
	rec.ApprovedAt = utcPtr(rec.ApprovedAt)
	return rec, nil
}
