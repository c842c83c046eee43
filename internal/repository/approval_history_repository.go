package repository

import (
	"context"
	"encoding/json"

	"github.com/pesio-ai/be-hr-approvals/internal/database"
	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

// PgHistoryRepository appends and reads approval_history entries.
type PgHistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new PgHistoryRepository.
func NewHistoryRepository(db *database.DB) *PgHistoryRepository {
	return &PgHistoryRepository{db: db}
}

// Append inserts one entry. The table has an update/delete-prevention trigger
// so this is the only mutation exposed.
func (r *PgHistoryRepository) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.KindInternal, "failed to marshal history metadata")
		}
	}

	query := `
		INSERT INTO approval_history
		    (id, submitter_email, work_date,
		     action, actor_email,
		     status_before, status_after,
		     reason, metadata, occurred_at)
		VALUES ($1, $2, $3,
		        $4, $5,
		        $6, $7,
		        $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.SubmitterEmail,
		entry.WorkDate,
		string(entry.Action),
		entry.ActorEmail,
		string(entry.StatusBefore),
		string(entry.StatusAfter),
		entry.Reason,
		metadataJSON,
		entry.OccurredAt,
	)
	return mapPgError(err, "failed to append approval history")
}

// ListByRecord returns the trail for one record, oldest first.
func (r *PgHistoryRepository) ListByRecord(ctx context.Context, key domain.RecordKey) ([]domain.HistoryEntry, error) {
	query := `
		SELECT id, submitter_email, work_date,
		       action, actor_email,
		       status_before, status_after,
		       reason, metadata, occurred_at
		FROM approval_history
		WHERE submitter_email = $1 AND work_date = $2
		ORDER BY occurred_at ASC
	`

	rows, err := r.db.Query(ctx, query, key.SubmitterEmail, key.WorkDate)
	if err != nil {
		return nil, mapPgError(err, "failed to get approval history")
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to get approval history")
	}
	return entries, nil
}

func scanHistoryEntry(sc rowScanner) (*domain.HistoryEntry, error) {
	entry := &domain.HistoryEntry{}
	var action, before, after string
	var metadataJSON []byte

	err := sc.Scan(
		&entry.ID,
		&entry.SubmitterEmail,
		&entry.WorkDate,
		&action,
		&entry.ActorEmail,
		&before,
		&after,
		&entry.Reason,
		&metadataJSON,
		&entry.OccurredAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "failed to scan history entry")
	}

	entry.Action = domain.Action(action)
	entry.StatusBefore = domain.Status(before)
	entry.StatusAfter = domain.Status(after)
	entry.WorkDate = domain.DateOf(entry.WorkDate)

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "failed to unmarshal history metadata")
		}
	}
	return entry, nil
}
