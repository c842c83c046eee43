package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-hr-approvals/internal/database"
	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

const relationshipColumns = `
	id, seq, subordinate_email, approver_email,
	effective_from, effective_to, created_at`

const relationshipOrder = `ORDER BY effective_from DESC, seq DESC`

// PgRelationshipRepository handles approver_relationships.
type PgRelationshipRepository struct {
	db *database.DB
}

// NewRelationshipRepository creates a new PgRelationshipRepository.
func NewRelationshipRepository(db *database.DB) *PgRelationshipRepository {
	return &PgRelationshipRepository{db: db}
}

// Create inserts a relationship.
func (r *PgRelationshipRepository) Create(ctx context.Context, rel *domain.ApproverRelationship) error {
	return r.insert(ctx, r.db, rel)
}

// CreateExclusive inserts rel unless it overlaps another relationship of the
// same subordinate. A transaction-scoped advisory lock on the subordinate
// serializes concurrent creates.
func (r *PgRelationshipRepository) CreateExclusive(ctx context.Context, rel *domain.ApproverRelationship) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rel.SubordinateEmail); err != nil {
			return mapPgError(err, "failed to lock subordinate")
		}

		query := `
			SELECT id FROM approver_relationships
			WHERE subordinate_email = $1
			  AND NOT (($3::timestamptz IS NOT NULL AND effective_from > $3)
			        OR (effective_to IS NOT NULL AND effective_to < $2))
			LIMIT 1
		`
		var existingID string
		err := tx.QueryRow(ctx, query, rel.SubordinateEmail, rel.EffectiveFrom, rel.EffectiveTo).Scan(&existingID)
		switch {
		case err == nil:
			return errors.InvalidInput("effective_from", "relationship overlaps an existing approver relationship").
				WithDetail("relationship_id", existingID)
		case !isNoRows(err):
			return mapPgError(err, "failed to check overlapping relationships")
		}

		return r.insert(ctx, tx, rel)
	})
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgRelationshipRepository) insert(ctx context.Context, q queryRower, rel *domain.ApproverRelationship) error {
	query := `
		INSERT INTO approver_relationships
		    (id, subordinate_email, approver_email, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq, created_at
	`

	err := q.QueryRow(ctx, query,
		rel.ID,
		rel.SubordinateEmail,
		rel.ApproverEmail,
		rel.EffectiveFrom,
		rel.EffectiveTo,
	).Scan(&rel.Seq, &rel.CreatedAt)
	if err != nil {
		return mapPgError(err, "failed to create approver relationship")
	}
	return nil
}

// Get retrieves a relationship by id.
func (r *PgRelationshipRepository) Get(ctx context.Context, id string) (*domain.ApproverRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM approver_relationships WHERE id = $1`

	rel, err := scanRelationship(r.db.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, errors.NotFound("approver_relationship", id)
	}
	if err != nil {
		return nil, mapPgError(err, "failed to get approver relationship")
	}
	return rel, nil
}

// UpdateEffectiveTo narrows the window to end on to. The write only applies
// while to still lies inside the stored window.
func (r *PgRelationshipRepository) UpdateEffectiveTo(ctx context.Context, id string, to time.Time) error {
	query := `
		UPDATE approver_relationships
		SET effective_to = $2
		WHERE id = $1
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to >= $2)
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, to).Scan(&returnedID)
	if !isNoRows(err) {
		return mapPgError(err, "failed to end approver relationship")
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM approver_relationships WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapPgError(err, "failed to end approver relationship")
	}
	if !exists {
		return errors.NotFound("approver_relationship", id)
	}
	return domain.ErrNotNarrowing
}

// Delete removes a relationship.
func (r *PgRelationshipRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM approver_relationships WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err, "failed to delete approver relationship")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("approver_relationship", id)
	}
	return nil
}

// ListBySubordinate returns every relationship of a subordinate.
func (r *PgRelationshipRepository) ListBySubordinate(ctx context.Context, subordinate string) ([]domain.ApproverRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM approver_relationships
		WHERE subordinate_email = $1 ` + relationshipOrder
	return r.list(ctx, query, subordinate)
}

// ListByApprover returns every relationship where email is the approver.
func (r *PgRelationshipRepository) ListByApprover(ctx context.Context, approver string) ([]domain.ApproverRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM approver_relationships
		WHERE approver_email = $1 ` + relationshipOrder
	return r.list(ctx, query, approver)
}

// ListByPair returns the relationships between one subordinate and one approver.
func (r *PgRelationshipRepository) ListByPair(ctx context.Context, subordinate, approver string) ([]domain.ApproverRelationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM approver_relationships
		WHERE subordinate_email = $1 AND approver_email = $2 ` + relationshipOrder
	return r.list(ctx, query, subordinate, approver)
}

func (r *PgRelationshipRepository) list(ctx context.Context, query string, args ...any) ([]domain.ApproverRelationship, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "failed to list approver relationships")
	}
	defer rows.Close()

	rels := []domain.ApproverRelationship{}
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan approver relationship")
		}
		rels = append(rels, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to list approver relationships")
	}
	return rels, nil
}

func scanRelationship(row rowScanner) (*domain.ApproverRelationship, error) {
	rel := &domain.ApproverRelationship{}
	err := row.Scan(
		&rel.ID,
		&rel.Seq,
		&rel.SubordinateEmail,
		&rel.ApproverEmail,
		&rel.EffectiveFrom,
		&rel.EffectiveTo,
		&rel.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rel.EffectiveFrom = rel.EffectiveFrom.UTC()
	rel.EffectiveTo = utcPtr(rel.EffectiveTo)
	return rel, nil
}
