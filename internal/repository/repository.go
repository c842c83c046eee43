// Package repository defines the storage contracts of the approval service and
// their PostgreSQL implementations. The in-memory implementations live in the
// memory subpackage.
package repository

import (
	"context"
	"time"

	ferrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

// AuthorityRepository stores the latest authority record per email.
type AuthorityRepository interface {
	Get(ctx context.Context, email string) (*domain.AuthorityRecord, error)
	Search(ctx context.Context, query string) ([]domain.AuthorityRecord, error)
	FindByOrgUnit(ctx context.Context, level int, code string) ([]domain.AuthorityRecord, error)
	Upsert(ctx context.Context, rec *domain.AuthorityRecord) error
}

// RelationshipRepository stores approver relationships. List methods return
// rows ordered by effective_from DESC, then insertion sequence DESC.
type RelationshipRepository interface {
	// Create stores rel and fills Seq and CreatedAt.
	Create(ctx context.Context, rel *domain.ApproverRelationship) error
	// CreateExclusive is Create that fails with a validation error when rel
	// overlaps another relationship of the same subordinate.
	CreateExclusive(ctx context.Context, rel *domain.ApproverRelationship) error
	Get(ctx context.Context, id string) (*domain.ApproverRelationship, error)
	// UpdateEffectiveTo narrows the window atomically. It fails with a
	// validation error when to lies outside the stored window.
	UpdateEffectiveTo(ctx context.Context, id string, to time.Time) error
	Delete(ctx context.Context, id string) error
	ListBySubordinate(ctx context.Context, subordinate string) ([]domain.ApproverRelationship, error)
	ListByApprover(ctx context.Context, approver string) ([]domain.ApproverRelationship, error)
	ListByPair(ctx context.Context, subordinate, approver string) ([]domain.ApproverRelationship, error)
}

// ApprovalRecordRepository stores one approval record per (submitter, work date).
type ApprovalRecordRepository interface {
	Get(ctx context.Context, key domain.RecordKey) (*domain.ApprovalRecord, error)
	// EnsurePending inserts rec when no record exists for its key and returns
	// the stored record either way.
	EnsurePending(ctx context.Context, rec domain.ApprovalRecord) (*domain.ApprovalRecord, error)
	// Transition replaces current with next only if the stored status and
	// version still equal current's. A lost race is an invalid-state error.
	Transition(ctx context.Context, current, next domain.ApprovalRecord) error
	// Delete removes current under the same compare-and-swap rule.
	Delete(ctx context.Context, current domain.ApprovalRecord) error
	ListBySubmitter(ctx context.Context, submitter string, from, to time.Time) ([]domain.ApprovalRecord, error)
	ListPending(ctx context.Context, submitters []string, from, to time.Time) ([]domain.ApprovalRecord, error)
}

// HistoryRepository is the append-only approval trail.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	ListByRecord(ctx context.Context, key domain.RecordKey) ([]domain.HistoryEntry, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// mapPgError converts driver errors into tagged errors. Constraint violations
// become validation errors; anything else is internal.
func mapPgError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if ferrors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return errors.Wrap(err, errors.KindValidation, "record already exists")
		case "23514": // check_violation
			e := errors.InvalidInput(pgErr.ConstraintName, "constraint violated: "+pgErr.ConstraintName)
			e.Err = err
			return e
		}
	}
	return errors.Wrap(err, errors.KindInternal, msg)
}

func isNoRows(err error) bool {
	return ferrors.Is(err, pgx.ErrNoRows)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
