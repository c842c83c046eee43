package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errors.Kind
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "authority_records_pkey"}, errors.KindValidation},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "approver_relationships_no_self_check"}, errors.KindValidation},
		{"other pg error", &pgconn.PgError{Code: "40001"}, errors.KindInternal},
		{"plain error", fmt.Errorf("connection reset"), errors.KindInternal},
		{"already tagged", errors.NotFound("approval_record", "x"), errors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapPgError(tt.err, "failed")
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}

	assert.NoError(t, mapPgError(nil, "failed"))
}

func TestMapPgError_CheckViolationNamesConstraint(t *testing.T) {
	err := mapPgError(&pgconn.PgError{Code: "23514", ConstraintName: "approval_records_reason_check"}, "failed")
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "approval_records_reason_check", e.Field)

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(pgx.ErrNoRows))
	assert.True(t, isNoRows(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(nil))
}

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
