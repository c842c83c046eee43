package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", InvalidInput("email", "malformed"), KindValidation},
		{"not found", NotFound("approval_record", "a@x.com/2025-01-01"), KindNotFound},
		{"invalid state", InvalidState("already approved", "APPROVED", "APPROVED"), KindInvalidState},
		{"authorization", Unauthorized(CauseAuthority, "NOT_AN_APPROVER", "no relationship", nil), KindAuthorization},
		{"wrapped internal", Wrap(context.DeadlineExceeded, KindInternal, "query failed"), KindInternal},
		{"plain error", fmt.Errorf("boom"), KindInternal},
		{"wrapped tagged", fmt.Errorf("outer: %w", InvalidInput("reason", "required")), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	err := Wrap(context.Canceled, KindInternal, "failed to load relationship")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "failed to load relationship")

	assert.NoError(t, Wrap(nil, KindInternal, "nothing"))
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	base := Unauthorized(CauseStatus, "ALREADY_FINAL", "record already approved", map[string]string{"approver": "b@x.com"})
	withTarget := base.WithDetail("target", "a@x.com")

	assert.Len(t, base.Details, 1)
	assert.Equal(t, []string{"approver", "target"}, withTarget.DetailKeys())
	assert.Equal(t, CauseStatus, withTarget.Cause)
}

func TestError_Message(t *testing.T) {
	err := InvalidInput("effective_to", "effective_to must not be before effective_from")
	assert.Equal(t, "VALIDATION: effective_to must not be before effective_from (field effective_to)", err.Error())
}
