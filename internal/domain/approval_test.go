package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

func TestApprovalRecord_Approve(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rec := NewPendingRecord("a@x.com", created, created)
	require.NoError(t, rec.CheckInvariants())
	assert.True(t, rec.CanApprove())
	assert.True(t, rec.IsEditable())

	at := created.Add(time.Hour)
	approved, err := rec.Approve("b@x.com", at)
	require.NoError(t, err)
	require.NoError(t, approved.CheckInvariants())

	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "b@x.com", *approved.ApproverEmail)
	assert.Equal(t, at, *approved.ApprovedAt)
	assert.Equal(t, rec.Version+1, approved.Version)
	assert.False(t, approved.IsEditable())
	assert.Equal(t, StatusPending, rec.Status, "receiver must not change")

	_, err = approved.Approve("b@x.com", at.Add(time.Minute))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindInvalidState))

	again, err := approved.Resubmit(at.Add(2 * time.Minute)).Approve("c@x.com", at.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, again.Status)
	assert.Equal(t, "c@x.com", *again.ApproverEmail)
	assert.Equal(t, at.Add(3*time.Minute), *again.ApprovedAt)
}

func TestApprovalRecord_RejectRequiresReason(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rec := NewPendingRecord("a@x.com", now, now)

	for _, reason := range []string{"", "   "} {
		out, err := rec.Reject("b@x.com", reason, now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.KindValidation))
		assert.Equal(t, ApprovalRecord{}, out)
	}
	assert.Equal(t, StatusPending, rec.Status)
	assert.Nil(t, rec.RejectionReason)
}

func TestApprovalRecord_RejectThenResubmit(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rec := NewPendingRecord("a@x.com", now, now)

	rejected, err := rec.Reject("b@x.com", "needs more detail", now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, rejected.CheckInvariants())
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "needs more detail", *rejected.RejectionReason)
	assert.True(t, rejected.CanApprove())

	rejectedAgain, err := rejected.Reject("b@x.com", "still missing", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "still missing", *rejectedAgain.RejectionReason)

	pending := rejectedAgain.Resubmit(now.Add(3 * time.Hour))
	require.NoError(t, pending.CheckInvariants())
	assert.Equal(t, StatusPending, pending.Status)
	assert.Nil(t, pending.RejectionReason)
	assert.Nil(t, pending.ApproverEmail)
	assert.Nil(t, pending.ApprovedAt)
}

func TestApprovalRecord_RejectApprovedFails(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	approved, err := NewPendingRecord("a@x.com", now, now).Approve("b@x.com", now)
	require.NoError(t, err)

	_, err = approved.Reject("b@x.com", "too late", now)
	require.Error(t, err)
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindInvalidState, e.Kind)
	assert.Equal(t, "APPROVED", e.Details["current_status"])
}

func TestApprovalRecord_ApproveClearsRejectionReason(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rejected, err := NewPendingRecord("a@x.com", now, now).Reject("b@x.com", "typo", now)
	require.NoError(t, err)

	approved, err := rejected.Approve("b@x.com", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, approved.RejectionReason)
	require.NoError(t, approved.CheckInvariants())
}

func TestNewPendingRecord_TruncatesDate(t *testing.T) {
	rec := NewPendingRecord(" A@X.com ", time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC), time.Now())
	assert.Equal(t, "a@x.com", rec.SubmitterEmail)
	assert.Equal(t, "a@x.com/2025-06-01", rec.Key().String())
}

func TestAuthorizationDecision_Err(t *testing.T) {
	base := AuthorizationDecision{
		Action:         ActionApprove,
		ApproverEmail:  "b@x.com",
		SubmitterEmail: "a@x.com",
		WorkDate:       day("2025-06-01"),
	}
	allowed := base
	allowed.Allowed = true
	assert.NoError(t, allowed.Err())

	tests := []struct {
		reason DenyReason
		cause  errors.AuthzCause
	}{
		{ReasonSelfApproval, errors.CauseOwnership},
		{ReasonNotAnApprover, errors.CauseAuthority},
		{ReasonRelationshipExpired, errors.CauseAuthority},
		{ReasonAlreadyFinal, errors.CauseStatus},
	}
	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			d := base
			d.Reason = tt.reason
			e, ok := errors.As(d.Err())
			require.True(t, ok)
			assert.Equal(t, errors.KindAuthorization, e.Kind)
			assert.Equal(t, tt.cause, e.Cause)
			assert.Equal(t, string(tt.reason), e.Code)
			assert.Equal(t, "2025-06-01", e.Details["work_date"])
		})
	}
}

func TestNewApprovalEvent(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rejected, err := NewPendingRecord("a@x.com", now, now).Reject("b@x.com", "needs more detail", now)
	require.NoError(t, err)

	ev := NewApprovalEvent(rejected, ActionReject)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "2025-06-01", ev.WorkDate)
	assert.Equal(t, "b@x.com", ev.ApproverEmail)
	assert.Equal(t, StatusRejected, ev.Status)
	require.NotNil(t, ev.RejectionReason)
	assert.Equal(t, now, ev.OccurredAt)
}
