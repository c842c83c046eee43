package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

// Status is the approval state of one (submitter, work date).
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ParseStatus validates a stored status value.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown approval status %q", s)
	}
}

// RecordKey identifies an ApprovalRecord.
type RecordKey struct {
	SubmitterEmail string
	WorkDate       time.Time
}

func (k RecordKey) String() string {
	return k.SubmitterEmail + "/" + k.WorkDate.Format(DateLayout)
}

// ApprovalRecord is an immutable snapshot of the approval aggregate.
// Transitions return a new snapshot with Version incremented.
type ApprovalRecord struct {
	SubmitterEmail  string     `json:"submitter_email"`
	WorkDate        time.Time  `json:"work_date"`
	Status          Status     `json:"status"`
	ApproverEmail   *string    `json:"approver_email,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewPendingRecord is the implicit initial state for a submitter's work date.
func NewPendingRecord(submitter string, workDate, now time.Time) ApprovalRecord {
	return ApprovalRecord{
		SubmitterEmail: NormalizeEmail(submitter),
		WorkDate:       DateOf(workDate),
		Status:         StatusPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Key returns the aggregate identity.
func (r ApprovalRecord) Key() RecordKey {
	return RecordKey{SubmitterEmail: r.SubmitterEmail, WorkDate: r.WorkDate}
}

// CanApprove is true while the record is PENDING or REJECTED.
func (r ApprovalRecord) CanApprove() bool {
	return r.Status == StatusPending || r.Status == StatusRejected
}

// CanReject follows the same rule as CanApprove.
func (r ApprovalRecord) CanReject() bool {
	return r.CanApprove()
}

// IsEditable is true unless the record is APPROVED.
func (r ApprovalRecord) IsEditable() bool {
	return r.Status != StatusApproved
}

// Approve moves the record to APPROVED.
func (r ApprovalRecord) Approve(approver string, now time.Time) (ApprovalRecord, error) {
	approver, err := ValidateEmail("approver_email", approver)
	if err != nil {
		return ApprovalRecord{}, err
	}
	if !r.CanApprove() {
		return ApprovalRecord{}, errors.InvalidState("record is already approved", string(r.Status), string(StatusApproved))
	}
	next := r.advance(now)
	next.Status = StatusApproved
	next.ApproverEmail = &approver
	next.ApprovedAt = &now
	next.RejectionReason = nil
	return next, nil
}

// Reject moves the record to REJECTED. reason must not be blank.
func (r ApprovalRecord) Reject(approver, reason string, now time.Time) (ApprovalRecord, error) {
	approver, err := ValidateEmail("approver_email", approver)
	if err != nil {
		return ApprovalRecord{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ApprovalRecord{}, errors.InvalidInput("reason", "rejection reason is required")
	}
	if !r.CanReject() {
		return ApprovalRecord{}, errors.InvalidState("an approved record must be resubmitted before it can be rejected", string(r.Status), string(StatusRejected))
	}
	next := r.advance(now)
	next.Status = StatusRejected
	next.ApproverEmail = &approver
	next.ApprovedAt = &now
	next.RejectionReason = &reason
	return next, nil
}

// Resubmit returns the record to PENDING from any state.
func (r ApprovalRecord) Resubmit(now time.Time) ApprovalRecord {
	next := r.advance(now)
	next.Status = StatusPending
	next.ApproverEmail = nil
	next.ApprovedAt = nil
	next.RejectionReason = nil
	return next
}

// CheckInvariants validates the status/field coupling of a snapshot.
func (r ApprovalRecord) CheckInvariants() error {
	if (r.RejectionReason != nil) != (r.Status == StatusRejected) {
		return fmt.Errorf("rejection_reason must be set iff status is %s (status=%s)", StatusRejected, r.Status)
	}
	pending := r.Status == StatusPending
	if (r.ApproverEmail == nil) != pending || (r.ApprovedAt == nil) != pending {
		return fmt.Errorf("approver_email/approved_at must be empty iff status is %s (status=%s)", StatusPending, r.Status)
	}
	return nil
}

func (r ApprovalRecord) advance(now time.Time) ApprovalRecord {
	next := r
	next.Version = r.Version + 1
	next.UpdatedAt = now
	return next
}
