package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalEvent is emitted after a successful approve or reject.
type ApprovalEvent struct {
	EventID         string    `json:"event_id"`
	SubmitterEmail  string    `json:"submitter_email"`
	WorkDate        string    `json:"work_date"`
	Action          Action    `json:"action"`
	ApproverEmail   string    `json:"approver_email"`
	RejectionReason *string   `json:"rejection_reason"`
	Status          Status    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewApprovalEvent derives the event from the record produced by the transition.
func NewApprovalEvent(rec ApprovalRecord, action Action) ApprovalEvent {
	ev := ApprovalEvent{
		EventID:         uuid.NewString(),
		SubmitterEmail:  rec.SubmitterEmail,
		WorkDate:        rec.WorkDate.Format(DateLayout),
		Action:          action,
		RejectionReason: rec.RejectionReason,
		Status:          rec.Status,
		OccurredAt:      rec.UpdatedAt,
	}
	if rec.ApproverEmail != nil {
		ev.ApproverEmail = *rec.ApproverEmail
	}
	return ev
}

// HistoryEntry is one append-only line of a record's approval trail.
type HistoryEntry struct {
	ID             string                 `json:"id"`
	SubmitterEmail string                 `json:"submitter_email"`
	WorkDate       time.Time              `json:"work_date"`
	Action         Action                 `json:"action"`
	ActorEmail     string                 `json:"actor_email"`
	StatusBefore   Status                 `json:"status_before"`
	StatusAfter    Status                 `json:"status_after"`
	Reason         *string                `json:"reason,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt     time.Time              `json:"occurred_at"`
}

// NewHistoryEntry records the before/after of a transition.
func NewHistoryEntry(before, after ApprovalRecord, action Action, actor string) HistoryEntry {
	return HistoryEntry{
		ID:             uuid.NewString(),
		SubmitterEmail: after.SubmitterEmail,
		WorkDate:       after.WorkDate,
		Action:         action,
		ActorEmail:     actor,
		StatusBefore:   before.Status,
		StatusAfter:    after.Status,
		Reason:         after.RejectionReason,
		Metadata:       map[string]interface{}{"version": after.Version},
		OccurredAt:     after.UpdatedAt,
	}
}
