package domain

import (
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

// Action is a command against an approval record.
type Action string

const (
	ActionApprove  Action = "APPROVE"
	ActionReject   Action = "REJECT"
	ActionResubmit Action = "RESUBMIT"
)

// ParseDecisionAction accepts the two actions that need authorization.
func ParseDecisionAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionApprove, ActionReject:
		return a, nil
	default:
		return "", errors.InvalidInput("action", "action must be APPROVE or REJECT")
	}
}

// DenyReason explains a denied authorization.
type DenyReason string

const (
	ReasonNone                DenyReason = ""
	ReasonNotAnApprover       DenyReason = "NOT_AN_APPROVER"
	ReasonRelationshipExpired DenyReason = "RELATIONSHIP_EXPIRED"
	ReasonSelfApproval        DenyReason = "SELF_APPROVAL"
	ReasonAlreadyFinal        DenyReason = "ALREADY_FINAL"
)

// AuthorizationDecision is the derived allow/deny outcome. It is never stored.
type AuthorizationDecision struct {
	Allowed        bool       `json:"allowed"`
	Reason         DenyReason `json:"reason,omitempty"`
	Action         Action     `json:"action"`
	ApproverEmail  string     `json:"approver_email"`
	SubmitterEmail string     `json:"submitter_email"`
	WorkDate       time.Time  `json:"work_date"`
	CurrentStatus  Status     `json:"current_status,omitempty"`
}

// Err converts a denial into an authorization error carrying audit context.
// It returns nil for an allowed decision.
func (d AuthorizationDecision) Err() error {
	if d.Allowed {
		return nil
	}
	cause := errors.CauseAuthority
	msg := "approver has no valid relationship with the submitter"
	switch d.Reason {
	case ReasonSelfApproval:
		cause = errors.CauseOwnership
		msg = "approvers cannot act on their own records"
	case ReasonRelationshipExpired:
		msg = "approver relationship is not effective on the work date"
	case ReasonAlreadyFinal:
		cause = errors.CauseStatus
		msg = "record is already final for this action"
	}
	details := map[string]string{
		"approver_email":  d.ApproverEmail,
		"submitter_email": d.SubmitterEmail,
		"work_date":       d.WorkDate.Format(DateLayout),
		"action":          string(d.Action),
	}
	if d.CurrentStatus != "" {
		details["current_status"] = string(d.CurrentStatus)
	}
	return errors.Unauthorized(cause, string(d.Reason), msg, details)
}
