package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

// ApproverRelationship is a time-bounded subordinate → approver edge.
// EffectiveTo == nil means the relationship never ends.
type ApproverRelationship struct {
	ID               string     `json:"id"`
	Seq              int64      `json:"-"`
	SubordinateEmail string     `json:"subordinate_email"`
	ApproverEmail    string     `json:"approver_email"`
	EffectiveFrom    time.Time  `json:"effective_from"`
	EffectiveTo      *time.Time `json:"effective_to,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewApproverRelationship validates input and builds an unsaved relationship.
func NewApproverRelationship(subordinate, approver string, from time.Time, to *time.Time, now time.Time) (ApproverRelationship, error) {
	sub, err := ValidateEmail("subordinate_email", subordinate)
	if err != nil {
		return ApproverRelationship{}, err
	}
	appr, err := ValidateEmail("approver_email", approver)
	if err != nil {
		return ApproverRelationship{}, err
	}
	if sub == appr {
		return ApproverRelationship{}, errors.InvalidInput("approver_email", "a person cannot be their own approver")
	}
	if from.IsZero() {
		return ApproverRelationship{}, errors.InvalidInput("effective_from", "effective_from is required")
	}
	if to != nil && to.Before(from) {
		return ApproverRelationship{}, errors.InvalidInput("effective_to", "effective_to must not be before effective_from")
	}

	return ApproverRelationship{
		ID:               uuid.NewString(),
		SubordinateEmail: sub,
		ApproverEmail:    appr,
		EffectiveFrom:    from,
		EffectiveTo:      cloneTime(to),
		CreatedAt:        now,
	}, nil
}

// IsOpenEnded reports a relationship without an end.
func (r ApproverRelationship) IsOpenEnded() bool {
	return r.EffectiveTo == nil
}

// Contains reports whether t lies in [EffectiveFrom, EffectiveTo].
func (r ApproverRelationship) Contains(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !t.After(*r.EffectiveTo)
}

// OverlapsWithPeriod reports whether the relationship window intersects
// [from, to]. A nil to is unbounded. A nil EffectiveTo is never compared as a
// finite date.
func (r ApproverRelationship) OverlapsWithPeriod(from time.Time, to *time.Time) bool {
	startsAfter := to != nil && r.EffectiveFrom.After(*to)
	endsBefore := r.EffectiveTo != nil && r.EffectiveTo.Before(from)
	return !(startsAfter || endsBefore)
}

// ErrNotNarrowing rejects an end date that would widen an ended window.
var ErrNotNarrowing = errors.InvalidInput("effective_to", "an ended relationship can only be narrowed")

// EndAt returns a copy narrowed to end at to. The window may only shrink.
func (r ApproverRelationship) EndAt(to time.Time) (ApproverRelationship, error) {
	if to.Before(r.EffectiveFrom) {
		return ApproverRelationship{}, errors.InvalidInput("effective_to", "effective_to must not be before effective_from")
	}
	if r.EffectiveTo != nil && to.After(*r.EffectiveTo) {
		return ApproverRelationship{}, ErrNotNarrowing
	}
	next := r
	next.EffectiveTo = &to
	return next, nil
}

// MostRecent picks the relationship with the latest EffectiveFrom; ties go to
// the highest insertion sequence. ok is false for an empty slice.
func MostRecent(rels []ApproverRelationship) (ApproverRelationship, bool) {
	if len(rels) == 0 {
		return ApproverRelationship{}, false
	}
	best := rels[0]
	for _, r := range rels[1:] {
		if r.EffectiveFrom.After(best.EffectiveFrom) ||
			(r.EffectiveFrom.Equal(best.EffectiveFrom) && r.Seq > best.Seq) {
			best = r
		}
	}
	return best, true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
