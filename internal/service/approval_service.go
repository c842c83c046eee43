package service

import (
	"context"
	"strings"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/metrics"
	"github.com/pesio-ai/be-hr-approvals/internal/repository"
)

// EventPublisher delivers approval events. Delivery failures are reported but
// never fail the transition that produced the event.
type EventPublisher interface {
	PublishApprovalEvent(ctx context.Context, ev domain.ApprovalEvent) error
}

// ApprovalService runs the approval workflow: authorize, transition with
// compare-and-swap, then record history and emit the event.
type ApprovalService struct {
	records       repository.ApprovalRecordRepository
	history       repository.HistoryRepository
	authz         *AuthorizationService
	relationships *RelationshipService
	publisher     EventPublisher
	metrics       *metrics.Metrics
	log           *logger.Logger
	now           func() time.Time
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	records repository.ApprovalRecordRepository,
	history repository.HistoryRepository,
	authz *AuthorizationService,
	relationships *RelationshipService,
	publisher EventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *ApprovalService {
	return &ApprovalService{
		records:       records,
		history:       history,
		authz:         authz,
		relationships: relationships,
		publisher:     publisher,
		metrics:       m,
		log:           log,
		now:           time.Now,
	}
}

// ── Transitions ───────────────────────────────────────────────────────────────

// Approve approves submitter's record for workDate on behalf of approver.
func (s *ApprovalService) Approve(ctx context.Context, approver, submitter string, workDate time.Time) (*domain.ApprovalRecord, error) {
	rec, err := s.decide(ctx, domain.ActionApprove, approver, submitter, workDate, func(cur domain.ApprovalRecord, now time.Time) (domain.ApprovalRecord, error) {
		return cur.Approve(approver, now)
	})
	s.countTransition(domain.ActionApprove, err)
	return rec, err
}

// Reject rejects submitter's record for workDate. reason must not be blank.
func (s *ApprovalService) Reject(ctx context.Context, approver, submitter string, workDate time.Time, reason string) (*domain.ApprovalRecord, error) {
	if strings.TrimSpace(reason) == "" {
		err := errors.InvalidInput("reason", "rejection reason is required")
		s.countTransition(domain.ActionReject, err)
		return nil, err
	}
	rec, err := s.decide(ctx, domain.ActionReject, approver, submitter, workDate, func(cur domain.ApprovalRecord, now time.Time) (domain.ApprovalRecord, error) {
		return cur.Reject(approver, reason, now)
	})
	s.countTransition(domain.ActionReject, err)
	return rec, err
}

// Resubmit returns the record to PENDING. Only the submitter may resubmit.
// Resubmission is recorded in history but publishes no event.
func (s *ApprovalService) Resubmit(ctx context.Context, actor, submitter string, workDate time.Time) (*domain.ApprovalRecord, error) {
	rec, err := s.resubmit(ctx, actor, submitter, workDate)
	s.countTransition(domain.ActionResubmit, err)
	return rec, err
}

func (s *ApprovalService) resubmit(ctx context.Context, actor, submitter string, workDate time.Time) (*domain.ApprovalRecord, error) {
	actor, err := domain.ValidateEmail("actor_email", actor)
	if err != nil {
		return nil, err
	}
	submitter, err = domain.ValidateEmail("submitter_email", submitter)
	if err != nil {
		return nil, err
	}
	workDate = domain.DateOf(workDate)

	if err := requireOwner(actor, submitter, workDate, "only the submitter can resubmit a record"); err != nil {
		return nil, err
	}

	now := s.now()
	current, err := s.records.EnsurePending(ctx, domain.NewPendingRecord(submitter, workDate, now))
	if err != nil {
		return nil, err
	}
	next := current.Resubmit(now)
	if err := s.records.Transition(ctx, *current, next); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, domain.NewHistoryEntry(*current, next, domain.ActionResubmit, actor))

	s.log.Info().
		Str("submitter", submitter).
		Str("work_date", workDate.Format(domain.DateLayout)).
		Str("status_before", string(current.Status)).
		Msg("Approval record resubmitted")

	return &next, nil
}

type transitionFunc func(current domain.ApprovalRecord, now time.Time) (domain.ApprovalRecord, error)

// decide authorizes the action, then applies transition to the current record
// with a single conditional write.
func (s *ApprovalService) decide(
	ctx context.Context,
	action domain.Action,
	approver, submitter string,
	workDate time.Time,
	transition transitionFunc,
) (*domain.ApprovalRecord, error) {
	decision, err := s.authz.Authorize(ctx, approver, submitter, workDate, action)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, decision.Err()
	}

	now := s.now()
	current, err := s.records.EnsurePending(ctx, domain.NewPendingRecord(decision.SubmitterEmail, decision.WorkDate, now))
	if err != nil {
		return nil, err
	}
	next, err := transition(*current, now)
	if err != nil {
		return nil, err
	}
	if err := s.records.Transition(ctx, *current, next); err != nil {
		s.log.Warn().Err(err).
			Str("action", string(action)).
			Str("submitter", decision.SubmitterEmail).
			Str("work_date", decision.WorkDate.Format(domain.DateLayout)).
			Msg("Approval transition lost to a concurrent update")
		return nil, err
	}

	s.appendHistory(ctx, domain.NewHistoryEntry(*current, next, action, decision.ApproverEmail))
	s.publish(ctx, domain.NewApprovalEvent(next, action))

	s.log.Info().
		Str("action", string(action)).
		Str("approver", decision.ApproverEmail).
		Str("submitter", decision.SubmitterEmail).
		Str("work_date", decision.WorkDate.Format(domain.DateLayout)).
		Str("status", string(next.Status)).
		Msg("Approval record updated")

	return &next, nil
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// EnsurePending creates the implicit PENDING record if none exists.
func (s *ApprovalService) EnsurePending(ctx context.Context, submitter string, workDate time.Time) (*domain.ApprovalRecord, error) {
	submitter, err := domain.ValidateEmail("submitter_email", submitter)
	if err != nil {
		return nil, err
	}
	return s.records.EnsurePending(ctx, domain.NewPendingRecord(submitter, workDate, s.now()))
}

// Get returns the stored record.
func (s *ApprovalService) Get(ctx context.Context, submitter string, workDate time.Time) (*domain.ApprovalRecord, error) {
	return s.records.Get(ctx, domain.RecordKey{
		SubmitterEmail: domain.NormalizeEmail(submitter),
		WorkDate:       domain.DateOf(workDate),
	})
}

// Remove destroys the record once the underlying work records for the date
// are gone. Only the submitter may remove a record, and approved records
// cannot be removed.
func (s *ApprovalService) Remove(ctx context.Context, actor, submitter string, workDate time.Time) error {
	actor, err := domain.ValidateEmail("actor_email", actor)
	if err != nil {
		return err
	}
	submitter, err = domain.ValidateEmail("submitter_email", submitter)
	if err != nil {
		return err
	}
	workDate = domain.DateOf(workDate)
	if err := requireOwner(actor, submitter, workDate, "only the submitter can remove a record"); err != nil {
		return err
	}

	current, err := s.Get(ctx, submitter, workDate)
	if err != nil {
		return err
	}
	if !current.IsEditable() {
		return errors.InvalidState("approved records cannot be removed", string(current.Status), "")
	}
	if err := s.records.Delete(ctx, *current); err != nil {
		return err
	}

	s.log.Info().
		Str("actor", actor).
		Str("submitter", current.SubmitterEmail).
		Str("work_date", current.WorkDate.Format(domain.DateLayout)).
		Msg("Approval record removed")
	return nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

// ListBySubmitter returns a submitter's records with work dates in [from, to].
func (s *ApprovalService) ListBySubmitter(ctx context.Context, submitter string, from, to time.Time) ([]domain.ApprovalRecord, error) {
	from, to = domain.DateOf(from), domain.DateOf(to)
	if err := domain.ValidateRange(from, to); err != nil {
		return nil, err
	}
	return s.records.ListBySubmitter(ctx, domain.NormalizeEmail(submitter), from, to)
}

// PendingFor returns PENDING records in [from, to] that approver is valid for
// on each record's own work date.
func (s *ApprovalService) PendingFor(ctx context.Context, approver string, from, to time.Time) ([]domain.ApprovalRecord, error) {
	from, to = domain.DateOf(from), domain.DateOf(to)
	if err := domain.ValidateRange(from, to); err != nil {
		return nil, err
	}

	rels, err := s.relationships.ListByApprover(ctx, approver)
	if err != nil {
		return nil, err
	}
	bySubordinate := make(map[string][]domain.ApproverRelationship)
	for _, rel := range rels {
		if rel.OverlapsWithPeriod(from, &to) {
			bySubordinate[rel.SubordinateEmail] = append(bySubordinate[rel.SubordinateEmail], rel)
		}
	}
	if len(bySubordinate) == 0 {
		return []domain.ApprovalRecord{}, nil
	}

	subordinates := make([]string, 0, len(bySubordinate))
	for sub := range bySubordinate {
		subordinates = append(subordinates, sub)
	}
	pending, err := s.records.ListPending(ctx, sortedUnique(subordinates), from, to)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ApprovalRecord, 0, len(pending))
	for _, rec := range pending {
		for _, rel := range bySubordinate[rec.SubmitterEmail] {
			if rel.Contains(rec.WorkDate) {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

// History returns the approval trail of one record, oldest first.
func (s *ApprovalService) History(ctx context.Context, submitter string, workDate time.Time) ([]domain.HistoryEntry, error) {
	return s.history.ListByRecord(ctx, domain.RecordKey{
		SubmitterEmail: domain.NormalizeEmail(submitter),
		WorkDate:       domain.DateOf(workDate),
	})
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// appendHistory writes a history entry and logs a warning on failure (never returns error).
func (s *ApprovalService) appendHistory(ctx context.Context, entry domain.HistoryEntry) {
	if err := s.history.Append(ctx, &entry); err != nil {
		s.log.Warn().Err(err).
			Str("submitter", entry.SubmitterEmail).
			Str("action", string(entry.Action)).
			Msg("Failed to write approval history entry")
	}
}

// publish hands the event to the sink; failures are logged and counted only.
func (s *ApprovalService) publish(ctx context.Context, ev domain.ApprovalEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishApprovalEvent(ctx, ev); err != nil {
		s.metrics.EventsPublished.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).
			Str("event_id", ev.EventID).
			Str("action", string(ev.Action)).
			Msg("Failed to publish approval event (non-fatal)")
		return
	}
	s.metrics.EventsPublished.WithLabelValues("ok").Inc()
}

// requireOwner denies actions on another person's record. Both emails must
// already be normalized.
func requireOwner(actor, submitter string, workDate time.Time, message string) error {
	if actor == submitter {
		return nil
	}
	return errors.Unauthorized(errors.CauseOwnership, "NOT_OWNER", message, map[string]string{
		"actor_email":     actor,
		"submitter_email": submitter,
		"work_date":       workDate.Format(domain.DateLayout),
	})
}

func (s *ApprovalService) countTransition(action domain.Action, err error) {
	s.metrics.Transitions.WithLabelValues(string(action), transitionResult(err)).Inc()
}

func transitionResult(err error) string {
	if err == nil {
		return "ok"
	}
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return "invalid"
	case errors.KindAuthorization:
		return "denied"
	case errors.KindInvalidState:
		return "conflict"
	case errors.KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}
