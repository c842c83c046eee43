package service

import (
	"context"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/metrics"
	"github.com/pesio-ai/be-hr-approvals/internal/repository"
)

// AuthorizationService decides whether an approver may act on a submitter's
// record for a work date. Decisions are derived on every call and never stored.
type AuthorizationService struct {
	relationships *RelationshipService
	authorities   repository.AuthorityRepository
	records       repository.ApprovalRecordRepository
	metrics       *metrics.Metrics
	log           *logger.Logger
	requireRank   bool
}

// NewAuthorizationService creates a new AuthorizationService. With requireRank
// set, approvers must also hold a rank above EMPLOYEE.
func NewAuthorizationService(
	relationships *RelationshipService,
	authorities repository.AuthorityRepository,
	records repository.ApprovalRecordRepository,
	m *metrics.Metrics,
	log *logger.Logger,
	requireRank bool,
) *AuthorizationService {
	return &AuthorizationService{
		relationships: relationships,
		authorities:   authorities,
		records:       records,
		metrics:       m,
		log:           log,
		requireRank:   requireRank,
	}
}

// Authorize evaluates, in order: self approval, relationship validity on the
// work date, optional rank, and whether the current status admits the action.
func (s *AuthorizationService) Authorize(
	ctx context.Context,
	approver, submitter string,
	workDate time.Time,
	action domain.Action,
) (domain.AuthorizationDecision, error) {
	if _, err := domain.ParseDecisionAction(string(action)); err != nil {
		return domain.AuthorizationDecision{}, err
	}
	approver, err := domain.ValidateEmail("approver_email", approver)
	if err != nil {
		return domain.AuthorizationDecision{}, err
	}
	submitter, err = domain.ValidateEmail("submitter_email", submitter)
	if err != nil {
		return domain.AuthorizationDecision{}, err
	}

	decision := domain.AuthorizationDecision{
		Action:         action,
		ApproverEmail:  approver,
		SubmitterEmail: submitter,
		WorkDate:       domain.DateOf(workDate),
	}

	reason, status, err := s.evaluate(ctx, decision)
	if err != nil {
		return domain.AuthorizationDecision{}, err
	}
	decision.Allowed = reason == domain.ReasonNone
	decision.Reason = reason
	decision.CurrentStatus = status

	s.record(decision)
	return decision, nil
}

// CanApprove is Authorize for the APPROVE action, reduced to a bool.
func (s *AuthorizationService) CanApprove(ctx context.Context, approver, submitter string, workDate time.Time) (bool, error) {
	d, err := s.Authorize(ctx, approver, submitter, workDate, domain.ActionApprove)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

func (s *AuthorizationService) evaluate(ctx context.Context, d domain.AuthorizationDecision) (domain.DenyReason, domain.Status, error) {
	if d.ApproverEmail == d.SubmitterEmail {
		return domain.ReasonSelfApproval, "", nil
	}

	valid, err := s.relationships.IsValidApprover(ctx, d.SubmitterEmail, d.ApproverEmail, d.WorkDate)
	if err != nil {
		return "", "", err
	}
	if !valid {
		hadOne, err := s.relationships.HasRelationshipHistory(ctx, d.SubmitterEmail, d.ApproverEmail)
		if err != nil {
			return "", "", err
		}
		if hadOne {
			return domain.ReasonRelationshipExpired, "", nil
		}
		return domain.ReasonNotAnApprover, "", nil
	}

	if s.requireRank {
		rec, err := s.authorities.Get(ctx, d.ApproverEmail)
		switch {
		case errors.Is(err, errors.KindNotFound):
			return domain.ReasonNotAnApprover, "", nil
		case err != nil:
			return "", "", err
		case !rec.HasApprovalAuthority():
			return domain.ReasonNotAnApprover, "", nil
		}
	}

	status := domain.StatusPending
	rec, err := s.records.Get(ctx, domain.RecordKey{SubmitterEmail: d.SubmitterEmail, WorkDate: d.WorkDate})
	switch {
	case errors.Is(err, errors.KindNotFound):
	case err != nil:
		return "", "", err
	default:
		status = rec.Status
	}
	if status == domain.StatusApproved {
		return domain.ReasonAlreadyFinal, status, nil
	}
	return domain.ReasonNone, status, nil
}

func (s *AuthorizationService) record(d domain.AuthorizationDecision) {
	label := "allowed"
	if !d.Allowed {
		label = string(d.Reason)
	}
	s.metrics.Decisions.WithLabelValues(string(d.Action), label).Inc()

	if d.Allowed {
		s.log.Debug().
			Str("action", string(d.Action)).
			Str("approver", d.ApproverEmail).
			Str("submitter", d.SubmitterEmail).
			Str("work_date", d.WorkDate.Format(domain.DateLayout)).
			Msg("Authorization granted")
		return
	}
	s.log.Warn().
		Str("action", string(d.Action)).
		Str("reason", string(d.Reason)).
		Str("approver", d.ApproverEmail).
		Str("submitter", d.SubmitterEmail).
		Str("work_date", d.WorkDate.Format(domain.DateLayout)).
		Msg("Authorization denied")
}
