package service

import (
	"context"
	"sort"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/repository"
)

// RelationshipService manages time-bounded approver relationships and answers
// point-in-time questions about them.
type RelationshipService struct {
	repo           repository.RelationshipRepository
	log            *logger.Logger
	singleApprover bool
	now            func() time.Time
}

// NewRelationshipService creates a new RelationshipService. With
// singleApprover set, a subordinate may not have two overlapping relationships.
func NewRelationshipService(repo repository.RelationshipRepository, log *logger.Logger, singleApprover bool) *RelationshipService {
	return &RelationshipService{
		repo:           repo,
		log:            log,
		singleApprover: singleApprover,
		now:            time.Now,
	}
}

// Create validates and stores a new relationship.
func (s *RelationshipService) Create(
	ctx context.Context,
	subordinate, approver string,
	from time.Time,
	to *time.Time,
) (*domain.ApproverRelationship, error) {
	if !from.IsZero() {
		from = domain.DateOf(from)
	}
	if to != nil {
		d := domain.DateOf(*to)
		to = &d
	}

	rel, err := domain.NewApproverRelationship(subordinate, approver, from, to, s.now())
	if err != nil {
		return nil, err
	}

	if s.singleApprover {
		err = s.repo.CreateExclusive(ctx, &rel)
	} else {
		err = s.repo.Create(ctx, &rel)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("relationship_id", rel.ID).
		Str("subordinate", rel.SubordinateEmail).
		Str("approver", rel.ApproverEmail).
		Time("effective_from", rel.EffectiveFrom).
		Msg("Approver relationship created")

	return &rel, nil
}

// Get returns one relationship.
func (s *RelationshipService) Get(ctx context.Context, id string) (*domain.ApproverRelationship, error) {
	return s.repo.Get(ctx, id)
}

// EndRelationship narrows the window to end on to.
func (s *RelationshipService) EndRelationship(ctx context.Context, id string, to time.Time) (*domain.ApproverRelationship, error) {
	rel, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ended, err := rel.EndAt(domain.DateOf(to))
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEffectiveTo(ctx, id, *ended.EffectiveTo); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("relationship_id", id).
		Time("effective_to", *ended.EffectiveTo).
		Msg("Approver relationship ended")

	return &ended, nil
}

// Delete removes a relationship administratively.
func (s *RelationshipService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("relationship_id", id).Msg("Approver relationship deleted")
	return nil
}

// IsValidApprover reports whether approver may approve subordinate on date.
func (s *RelationshipService) IsValidApprover(ctx context.Context, subordinate, approver string, on time.Time) (bool, error) {
	subordinate, approver = domain.NormalizeEmail(subordinate), domain.NormalizeEmail(approver)
	if subordinate == approver {
		return false, nil
	}
	rels, err := s.repo.ListByPair(ctx, subordinate, approver)
	if err != nil {
		return false, err
	}
	on = domain.DateOf(on)
	for _, rel := range rels {
		if rel.Contains(on) {
			return true, nil
		}
	}
	return false, nil
}

// HasRelationshipHistory reports whether the pair ever had a relationship.
func (s *RelationshipService) HasRelationshipHistory(ctx context.Context, subordinate, approver string) (bool, error) {
	rels, err := s.repo.ListByPair(ctx, domain.NormalizeEmail(subordinate), domain.NormalizeEmail(approver))
	if err != nil {
		return false, err
	}
	return len(rels) > 0, nil
}

// CurrentApproverOf returns the approver of subordinate today.
func (s *RelationshipService) CurrentApproverOf(ctx context.Context, subordinate string) (string, bool, error) {
	return s.ApproverOn(ctx, subordinate, s.now())
}

// ApproverOn returns the approver of subordinate on date: the containing
// relationship with the latest start, ties going to the last inserted.
func (s *RelationshipService) ApproverOn(ctx context.Context, subordinate string, on time.Time) (string, bool, error) {
	valid, err := s.validOn(ctx, subordinate, on)
	if err != nil {
		return "", false, err
	}
	rel, ok := domain.MostRecent(valid)
	if !ok {
		return "", false, nil
	}
	return rel.ApproverEmail, true, nil
}

// ApproversOn returns every approver valid for subordinate on date, sorted.
func (s *RelationshipService) ApproversOn(ctx context.Context, subordinate string, on time.Time) ([]string, error) {
	valid, err := s.validOn(ctx, subordinate, on)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(valid))
	for _, rel := range valid {
		emails = append(emails, rel.ApproverEmail)
	}
	return sortedUnique(emails), nil
}

// SubordinatesOf lists who reports to approver on date; a nil date means today.
func (s *RelationshipService) SubordinatesOf(ctx context.Context, approver string, on *time.Time) ([]string, error) {
	at := s.now()
	if on != nil {
		at = *on
	}
	at = domain.DateOf(at)

	rels, err := s.repo.ListByApprover(ctx, domain.NormalizeEmail(approver))
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(rels))
	for _, rel := range rels {
		if rel.Contains(at) {
			emails = append(emails, rel.SubordinateEmail)
		}
	}
	return sortedUnique(emails), nil
}

// FindOverlapping returns the subordinate's relationships that intersect
// [from, to]. A nil to is unbounded.
func (s *RelationshipService) FindOverlapping(ctx context.Context, subordinate string, from time.Time, to *time.Time) ([]domain.ApproverRelationship, error) {
	from = domain.DateOf(from)
	if to != nil {
		end := domain.DateOf(*to)
		if err := domain.ValidateRange(from, end); err != nil {
			return nil, err
		}
		to = &end
	}
	rels, err := s.repo.ListBySubordinate(ctx, domain.NormalizeEmail(subordinate))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ApproverRelationship, 0, len(rels))
	for _, rel := range rels {
		if rel.OverlapsWithPeriod(from, to) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// ListBySubordinate is FindOverlapping over a closed range.
func (s *RelationshipService) ListBySubordinate(ctx context.Context, subordinate string, from, to time.Time) ([]domain.ApproverRelationship, error) {
	return s.FindOverlapping(ctx, subordinate, from, &to)
}

// ListByApprover returns every relationship where approver is the approver.
func (s *RelationshipService) ListByApprover(ctx context.Context, approver string) ([]domain.ApproverRelationship, error) {
	return s.repo.ListByApprover(ctx, domain.NormalizeEmail(approver))
}

func (s *RelationshipService) validOn(ctx context.Context, subordinate string, on time.Time) ([]domain.ApproverRelationship, error) {
	rels, err := s.repo.ListBySubordinate(ctx, domain.NormalizeEmail(subordinate))
	if err != nil {
		return nil, err
	}
	on = domain.DateOf(on)
	valid := rels[:0]
	for _, rel := range rels {
		if rel.Contains(on) {
			valid = append(valid, rel)
		}
	}
	return valid, nil
}

func sortedUnique(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != in[i-1] {
			out = append(out, v)
		}
	}
	return out
}
