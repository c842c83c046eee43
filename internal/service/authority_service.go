package service

import (
	"context"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/repository"
)

// AuthorityService is the read side of the authority registry.
type AuthorityService struct {
	repo repository.AuthorityRepository
	log  *logger.Logger
}

// NewAuthorityService creates a new AuthorityService.
func NewAuthorityService(repo repository.AuthorityRepository, log *logger.Logger) *AuthorityService {
	return &AuthorityService{repo: repo, log: log}
}

// Get returns the authority record for email.
func (s *AuthorityService) Get(ctx context.Context, email string) (*domain.AuthorityRecord, error) {
	email, err := domain.ValidateEmail("email", email)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, email)
}

// GetRank returns the rank of email, or a not-found error.
func (s *AuthorityService) GetRank(ctx context.Context, email string) (domain.Rank, error) {
	rec, err := s.Get(ctx, email)
	if err != nil {
		return domain.RankEmployee, err
	}
	return rec.Rank, nil
}

// HasApprovalAuthority reports whether email ranks above EMPLOYEE.
func (s *AuthorityService) HasApprovalAuthority(ctx context.Context, email string) (bool, error) {
	rank, err := s.GetRank(ctx, email)
	if err != nil {
		return false, err
	}
	return rank.HasApprovalAuthority(), nil
}

// CompareRank orders a relative to b.
func (s *AuthorityService) CompareRank(a, b domain.Rank) domain.Comparison {
	return domain.CompareRank(a, b)
}

// FindByOrgUnit lists members of an org unit at level 1..4. Any other level
// yields an empty list.
func (s *AuthorityService) FindByOrgUnit(ctx context.Context, level int, code string) ([]domain.AuthorityRecord, error) {
	return s.repo.FindByOrgUnit(ctx, level, code)
}

// Search matches a case-sensitive substring of display name or email.
func (s *AuthorityService) Search(ctx context.Context, query string) ([]domain.AuthorityRecord, error) {
	return s.repo.Search(ctx, query)
}
