// Package memory implements the repository contracts in process memory. It
// backs tests, local runs and APPROVAL_STORAGE=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
	"github.com/pesio-ai/be-hr-approvals/internal/repository"
)

var _ repository.AuthorityRepository = (*AuthorityStore)(nil)

// AuthorityStore keeps authority records keyed by email.
type AuthorityStore struct {
	mu      sync.RWMutex
	records map[string]domain.AuthorityRecord
	now     func() time.Time
}

// NewAuthorityStore creates an empty store.
func NewAuthorityStore() *AuthorityStore {
	return &AuthorityStore{records: make(map[string]domain.AuthorityRecord), now: time.Now}
}

func (s *AuthorityStore) Get(_ context.Context, email string) (*domain.AuthorityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[email]
	if !ok {
		return nil, errors.NotFound("authority_record", email)
	}
	return &rec, nil
}

func (s *AuthorityStore) Search(_ context.Context, query string) ([]domain.AuthorityRecord, error) {
	return s.filter(func(rec domain.AuthorityRecord) bool { return rec.Matches(query) }), nil
}

func (s *AuthorityStore) FindByOrgUnit(_ context.Context, level int, code string) ([]domain.AuthorityRecord, error) {
	if level < 1 || level > domain.OrgLevels || code == "" {
		return []domain.AuthorityRecord{}, nil
	}
	return s.filter(func(rec domain.AuthorityRecord) bool {
		u, ok := rec.OrgUnitAt(level)
		return ok && u.Code == code
	}), nil
}

func (s *AuthorityStore) Upsert(_ context.Context, rec *domain.AuthorityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.UpdatedAt = s.now()
	s.records[rec.Email] = *rec
	return nil
}

func (s *AuthorityStore) filter(keep func(domain.AuthorityRecord) bool) []domain.AuthorityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.AuthorityRecord{}
	for _, rec := range s.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	domain.SortAuthorities(out)
	return out
}
