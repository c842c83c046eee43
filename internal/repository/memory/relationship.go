package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
	"github.com/pesio-ai/be-hr-approvals/internal/repository"
)

var _ repository.RelationshipRepository = (*RelationshipStore)(nil)

// RelationshipStore keeps approver relationships keyed by id.
type RelationshipStore struct {
	mu   sync.RWMutex
	rels map[string]domain.ApproverRelationship
	seq  int64
	now  func() time.Time
}

// NewRelationshipStore creates an empty store.
func NewRelationshipStore() *RelationshipStore {
	return &RelationshipStore{rels: make(map[string]domain.ApproverRelationship), now: time.Now}
}

func (s *RelationshipStore) Create(_ context.Context, rel *domain.ApproverRelationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(rel)
}

func (s *RelationshipStore) CreateExclusive(_ context.Context, rel *domain.ApproverRelationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rels {
		if existing.SubordinateEmail == rel.SubordinateEmail &&
			existing.OverlapsWithPeriod(rel.EffectiveFrom, rel.EffectiveTo) {
			return errors.InvalidInput("effective_from", "relationship overlaps an existing approver relationship").
				WithDetail("relationship_id", existing.ID)
		}
	}
	return s.insertLocked(rel)
}

func (s *RelationshipStore) insertLocked(rel *domain.ApproverRelationship) error {
	if _, ok := s.rels[rel.ID]; ok {
		return errors.New(errors.KindValidation, "record already exists")
	}
	s.seq++
	rel.Seq = s.seq
	rel.CreatedAt = s.now()
	s.rels[rel.ID] = cloneRelationship(*rel)
	return nil
}

func (s *RelationshipStore) Get(_ context.Context, id string) (*domain.ApproverRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.rels[id]
	if !ok {
		return nil, errors.NotFound("approver_relationship", id)
	}
	rel = cloneRelationship(rel)
	return &rel, nil
}

func (s *RelationshipStore) UpdateEffectiveTo(_ context.Context, id string, to time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.rels[id]
	if !ok {
		return errors.NotFound("approver_relationship", id)
	}
	ended, err := rel.EndAt(to)
	if err != nil {
		return err
	}
	s.rels[id] = ended
	return nil
}

func (s *RelationshipStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rels[id]; !ok {
		return errors.NotFound("approver_relationship", id)
	}
	delete(s.rels, id)
	return nil
}

func (s *RelationshipStore) ListBySubordinate(_ context.Context, subordinate string) ([]domain.ApproverRelationship, error) {
	return s.filter(func(r domain.ApproverRelationship) bool {
		return r.SubordinateEmail == subordinate
	}), nil
}

func (s *RelationshipStore) ListByApprover(_ context.Context, approver string) ([]domain.ApproverRelationship, error) {
	return s.filter(func(r domain.ApproverRelationship) bool {
		return r.ApproverEmail == approver
	}), nil
}

func (s *RelationshipStore) ListByPair(_ context.Context, subordinate, approver string) ([]domain.ApproverRelationship, error) {
	return s.filter(func(r domain.ApproverRelationship) bool {
		return r.SubordinateEmail == subordinate && r.ApproverEmail == approver
	}), nil
}

// filter returns matches ordered by effective_from DESC, then seq DESC.
func (s *RelationshipStore) filter(keep func(domain.ApproverRelationship) bool) []domain.ApproverRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ApproverRelationship{}
	for _, r := range s.rels {
		if keep(r) {
			out = append(out, cloneRelationship(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveFrom.Equal(out[j].EffectiveFrom) {
			return out[i].EffectiveFrom.After(out[j].EffectiveFrom)
		}
		return out[i].Seq > out[j].Seq
	})
	return out
}

func cloneRelationship(r domain.ApproverRelationship) domain.ApproverRelationship {
	if r.EffectiveTo != nil {
		to := *r.EffectiveTo
		r.EffectiveTo = &to
	}
	return r
}
