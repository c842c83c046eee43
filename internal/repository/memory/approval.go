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

var (
	_ repository.ApprovalRecordRepository = (*ApprovalRecordStore)(nil)
	_ repository.HistoryRepository        = (*HistoryStore)(nil)
)

// ApprovalRecordStore implements compare-and-swap transitions under a mutex.
type ApprovalRecordStore struct {
	mu      sync.RWMutex
	records map[domain.RecordKey]domain.ApprovalRecord
}

// NewApprovalRecordStore creates an empty store.
func NewApprovalRecordStore() *ApprovalRecordStore {
	return &ApprovalRecordStore{records: make(map[domain.RecordKey]domain.ApprovalRecord)}
}

func (s *ApprovalRecordStore) Get(_ context.Context, key domain.RecordKey) (*domain.ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, errors.NotFound("approval_record", key.String())
	}
	rec = cloneRecord(rec)
	return &rec, nil
}

func (s *ApprovalRecordStore) EnsurePending(_ context.Context, rec domain.ApprovalRecord) (*domain.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Key()
	stored, ok := s.records[key]
	if !ok {
		stored = cloneRecord(rec)
		s.records[key] = stored
	}
	stored = cloneRecord(stored)
	return &stored, nil
}

func (s *ApprovalRecordStore) Transition(_ context.Context, current, next domain.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := current.Key()
	if !s.matchesLocked(key, current) {
		return errors.InvalidState("approval record was modified concurrently", string(current.Status), string(next.Status))
	}
	s.records[key] = cloneRecord(next)
	return nil
}

func (s *ApprovalRecordStore) Delete(_ context.Context, current domain.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := current.Key()
	if !s.matchesLocked(key, current) {
		return errors.InvalidState("approval record was modified concurrently", string(current.Status), "")
	}
	delete(s.records, key)
	return nil
}

func (s *ApprovalRecordStore) matchesLocked(key domain.RecordKey, current domain.ApprovalRecord) bool {
	stored, ok := s.records[key]
	return ok && stored.Status == current.Status && stored.Version == current.Version
}

func (s *ApprovalRecordStore) ListBySubmitter(_ context.Context, submitter string, from, to time.Time) ([]domain.ApprovalRecord, error) {
	return s.filter(func(r domain.ApprovalRecord) bool {
		return r.SubmitterEmail == submitter && inRange(r.WorkDate, from, to)
	}), nil
}

func (s *ApprovalRecordStore) ListPending(_ context.Context, submitters []string, from, to time.Time) ([]domain.ApprovalRecord, error) {
	wanted := make(map[string]struct{}, len(submitters))
	for _, sub := range submitters {
		wanted[sub] = struct{}{}
	}
	return s.filter(func(r domain.ApprovalRecord) bool {
		_, ok := wanted[r.SubmitterEmail]
		return ok && r.Status == domain.StatusPending && inRange(r.WorkDate, from, to)
	}), nil
}

func (s *ApprovalRecordStore) filter(keep func(domain.ApprovalRecord) bool) []domain.ApprovalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.ApprovalRecord{}
	for _, r := range s.records {
		if keep(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WorkDate.Equal(out[j].WorkDate) {
			return out[i].WorkDate.Before(out[j].WorkDate)
		}
		return out[i].SubmitterEmail < out[j].SubmitterEmail
	})
	return out
}

// HistoryStore is an append-only slice of entries.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

// NewHistoryStore creates an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Append(_ context.Context, entry *domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, *entry)
	return nil
}

func (s *HistoryStore) ListByRecord(_ context.Context, key domain.RecordKey) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.HistoryEntry{}
	for _, e := range s.entries {
		if e.SubmitterEmail == key.SubmitterEmail && e.WorkDate.Equal(key.WorkDate) {
			out = append(out, e)
		}
	}
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func cloneRecord(r domain.ApprovalRecord) domain.ApprovalRecord {
	if r.ApproverEmail != nil {
		v := *r.ApproverEmail
		r.ApproverEmail = &v
	}
	if r.ApprovedAt != nil {
		v := *r.ApprovedAt
		r.ApprovedAt = &v
	}
	if r.RejectionReason != nil {
		v := *r.RejectionReason
		r.RejectionReason = &v
	}
	return r
}
