package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAuthorityStore(t *testing.T) {
	ctx := context.Background()
	s := NewAuthorityStore()

	records := []domain.AuthorityRecord{
		{Email: "dm@x.com", DisplayName: "Dana", Rank: domain.RankDivisionManager,
			OrgUnits: [domain.OrgLevels]domain.OrgUnit{{Code: "HQ"}, {Code: "ENG"}}},
		{Email: "m@x.com", DisplayName: "Mika", Rank: domain.RankManager,
			OrgUnits: [domain.OrgLevels]domain.OrgUnit{{Code: "HQ"}, {Code: "ENG"}, {Code: "PLAT"}}},
		{Email: "e@x.com", DisplayName: "Eli", Rank: domain.RankEmployee,
			OrgUnits: [domain.OrgLevels]domain.OrgUnit{{Code: "HQ"}, {Code: "OPS"}}},
	}
	for i := range records {
		require.NoError(t, s.Upsert(ctx, &records[i]))
	}

	rec, err := s.Get(ctx, "m@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RankManager, rec.Rank)

	_, err = s.Get(ctx, "ghost@x.com")
	assert.True(t, errors.Is(err, errors.KindNotFound))

	eng, err := s.FindByOrgUnit(ctx, 2, "ENG")
	require.NoError(t, err)
	require.Len(t, eng, 2)
	assert.Equal(t, "dm@x.com", eng[0].Email)

	out, err := s.FindByOrgUnit(ctx, 5, "ENG")
	require.NoError(t, err)
	assert.Empty(t, out)

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hits, err := s.Search(ctx, "Mi")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m@x.com", hits[0].Email)
}

func TestRelationshipStore_OrderAndExclusive(t *testing.T) {
	ctx := context.Background()
	s := NewRelationshipStore()
	now := day("2025-01-01")

	first, err := domain.NewApproverRelationship("a@x.com", "b@x.com", day("2025-01-01"), nil, now)
	require.NoError(t, err)
	second, err := domain.NewApproverRelationship("a@x.com", "c@x.com", day("2025-01-01"), nil, now)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, &first))
	require.NoError(t, s.Create(ctx, &second))
	assert.Greater(t, second.Seq, first.Seq)

	rels, err := s.ListBySubordinate(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, second.ID, rels[0].ID, "same start date: last inserted first")

	third, err := domain.NewApproverRelationship("a@x.com", "d@x.com", day("2026-01-01"), nil, now)
	require.NoError(t, err)
	err = s.CreateExclusive(ctx, &third)
	assert.True(t, errors.Is(err, errors.KindValidation))

	other, err := domain.NewApproverRelationship("z@x.com", "d@x.com", day("2026-01-01"), nil, now)
	require.NoError(t, err)
	require.NoError(t, s.CreateExclusive(ctx, &other))

	require.NoError(t, s.UpdateEffectiveTo(ctx, first.ID, day("2025-06-30")))
	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, day("2025-06-30"), *got.EffectiveTo)

	err = s.UpdateEffectiveTo(ctx, first.ID, day("2025-07-31"))
	assert.True(t, errors.Is(err, errors.KindValidation), "widening an ended window")
	err = s.UpdateEffectiveTo(ctx, first.ID, day("2024-12-31"))
	assert.True(t, errors.Is(err, errors.KindValidation), "end before start")
	got, err = s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, day("2025-06-30"), *got.EffectiveTo)

	require.NoError(t, s.Delete(ctx, first.ID))
	assert.True(t, errors.Is(s.Delete(ctx, first.ID), errors.KindNotFound))
	assert.True(t, errors.Is(s.UpdateEffectiveTo(ctx, first.ID, now), errors.KindNotFound))
}

func TestApprovalRecordStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := NewApprovalRecordStore()
	now := day("2025-06-01")

	pending, err := s.EnsurePending(ctx, domain.NewPendingRecord("a@x.com", now, now))
	require.NoError(t, err)

	again, err := s.EnsurePending(ctx, domain.NewPendingRecord("a@x.com", now, now.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, pending.CreatedAt, again.CreatedAt, "existing record is kept")

	approved, err := pending.Approve("b@x.com", now)
	require.NoError(t, err)
	require.NoError(t, s.Transition(ctx, *pending, approved))

	stale, err := pending.Reject("b@x.com", "late", now)
	require.NoError(t, err)
	err = s.Transition(ctx, *pending, stale)
	assert.True(t, errors.Is(err, errors.KindInvalidState))

	err = s.Delete(ctx, *pending)
	assert.True(t, errors.Is(err, errors.KindInvalidState))

	stored, err := s.Get(ctx, pending.Key())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)

	require.NoError(t, s.Delete(ctx, *stored))
	_, err = s.Get(ctx, pending.Key())
	assert.True(t, errors.Is(err, errors.KindNotFound))
}

func TestApprovalRecordStore_ConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewApprovalRecordStore()
	now := day("2025-06-01")

	pending, err := s.EnsurePending(ctx, domain.NewPendingRecord("a@x.com", now, now))
	require.NoError(t, err)

	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := pending.Approve("b@x.com", now)
			if err != nil {
				return
			}
			if err := s.Transition(ctx, *pending, next); err != nil {
				losses.Add(1)
				return
			}
			wins.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), losses.Load())
}

func TestApprovalRecordStore_Lists(t *testing.T) {
	ctx := context.Background()
	s := NewApprovalRecordStore()

	for _, d := range []string{"2025-06-01", "2025-06-02", "2025-06-03"} {
		_, err := s.EnsurePending(ctx, domain.NewPendingRecord("a@x.com", day(d), day(d)))
		require.NoError(t, err)
	}
	_, err := s.EnsurePending(ctx, domain.NewPendingRecord("c@x.com", day("2025-06-02"), day("2025-06-02")))
	require.NoError(t, err)

	recs, err := s.ListBySubmitter(ctx, "a@x.com", day("2025-06-02"), day("2025-06-03"))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, day("2025-06-02"), recs[0].WorkDate)

	pending, err := s.ListPending(ctx, []string{"a@x.com", "c@x.com"}, day("2025-06-02"), day("2025-06-02"))
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a@x.com", pending[0].SubmitterEmail)
}

func TestHistoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewHistoryStore()
	now := day("2025-06-01")

	before := domain.NewPendingRecord("a@x.com", now, now)
	after, err := before.Approve("b@x.com", now)
	require.NoError(t, err)

	entry := domain.NewHistoryEntry(before, after, domain.ActionApprove, "b@x.com")
	require.NoError(t, s.Append(ctx, &entry))

	entries, err := s.ListByRecord(ctx, before.Key())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusPending, entries[0].StatusBefore)
	assert.Equal(t, domain.StatusApproved, entries[0].StatusAfter)

	none, err := s.ListByRecord(ctx, domain.RecordKey{SubmitterEmail: "z@x.com", WorkDate: now})
	require.NoError(t, err)
	assert.Empty(t, none)
}
