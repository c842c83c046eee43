package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

func TestAuthorityService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})

	for _, rec := range []domain.AuthorityRecord{
		{Email: "gm@x.com", DisplayName: "Grace", Rank: domain.RankGeneralManager,
			OrgUnits: [domain.OrgLevels]domain.OrgUnit{{Code: "HQ", Name: "Headquarters"}}},
		{Email: "e@x.com", DisplayName: "Eve", Rank: domain.RankEmployee,
			OrgUnits: [domain.OrgLevels]domain.OrgUnit{{Code: "HQ", Name: "Headquarters"}, {Code: "OPS", Name: "Operations"}}},
	} {
		rec := rec
		require.NoError(t, f.authorities.Upsert(ctx, &rec))
	}

	rank, err := f.authority.GetRank(ctx, " GM@x.com ")
	require.NoError(t, err)
	assert.Equal(t, domain.RankGeneralManager, rank)

	ok, err := f.authority.HasApprovalAuthority(ctx, "e@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.authority.HasApprovalAuthority(ctx, "ghost@x.com")
	assert.True(t, errors.Is(err, errors.KindNotFound))

	_, err = f.authority.GetRank(ctx, "ghost")
	assert.True(t, errors.Is(err, errors.KindValidation))

	assert.Equal(t, domain.Higher, f.authority.CompareRank(domain.RankGeneralManager, domain.RankEmployee))

	hq, err := f.authority.FindByOrgUnit(ctx, 1, "HQ")
	require.NoError(t, err)
	require.Len(t, hq, 2)
	assert.Equal(t, "gm@x.com", hq[0].Email)

	none, err := f.authority.FindByOrgUnit(ctx, 0, "HQ")
	require.NoError(t, err)
	assert.Empty(t, none)

	found, err := f.authority.Search(ctx, "Eve")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = f.authority.Search(ctx, "eve")
	require.NoError(t, err)
	assert.Empty(t, found)
}
