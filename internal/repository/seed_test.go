package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
)

const seedYAML = `
authorities:
  - email: GM@x.com
    display_name: Yuki Sato
    rank: general_manager
    org_units:
      - {code: HQ, name: Headquarters}
      - {code: ENG, name: Engineering}
  - email: dev@x.com
    display_name: Dev
    rank: EMPLOYEE
relationships:
  - subordinate: dev@x.com
    approver: gm@x.com
    effective_from: 2025-01-01
    effective_to: 2025-12-31
`

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	records, err := seed.AuthorityRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "gm@x.com", records[0].Email)
	assert.Equal(t, domain.RankGeneralManager, records[0].Rank)
	assert.Equal(t, "ENG", records[0].OrgUnits[1].Code)
	assert.Empty(t, records[0].OrgUnits[2].Code)

	rels, err := seed.ApproverRelationships(day("2025-01-01"))
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, day("2025-01-01"), rels[0].EffectiveFrom)
	require.NotNil(t, rels[0].EffectiveTo)
	assert.Equal(t, day("2025-12-31"), *rels[0].EffectiveTo)
}

func TestLoadSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown rank", "authorities:\n  - {email: a@x.com, display_name: A, rank: INTERN}\n"},
		{"bad email", "authorities:\n  - {email: nope, display_name: A, rank: MANAGER}\n"},
		{"self approval", "relationships:\n  - {subordinate: a@x.com, approver: a@x.com, effective_from: 2025-01-01}\n"},
		{"bad date", "relationships:\n  - {subordinate: a@x.com, approver: b@x.com, effective_from: 01/01/2025}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := LoadSeed(strings.NewReader(tt.doc))
			require.NoError(t, err)
			_, errA := seed.AuthorityRecords()
			_, errR := seed.ApproverRelationships(day("2025-01-01"))
			assert.True(t, errA != nil || errR != nil)
		})
	}

	_, err := LoadSeed(strings.NewReader("authorities:\n  - {email: a@x.com, colour: red}\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLoadSeed_Empty(t *testing.T) {
	seed, err := LoadSeed(strings.NewReader(""))
	require.NoError(t, err)
	records, err := seed.AuthorityRecords()
	require.NoError(t, err)
	assert.Empty(t, records)
}
