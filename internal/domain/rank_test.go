package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareRank(t *testing.T) {
	assert.Equal(t, Higher, CompareRank(RankDivisionManager, RankManager))
	assert.Equal(t, Lower, CompareRank(RankEmployee, RankGeneralManager))
	assert.Equal(t, Equal, CompareRank(RankDepartmentManager, RankDepartmentManager))
	assert.Equal(t, "higher", CompareRank(RankGeneralManager, RankEmployee).String())
}

func TestRank_HasApprovalAuthority(t *testing.T) {
	assert.False(t, RankEmployee.HasApprovalAuthority())
	for _, r := range []Rank{RankManager, RankDepartmentManager, RankDivisionManager, RankGeneralManager} {
		assert.True(t, r.HasApprovalAuthority(), r.String())
	}
}

func TestParseRank(t *testing.T) {
	r, err := ParseRank(" division_manager ")
	require.NoError(t, err)
	assert.Equal(t, RankDivisionManager, r)

	_, err = ParseRank("INTERN")
	require.Error(t, err)
}

func TestRank_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Rank Rank `json:"rank"`
	}{RankManager})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rank":"MANAGER"}`, string(data))

	var out struct {
		Rank Rank `json:"rank"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"rank":"GENERAL_MANAGER"}`), &out))
	assert.Equal(t, RankGeneralManager, out.Rank)

	assert.Equal(t, "Rank(9)", Rank(9).String())
	assert.False(t, Rank(9).Valid())
}
