package domain

import (
	"sort"
	"strings"
	"time"
)

// OrgLevels is the depth of the organizational path.
const OrgLevels = 4

// OrgUnit is one level of a person's organizational path.
type OrgUnit struct {
	Code string `json:"code,omitempty" yaml:"code"`
	Name string `json:"name,omitempty" yaml:"name"`
}

// AuthorityRecord is the latest-state position and org path of one person.
type AuthorityRecord struct {
	Email       string             `json:"email"`
	DisplayName string             `json:"display_name"`
	Rank        Rank               `json:"rank"`
	OrgUnits    [OrgLevels]OrgUnit `json:"org_units"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// OrgUnitAt returns the unit at level 1..4; ok is false for an empty or
// out-of-range level.
func (a AuthorityRecord) OrgUnitAt(level int) (OrgUnit, bool) {
	if level < 1 || level > OrgLevels {
		return OrgUnit{}, false
	}
	u := a.OrgUnits[level-1]
	return u, u.Code != ""
}

// HasApprovalAuthority delegates to the rank.
func (a AuthorityRecord) HasApprovalAuthority() bool {
	return a.Rank.HasApprovalAuthority()
}

// Matches reports a case-sensitive substring match on name or email. The empty
// query matches everything.
func (a AuthorityRecord) Matches(query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(a.DisplayName, query) || strings.Contains(a.Email, query)
}

// SortAuthorities orders by rank descending, then display name, then email.
func SortAuthorities(records []AuthorityRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		if a.DisplayName != b.DisplayName {
			return a.DisplayName < b.DisplayName
		}
		return a.Email < b.Email
	})
}
