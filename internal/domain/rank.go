package domain

import (
	"fmt"
	"strings"
)

// Rank is an ordered organizational position level.
type Rank uint8

const (
	RankEmployee Rank = iota
	RankManager
	RankDepartmentManager
	RankDivisionManager
	RankGeneralManager
)

var rankNames = [...]string{
	RankEmployee:          "EMPLOYEE",
	RankManager:           "MANAGER",
	RankDepartmentManager: "DEPARTMENT_MANAGER",
	RankDivisionManager:   "DIVISION_MANAGER",
	RankGeneralManager:    "GENERAL_MANAGER",
}

func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return fmt.Sprintf("Rank(%d)", uint8(r))
}

// Valid reports whether r is one of the five defined ranks.
func (r Rank) Valid() bool {
	return int(r) < len(rankNames)
}

// HasApprovalAuthority is true for every rank above EMPLOYEE.
func (r Rank) HasApprovalAuthority() bool {
	return r > RankEmployee
}

// ParseRank accepts the upper-case rank names, case-insensitively.
func ParseRank(s string) (Rank, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range rankNames {
		if name == s {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}

func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Comparison is the outcome of CompareRank.
type Comparison int

const (
	Lower  Comparison = -1
	Equal  Comparison = 0
	Higher Comparison = 1
)

func (c Comparison) String() string {
	switch c {
	case Higher:
		return "higher"
	case Lower:
		return "lower"
	default:
		return "equal"
	}
}

// CompareRank orders a relative to b.
func CompareRank(a, b Rank) Comparison {
	switch {
	case a > b:
		return Higher
	case a < b:
		return Lower
	default:
		return Equal
	}
}
