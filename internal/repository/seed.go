package repository

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
)

// Seed is the YAML document accepted by the authority importer.
//
//	authorities:
//	  - email: gm@example.com
//	    display_name: Yuki Sato
//	    rank: GENERAL_MANAGER
//	    org_units:
//	      - {code: HQ, name: Headquarters}
//	relationships:
//	  - subordinate: dev@example.com
//	    approver: gm@example.com
//	    effective_from: 2025-01-01
type Seed struct {
	Authorities   []AuthoritySeed    `yaml:"authorities"`
	Relationships []RelationshipSeed `yaml:"relationships"`
}

type AuthoritySeed struct {
	Email       string           `yaml:"email"`
	DisplayName string           `yaml:"display_name"`
	Rank        string           `yaml:"rank"`
	OrgUnits    []domain.OrgUnit `yaml:"org_units"`
}

type RelationshipSeed struct {
	Subordinate   string `yaml:"subordinate"`
	Approver      string `yaml:"approver"`
	EffectiveFrom string `yaml:"effective_from"`
	EffectiveTo   string `yaml:"effective_to"`
}

// LoadSeed decodes a seed document.
func LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &seed, nil
}

// AuthorityRecords validates the authority entries.
func (s *Seed) AuthorityRecords() ([]domain.AuthorityRecord, error) {
	records := make([]domain.AuthorityRecord, 0, len(s.Authorities))
	for i, a := range s.Authorities {
		email, err := domain.ValidateEmail("email", a.Email)
		if err != nil {
			return nil, fmt.Errorf("authorities[%d]: %w", i, err)
		}
		rank, err := domain.ParseRank(a.Rank)
		if err != nil {
			return nil, fmt.Errorf("authorities[%d]: %w", i, err)
		}
		if len(a.OrgUnits) > domain.OrgLevels {
			return nil, fmt.Errorf("authorities[%d]: at most %d org units", i, domain.OrgLevels)
		}
		rec := domain.AuthorityRecord{
			Email:       email,
			DisplayName: strings.TrimSpace(a.DisplayName),
			Rank:        rank,
		}
		copy(rec.OrgUnits[:], a.OrgUnits)
		records = append(records, rec)
	}
	return records, nil
}

// ApproverRelationships validates the relationship entries.
func (s *Seed) ApproverRelationships(now time.Time) ([]domain.ApproverRelationship, error) {
	rels := make([]domain.ApproverRelationship, 0, len(s.Relationships))
	for i, r := range s.Relationships {
		from, err := domain.ParseDate("effective_from", r.EffectiveFrom)
		if err != nil {
			return nil, fmt.Errorf("relationships[%d]: %w", i, err)
		}
		var to *time.Time
		if r.EffectiveTo != "" {
			t, err := domain.ParseDate("effective_to", r.EffectiveTo)
			if err != nil {
				return nil, fmt.Errorf("relationships[%d]: %w", i, err)
			}
			to = &t
		}
		rel, err := domain.NewApproverRelationship(r.Subordinate, r.Approver, from, to, now)
		if err != nil {
			return nil, fmt.Errorf("relationships[%d]: %w", i, err)
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// ImportSeed upserts every authority and creates the relationships not yet
// stored. A relationship already present for the same subordinate, approver
// and effective_from is skipped, so importing a file twice is a no-op. With
// singleApprover set, relationships go through CreateExclusive and an overlap
// fails the import. It returns the number of authorities upserted and
// relationships created.
func ImportSeed(
	ctx context.Context,
	seed *Seed,
	authorities AuthorityRepository,
	relationships RelationshipRepository,
	singleApprover bool,
) (int, int, error) {
	records, err := seed.AuthorityRecords()
	if err != nil {
		return 0, 0, err
	}
	rels, err := seed.ApproverRelationships(time.Now().UTC())
	if err != nil {
		return 0, 0, err
	}

	for i := range records {
		if err := authorities.Upsert(ctx, &records[i]); err != nil {
			return i, 0, fmt.Errorf("upsert %s: %w", records[i].Email, err)
		}
	}
	if relationships == nil {
		return len(records), 0, nil
	}

	created := 0
	for i := range rels {
		rel := &rels[i]
		exists, err := seededBefore(ctx, relationships, rel)
		if err != nil {
			return len(records), created, err
		}
		if exists {
			continue
		}
		if singleApprover {
			err = relationships.CreateExclusive(ctx, rel)
		} else {
			err = relationships.Create(ctx, rel)
		}
		if err != nil {
			return len(records), created, fmt.Errorf("create relationship %s -> %s: %w", rel.SubordinateEmail, rel.ApproverEmail, err)
		}
		created++
	}
	return len(records), created, nil
}

func seededBefore(ctx context.Context, relationships RelationshipRepository, rel *domain.ApproverRelationship) (bool, error) {
	existing, err := relationships.ListByPair(ctx, rel.SubordinateEmail, rel.ApproverEmail)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.EffectiveFrom.Equal(rel.EffectiveFrom) {
			return true, nil
		}
	}
	return false, nil
}
