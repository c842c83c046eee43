package repository

import (
	"context"
	"fmt"

	"github.com/pesio-ai/be-hr-approvals/internal/database"
	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

const authorityColumns = `
	email, display_name, rank,
	org_code_1, org_name_1, org_code_2, org_name_2,
	org_code_3, org_name_3, org_code_4, org_name_4,
	updated_at`

// Byte-wise collation keeps the ordering identical to the memory store.
const authorityOrder = `ORDER BY rank DESC, display_name COLLATE "C", email COLLATE "C"`

var orgCodeColumns = [domain.OrgLevels]string{"org_code_1", "org_code_2", "org_code_3", "org_code_4"}

// PgAuthorityRepository reads and writes authority_records.
type PgAuthorityRepository struct {
	db *database.DB
}

// NewAuthorityRepository creates a new PgAuthorityRepository.
func NewAuthorityRepository(db *database.DB) *PgAuthorityRepository {
	return &PgAuthorityRepository{db: db}
}

// Get returns the authority record for an email.
func (r *PgAuthorityRepository) Get(ctx context.Context, email string) (*domain.AuthorityRecord, error) {
	query := `SELECT ` + authorityColumns + ` FROM authority_records WHERE email = $1`

	rec, err := scanAuthority(r.db.QueryRow(ctx, query, email))
	if isNoRows(err) {
		return nil, errors.NotFound("authority_record", email)
	}
	if err != nil {
		return nil, mapPgError(err, "failed to get authority record")
	}
	return rec, nil
}

// Search matches query as a case-sensitive substring of display name or email.
func (r *PgAuthorityRepository) Search(ctx context.Context, query string) ([]domain.AuthorityRecord, error) {
	sql := `SELECT ` + authorityColumns + ` FROM authority_records
		WHERE $1 = '' OR strpos(display_name, $1) > 0 OR strpos(email, $1) > 0
		` + authorityOrder

	return r.list(ctx, sql, query)
}

// FindByOrgUnit lists everyone whose org path has code at level (1..4).
func (r *PgAuthorityRepository) FindByOrgUnit(ctx context.Context, level int, code string) ([]domain.AuthorityRecord, error) {
	if level < 1 || level > domain.OrgLevels || code == "" {
		return []domain.AuthorityRecord{}, nil
	}
	sql := fmt.Sprintf(`SELECT %s FROM authority_records WHERE %s = $1 %s`,
		authorityColumns, orgCodeColumns[level-1], authorityOrder)

	return r.list(ctx, sql, code)
}

// Upsert inserts or replaces the record for rec.Email.
func (r *PgAuthorityRepository) Upsert(ctx context.Context, rec *domain.AuthorityRecord) error {
	query := `
		INSERT INTO authority_records
		    (email, display_name, rank,
		     org_code_1, org_name_1, org_code_2, org_name_2,
		     org_code_3, org_name_3, org_code_4, org_name_4,
		     updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (email) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    rank         = EXCLUDED.rank,
		    org_code_1   = EXCLUDED.org_code_1,
		    org_name_1   = EXCLUDED.org_name_1,
		    org_code_2   = EXCLUDED.org_code_2,
		    org_name_2   = EXCLUDED.org_name_2,
		    org_code_3   = EXCLUDED.org_code_3,
		    org_name_3   = EXCLUDED.org_name_3,
		    org_code_4   = EXCLUDED.org_code_4,
		    org_name_4   = EXCLUDED.org_name_4,
		    updated_at   = NOW()
		RETURNING updated_at
	`

	args := []any{rec.Email, rec.DisplayName, int16(rec.Rank)}
	for _, u := range rec.OrgUnits {
		args = append(args, nullIfEmpty(u.Code), nullIfEmpty(u.Name))
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&rec.UpdatedAt); err != nil {
		return mapPgError(err, "failed to upsert authority record")
	}
	return nil
}

func (r *PgAuthorityRepository) list(ctx context.Context, query string, args ...any) ([]domain.AuthorityRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "failed to list authority records")
	}
	defer rows.Close()

	records := []domain.AuthorityRecord{}
	for rows.Next() {
		rec, err := scanAuthority(rows)
		if err != nil {
			return nil, mapPgError(err, "failed to scan authority record")
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to list authority records")
	}
	return records, nil
}

func scanAuthority(row rowScanner) (*domain.AuthorityRecord, error) {
	rec := &domain.AuthorityRecord{}
	var rank int16
	var codes, names [domain.OrgLevels]*string

	err := row.Scan(
		&rec.Email,
		&rec.DisplayName,
		&rank,
		&codes[0], &names[0],
		&codes[1], &names[1],
		&codes[2], &names[2],
		&codes[3], &names[3],
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Rank = domain.Rank(rank)
	for i := range rec.OrgUnits {
		if codes[i] != nil {
			rec.OrgUnits[i].Code = *codes[i]
		}
		if names[i] != nil {
			rec.OrgUnits[i].Name = *names[i]
		}
	}
	return rec, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
