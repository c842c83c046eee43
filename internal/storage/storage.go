// Package storage selects and opens the repository backend named in config.
package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/pesio-ai/be-hr-approvals/internal/config"
	"github.com/pesio-ai/be-hr-approvals/internal/database"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/repository"
	"github.com/pesio-ai/be-hr-approvals/internal/repository/memory"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Authorities   repository.AuthorityRepository
	Relationships repository.RelationshipRepository
	Records       repository.ApprovalRecordRepository
	History       repository.HistoryRepository

	// DB is nil for the memory backend.
	DB *database.DB
}

// Open connects the configured backend. The memory backend is seeded from
// cfg.Approval.SeedFile when set.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	switch cfg.Approval.Storage {
	case config.StorageMemory:
		return openMemory(ctx, cfg.Approval, log)
	case config.StoragePostgres:
		return openPostgres(ctx, cfg.Database, log)
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Approval.Storage)
	}
}

// Close releases the database pool, if any.
func (s *Stores) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

// Connect opens the PostgreSQL pool described by cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	return database.New(ctx, database.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		User:        cfg.User,
		Password:    cfg.Password,
		Database:    cfg.Database,
		SSLMode:     cfg.SSLMode,
		MaxConns:    cfg.MaxConns,
		MinConns:    cfg.MinConns,
		MaxConnTime: cfg.MaxConnTime,
		MaxIdleTime: cfg.MaxIdleTime,
		HealthCheck: cfg.HealthCheck,
	})
}

// Postgres wraps an open pool in the PostgreSQL repositories.
func Postgres(db *database.DB) *Stores {
	return &Stores{
		Authorities:   repository.NewAuthorityRepository(db),
		Relationships: repository.NewRelationshipRepository(db),
		Records:       repository.NewApprovalRecordRepository(db),
		History:       repository.NewHistoryRepository(db),
		DB:            db,
	}
}

// Memory returns empty in-process repositories.
func Memory() *Stores {
	return &Stores{
		Authorities:   memory.NewAuthorityStore(),
		Relationships: memory.NewRelationshipStore(),
		Records:       memory.NewApprovalRecordStore(),
		History:       memory.NewHistoryStore(),
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Stores, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Database connection established")

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Database migrations applied")
	}
	return Postgres(db), nil
}

func openMemory(ctx context.Context, cfg config.ApprovalConfig, log *logger.Logger) (*Stores, error) {
	stores := Memory()
	seedFile := cfg.SeedFile
	if seedFile == "" {
		log.Warn().Msg("Using in-memory storage without seed data")
		return stores, nil
	}

	f, err := os.Open(seedFile)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	seed, err := repository.LoadSeed(f)
	if err != nil {
		return nil, err
	}
	authorities, relationships, err := repository.ImportSeed(ctx, seed, stores.Authorities, stores.Relationships, cfg.SingleApprover)
	if err != nil {
		return nil, fmt.Errorf("import seed: %w", err)
	}

	log.Info().
		Str("seed_file", seedFile).
		Int("authorities", authorities).
		Int("relationships", relationships).
		Msg("In-memory storage seeded")
	return stores, nil
}
