package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ccollicutt/authburst/pkg/config"
)

type postgresStore struct {
	baseStore
}

var postgresDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			config_file TEXT NOT NULL,
			sources_json JSONB NOT NULL,
			window_sec INTEGER NOT NULL,
			threshold INTEGER NOT NULL,
			year INTEGER NOT NULL,
			lines BIGINT NOT NULL,
			parse_failures BIGINT NOT NULL,
			failed_attempts BIGINT NOT NULL,
			incidents INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES runs(id),
			identity TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			first_seen TIMESTAMPTZ NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_run ON incidents(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_identity ON incidents(identity)`,
		`CREATE TABLE IF NOT EXISTS top_identities (
			run_id UUID NOT NULL REFERENCES runs(id),
			rank INTEGER NOT NULL,
			identity TEXT NOT NULL,
			failed_attempts BIGINT NOT NULL,
			PRIMARY KEY (run_id, rank)
		)`,
	},
	positional: true,
	timeArg: func(t time.Time) any {
		return t.UTC()
	},
}

// NewPostgres opens a PostgreSQL database through the pgx stdlib driver.
func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = config.DefaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return &postgresStore{baseStore{db: db, dialect: postgresDialect}}, nil
}
