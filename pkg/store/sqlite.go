package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ccollicutt/authburst/pkg/config"
)

// sqliteTimeLayout is fixed width so that text order is time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type sqliteStore struct {
	baseStore
}

var sqliteDialect = dialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			config_file TEXT NOT NULL,
			sources_json TEXT NOT NULL,
			window_sec INTEGER NOT NULL,
			threshold INTEGER NOT NULL,
			year INTEGER NOT NULL,
			lines INTEGER NOT NULL,
			parse_failures INTEGER NOT NULL,
			failed_attempts INTEGER NOT NULL,
			incidents INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			identity TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_run ON incidents(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_identity ON incidents(identity)`,
		`CREATE TABLE IF NOT EXISTS top_identities (
			run_id TEXT NOT NULL REFERENCES runs(id),
			rank INTEGER NOT NULL,
			identity TEXT NOT NULL,
			failed_attempts INTEGER NOT NULL,
			PRIMARY KEY (run_id, rank)
		)`,
	},
	timeArg: func(t time.Time) any {
		return t.UTC().Format(sqliteTimeLayout)
	},
}

// NewSQLite opens a SQLite database using the pure-Go modernc driver.
func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = config.DefaultSQLiteDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)
	return &sqliteStore{baseStore{db: db, dialect: sqliteDialect}}, nil
}
