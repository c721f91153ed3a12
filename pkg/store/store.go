// Package store persists analysis runs and their incidents in SQL databases.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/authburst/pkg/analyzer"
	"github.com/ccollicutt/authburst/pkg/config"
)

// ErrUnsupportedDriver is returned by NewStore for an unknown driver.
var ErrUnsupportedDriver = errors.New("unsupported storage driver")

// Store saves analysis runs.
type Store interface {
	// Init creates the schema if it does not exist.
	Init(ctx context.Context) error

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	// SaveRun stores a run with its incidents and attacker ranking in one
	// transaction.
	SaveRun(ctx context.Context, run Run, incidents []analyzer.Incident, top []analyzer.IdentityCount) error

	// Incidents returns the incidents of a run ordered by identity and first
	// attempt.
	Incidents(ctx context.Context, runID string) ([]analyzer.Incident, error)

	Close() error
}

// NewStore opens the store described by cfg. It returns nil when storage is
// disabled.
func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(string(cfg.Driver)) {
	case "sqlite", "":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// Run is one stored analysis.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	ConfigFile string
	Sources    []string
	Window     time.Duration
	Threshold  int
	Year       int

	Lines          int
	ParseFailures  int
	FailedAttempts int
}

// NewRun describes result as a Run with a fresh random ID.
func NewRun(result *analyzer.AnalysisResult, configFile string) Run {
	return Run{
		ID:             uuid.NewString(),
		StartedAt:      result.Metadata.StartTime,
		FinishedAt:     result.Metadata.EndTime,
		ConfigFile:     configFile,
		Sources:        result.Metadata.Sources,
		Window:         result.Metadata.Window,
		Threshold:      result.Metadata.Threshold,
		Year:           result.Metadata.Year,
		Lines:          result.Stats.Lines,
		ParseFailures:  result.Stats.ParseFailures,
		FailedAttempts: result.Stats.Failed,
	}
}

// dialect holds what differs between the SQL backends.
type dialect struct {
	schema []string

	// positional rewrites "?" placeholders for drivers that number them.
	positional bool

	// timeArg converts a time for binding.
	timeArg func(time.Time) any
}

type baseStore struct {
	db      *sql.DB
	dialect dialect
}

func (b *baseStore) Init(ctx context.Context) error {
	for _, stmt := range b.dialect.schema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (b *baseStore) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *baseStore) SaveRun(ctx context.Context, run Run, incidents []analyzer.Incident, top []analyzer.IdentityCount) error {
	if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("invalid run id %q: %w", run.ID, err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, b.rebind(
		`INSERT INTO runs (id, started_at, finished_at, config_file, sources_json, window_sec, threshold, year, lines, parse_failures, failed_attempts, incidents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID,
		b.dialect.timeArg(run.StartedAt),
		b.dialect.timeArg(run.FinishedAt),
		run.ConfigFile,
		encodeJSON(run.Sources),
		int64(run.Window/time.Second),
		run.Threshold,
		run.Year,
		run.Lines,
		run.ParseFailures,
		run.FailedAttempts,
		len(incidents),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	if err := b.insertIncidents(ctx, tx, run.ID, incidents); err != nil {
		return err
	}
	if err := b.insertTop(ctx, tx, run.ID, top); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

func (b *baseStore) insertIncidents(ctx context.Context, tx *sql.Tx, runID string, incidents []analyzer.Incident) error {
	if len(incidents) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, b.rebind(
		`INSERT INTO incidents (run_id, identity, attempts, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("preparing incident insert: %w", err)
	}
	defer stmt.Close()

	for _, inc := range incidents {
		if _, err := stmt.ExecContext(ctx,
			runID,
			inc.Identity,
			inc.Count,
			b.dialect.timeArg(inc.First),
			b.dialect.timeArg(inc.Last),
		); err != nil {
			return fmt.Errorf("saving incident for %s: %w", inc.Identity, err)
		}
	}
	return nil
}

func (b *baseStore) insertTop(ctx context.Context, tx *sql.Tx, runID string, top []analyzer.IdentityCount) error {
	if len(top) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, b.rebind(
		`INSERT INTO top_identities (run_id, rank, identity, failed_attempts)
		VALUES (?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("preparing ranking insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range top {
		if _, err := stmt.ExecContext(ctx, runID, i+1, c.Identity, c.Count); err != nil {
			return fmt.Errorf("saving ranking for %s: %w", c.Identity, err)
		}
	}
	return nil
}

func (b *baseStore) Incidents(ctx context.Context, runID string) ([]analyzer.Incident, error) {
	rows, err := b.db.QueryContext(ctx, b.rebind(
		`SELECT identity, attempts, first_seen, last_seen FROM incidents
		WHERE run_id = ? ORDER BY identity, first_seen`), runID)
	if err != nil {
		return nil, fmt.Errorf("querying incidents: %w", err)
	}
	defer rows.Close()

	var incidents []analyzer.Incident
	for rows.Next() {
		var (
			inc         analyzer.Incident
			first, last any
		)
		if err := rows.Scan(&inc.Identity, &inc.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("scanning incident: %w", err)
		}
		if inc.First, err = decodeTime(first); err != nil {
			return nil, err
		}
		if inc.Last, err = decodeTime(last); err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}

// rebind turns "?" placeholders into "$1", "$2", ... for numbered dialects.
func (b *baseStore) rebind(query string) string {
	if !b.dialect.positional {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}

func decodeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected time value %T", v)
	}
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}
