package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/authburst/pkg/analyzer"
	"github.com/ccollicutt/authburst/pkg/config"
)

var t0 = time.Date(2025, time.January, 5, 10, 0, 1, 0, time.UTC)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLite("file:" + filepath.Join(t.TempDir(), "authburst.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Init(context.Background()))
	return s
}

func testRun() Run {
	return Run{
		ID:             uuid.NewString(),
		StartedAt:      t0.Add(time.Hour),
		FinishedAt:     t0.Add(time.Hour + time.Second),
		ConfigFile:     "authburst.yaml",
		Sources:        []string{"/var/log/auth.log"},
		Window:         10 * time.Minute,
		Threshold:      5,
		Year:           2025,
		Lines:          100,
		ParseFailures:  1,
		FailedAttempts: 12,
	}
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(config.StorageConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStore(config.StorageConfig{Enabled: true, Driver: config.StorageDriverSQLite, DSN: "file::memory:"})
	require.NoError(t, err)
	assert.IsType(t, &sqliteStore{}, s)
	require.NoError(t, s.Close())

	s, err = NewStore(config.StorageConfig{Enabled: true, Driver: config.StorageDriverPostgres, DSN: "postgres://localhost:1/none"})
	require.NoError(t, err)
	assert.IsType(t, &postgresStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(config.StorageConfig{Enabled: true, Driver: "mysql"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestSQLite_InitIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	assert.NoError(t, s.Init(context.Background()))
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSQLite_SaveRunAndIncidents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := testRun()

	incidents := []analyzer.Incident{
		{Identity: "10.0.0.9", Count: 5, First: t0.Add(30 * time.Minute), Last: t0.Add(35 * time.Minute)},
		{Identity: "10.0.0.1", Count: 7, First: t0, Last: t0.Add(9 * time.Minute)},
		{Identity: "10.0.0.9", Count: 6, First: t0, Last: t0.Add(2 * time.Minute)},
	}
	top := []analyzer.IdentityCount{{Identity: "10.0.0.9", Count: 11}, {Identity: "10.0.0.1", Count: 7}}

	require.NoError(t, s.SaveRun(ctx, run, incidents, top))

	got, err := s.Incidents(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []analyzer.Incident{incidents[1], incidents[2], incidents[0]}, got)

	db := s.(*sqliteStore).db
	var ranked string
	require.NoError(t, db.QueryRow(`SELECT identity FROM top_identities WHERE run_id = ? AND rank = 1`, run.ID).Scan(&ranked))
	assert.Equal(t, "10.0.0.9", ranked)

	var sources string
	var window, count int
	require.NoError(t, db.QueryRow(`SELECT sources_json, window_sec, incidents FROM runs WHERE id = ?`, run.ID).Scan(&sources, &window, &count))
	assert.JSONEq(t, `["/var/log/auth.log"]`, sources)
	assert.Equal(t, 600, window)
	assert.Equal(t, 3, count)
}

func TestSQLite_SaveRunWithoutIncidents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := testRun()

	require.NoError(t, s.SaveRun(ctx, run, nil, nil))

	got, err := s.Incidents(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_RunsAreSeparate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, second := testRun(), testRun()
	require.NoError(t, s.SaveRun(ctx, first, []analyzer.Incident{{Identity: "a", Count: 5, First: t0, Last: t0}}, nil))
	require.NoError(t, s.SaveRun(ctx, second, []analyzer.Incident{{Identity: "b", Count: 5, First: t0, Last: t0}}, nil))

	got, err := s.Incidents(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Identity)
}

func TestSQLite_SaveRun_DuplicateIDRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := testRun()

	require.NoError(t, s.SaveRun(ctx, run, nil, nil))
	err := s.SaveRun(ctx, run, []analyzer.Incident{{Identity: "a", Count: 5, First: t0, Last: t0}}, nil)
	require.Error(t, err)

	got, err := s.Incidents(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_SaveRun_InvalidID(t *testing.T) {
	s := newTestStore(t)
	run := testRun()
	run.ID = "not-a-uuid"

	assert.Error(t, s.SaveRun(context.Background(), run, nil, nil))
}

func TestNewRun(t *testing.T) {
	result := &analyzer.AnalysisResult{
		Stats: analyzer.Stats{Lines: 10, ParseFailures: 2, Failed: 4},
		Metadata: analyzer.AnalysisMetadata{
			Sources:   []string{"auth.log"},
			Window:    time.Minute,
			Threshold: 3,
			Year:      2024,
			StartTime: t0,
			EndTime:   t0.Add(time.Second),
		},
	}

	run := NewRun(result, "cfg.yaml")

	_, err := uuid.Parse(run.ID)
	assert.NoError(t, err)
	assert.Equal(t, "cfg.yaml", run.ConfigFile)
	assert.Equal(t, 10, run.Lines)
	assert.Equal(t, 4, run.FailedAttempts)
	assert.Equal(t, 2024, run.Year)
	assert.NotEqual(t, run.ID, NewRun(result, "cfg.yaml").ID)
}

func TestRebind(t *testing.T) {
	b := &baseStore{dialect: postgresDialect}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", b.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	b = &baseStore{dialect: sqliteDialect}
	assert.Equal(t, "a = ?", b.rebind("a = ?"))
}

func TestDecodeTime(t *testing.T) {
	got, err := decodeTime("2025-01-05T10:00:01.000000000Z")
	require.NoError(t, err)
	assert.Equal(t, t0, got)

	got, err = decodeTime([]byte("2025-01-05T10:00:01Z"))
	require.NoError(t, err)
	assert.Equal(t, t0, got)

	got, err = decodeTime(t0.In(time.FixedZone("X", 3600)))
	require.NoError(t, err)
	assert.Equal(t, t0, got)

	_, err = decodeTime(42)
	assert.Error(t, err)
}
