package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ccollicutt/authburst/pkg/analyzer"
)

var t0 = time.Date(2025, time.January, 5, 10, 0, 1, 0, time.UTC)

func createTestReport() *Report {
	return &Report{
		Summary: Summary{
			LinesProcessed:  120,
			ParseFailures:   2,
			FailedAttempts:  17,
			AcceptedLogins:  3,
			MissingIdentity: 1,
			Identities:      3,
			Incidents:       2,
		},
		Incidents: []Incident{
			{IP: "10.0.0.5", Count: 6, First: t0, Last: t0.Add(4*time.Minute + 30*time.Second)},
			{IP: "203.0.113.7", Count: 5, First: t0.Add(time.Hour), Last: t0.Add(time.Hour + 2*time.Minute)},
		},
		TopIdentities: []IdentityCount{
			{IP: "10.0.0.5", FailedAttempts: 8},
			{IP: "203.0.113.7", FailedAttempts: 6},
			{IP: "192.168.1.20", FailedAttempts: 2},
		},
		Metadata: Metadata{
			RunID:      "5f0c7a3e-8c1d-4b8e-9a3f-2d7e1c6b9a10",
			ConfigFile: "authburst.yaml",
			Sources:    []string{"/var/log/auth.log"},
			Window:     "10m0s",
			Threshold:  5,
			Year:       2025,
			AnalyzedAt: t0.Add(2 * time.Hour),
			Duration:   "12ms",
		},
	}
}

func TestNewReport(t *testing.T) {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	result := &analyzer.AnalysisResult{
		Incidents: []analyzer.Incident{
			{Identity: "10.0.0.5", Count: 5, First: t0, Last: t0.Add(time.Minute)},
		},
		TopIdentities: []analyzer.IdentityCount{
			{Identity: "10.0.0.5", Count: 5},
			{Identity: "10.0.0.6", Count: 1},
		},
		Stats: analyzer.Stats{
			Lines:           10,
			ParseFailures:   1,
			Failed:          7,
			Accepted:        2,
			MissingIdentity: 1,
			OutOfRange:      3,
			Identities:      2,
		},
		Metadata: analyzer.AnalysisMetadata{
			Sources:   []string{"auth.log"},
			TimeRange: &analyzer.TimeRange{Start: start, End: start.Add(time.Hour)},
			Window:    10 * time.Minute,
			Threshold: 5,
			Year:      2025,
			StartTime: start,
			EndTime:   start.Add(1500 * time.Microsecond),
		},
	}

	report := NewReport(result, "config.yaml")

	assert.Equal(t, Summary{
		LinesProcessed:  10,
		ParseFailures:   1,
		FailedAttempts:  7,
		AcceptedLogins:  2,
		MissingIdentity: 1,
		OutOfRange:      3,
		Identities:      2,
		Incidents:       1,
	}, report.Summary)
	assert.Equal(t, []Incident{{IP: "10.0.0.5", Count: 5, First: t0, Last: t0.Add(time.Minute)}}, report.Incidents)
	assert.Equal(t, []IdentityCount{{IP: "10.0.0.5", FailedAttempts: 5}, {IP: "10.0.0.6", FailedAttempts: 1}}, report.TopIdentities)
	assert.Equal(t, "config.yaml", report.Metadata.ConfigFile)
	assert.Equal(t, "10m0s", report.Metadata.Window)
	assert.Equal(t, "2ms", report.Metadata.Duration)
	assert.Equal(t, start.Add(time.Hour), report.Metadata.TimeRange.End)
	assert.True(t, report.HasIncidents())
}

func TestNewReport_Empty(t *testing.T) {
	report := NewReport(&analyzer.AnalysisResult{}, "")

	assert.NotNil(t, report.Incidents)
	assert.NotNil(t, report.TopIdentities)
	assert.Nil(t, report.Metadata.TimeRange)
	assert.False(t, report.HasIncidents())
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"", "text", "json", "chart"} {
		f, err := NewFormatter(name, FormatOptions{})
		assert.NoError(t, err, name)
		assert.NotNil(t, f)
	}

	_, err := NewFormatter("png", FormatOptions{})
	assert.ErrorContains(t, err, "png")
}
