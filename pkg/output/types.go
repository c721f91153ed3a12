// Package output provides formatting and output generation for analysis results.
package output

import (
	"time"

	"github.com/ccollicutt/authburst/pkg/analyzer"
)

// Report is the complete analysis output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Incidents lists every detected brute-force incident.
	Incidents []Incident `json:"incidents"`

	// TopIdentities ranks source addresses by failed attempts.
	TopIdentities []IdentityCount `json:"top_identities"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	LinesProcessed  int `json:"lines_processed"`
	ParseFailures   int `json:"parse_failures"`
	FailedAttempts  int `json:"failed_attempts"`
	AcceptedLogins  int `json:"accepted_logins"`
	MissingIdentity int `json:"missing_identity"`
	OutOfRange      int `json:"out_of_range,omitempty"`
	Identities      int `json:"identities"`
	Incidents       int `json:"incidents"`
}

// Incident is a detected burst of failed logins from one address.
type Incident struct {
	IP    string    `json:"ip"`
	Count int       `json:"count"`
	First time.Time `json:"first"`
	Last  time.Time `json:"last"`
}

// Span returns the time between the first and last attempt.
func (i Incident) Span() time.Duration {
	return i.Last.Sub(i.First)
}

// IdentityCount is one row of the attacker ranking.
type IdentityCount struct {
	IP             string `json:"ip"`
	FailedAttempts int    `json:"failed_attempts"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// RunID identifies the run in storage, when persisted.
	RunID string `json:"run_id,omitempty"`

	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file"`

	// Sources lists the log files that were analyzed.
	Sources []string `json:"sources"`

	// TimeRange is the time filter that was applied, if any.
	TimeRange *TimeRange `json:"time_range,omitempty"`

	Window    string `json:"window"`
	Threshold int    `json:"threshold"`
	Year      int    `json:"year"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration string `json:"duration"`
}

// TimeRange represents a time window for filtering.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewReport creates a Report from analysis results.
func NewReport(result *analyzer.AnalysisResult, configFile string) *Report {
	stats := result.Stats

	report := &Report{
		Incidents:     make([]Incident, 0, len(result.Incidents)),
		TopIdentities: make([]IdentityCount, 0, len(result.TopIdentities)),
		Metadata: Metadata{
			ConfigFile: configFile,
			Sources:    result.Metadata.Sources,
			Window:     result.Metadata.Window.String(),
			Threshold:  result.Metadata.Threshold,
			Year:       result.Metadata.Year,
			AnalyzedAt: result.Metadata.EndTime,
			Duration:   result.Metadata.Duration().Round(time.Millisecond).String(),
		},
		Summary: Summary{
			LinesProcessed:  stats.Lines,
			ParseFailures:   stats.ParseFailures,
			FailedAttempts:  stats.Failed,
			AcceptedLogins:  stats.Accepted,
			MissingIdentity: stats.MissingIdentity,
			OutOfRange:      stats.OutOfRange,
			Identities:      stats.Identities,
			Incidents:       len(result.Incidents),
		},
	}

	for _, inc := range result.Incidents {
		report.Incidents = append(report.Incidents, Incident{
			IP:    inc.Identity,
			Count: inc.Count,
			First: inc.First,
			Last:  inc.Last,
		})
	}

	for _, c := range result.TopIdentities {
		report.TopIdentities = append(report.TopIdentities, IdentityCount{
			IP:             c.Identity,
			FailedAttempts: c.Count,
		})
	}

	if result.Metadata.TimeRange != nil {
		report.Metadata.TimeRange = &TimeRange{
			Start: result.Metadata.TimeRange.Start,
			End:   result.Metadata.TimeRange.End,
		}
	}

	return report
}

// HasIncidents returns true if any incident was detected.
func (r *Report) HasIncidents() bool {
	return r.Summary.Incidents > 0
}
