// Package analyzer groups parsed auth events into per-address timelines and
// detects brute-force incidents in them.
package analyzer

import (
	"time"
)

// Incident is a cluster of failed login attempts from one identity.
// First and Last are inclusive bounds; Count is never below the
// detector's threshold.
type Incident struct {
	Identity string
	Count    int
	First    time.Time
	Last     time.Time
}

// Span returns the time between the first and last attempt.
func (i Incident) Span() time.Duration {
	return i.Last.Sub(i.First)
}

// IdentityCount is the number of failed attempts seen from one identity.
type IdentityCount struct {
	Identity string
	Count    int
}

// TimeRange defines a time window for filtering events.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, bounds included.
func (r *TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Stats counts what happened to the input during an analysis.
type Stats struct {
	// Lines is the total number of lines read.
	Lines int

	// ParseFailures is the number of lines that could not be parsed.
	ParseFailures int

	// Failed, Accepted and Other count parsed events by kind.
	Failed   int
	Accepted int
	Other    int

	// OutOfRange is the number of events dropped by the time range filter.
	OutOfRange int

	// MissingIdentity is the number of failed events with no source address.
	MissingIdentity int

	// Retained is the number of failed events placed on a timeline.
	Retained int

	// Identities is the number of distinct identities with a timeline.
	Identities int
}

// AnalysisResult contains the complete analysis output.
type AnalysisResult struct {
	// Incidents is ordered by identity, then by first attempt.
	Incidents []Incident

	// Timelines holds the sorted failed-attempt times per identity.
	Timelines *Timelines

	// TopIdentities ranks identities by failed attempts.
	TopIdentities []IdentityCount

	Stats Stats

	// Metadata provides context about the analysis.
	Metadata AnalysisMetadata
}

// HasIncidents returns true if any incident was detected.
func (r *AnalysisResult) HasIncidents() bool {
	return len(r.Incidents) > 0
}

// AnalysisMetadata provides context about the analysis run.
type AnalysisMetadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string

	// Sources lists the log files that were analyzed.
	Sources []string

	// TimeRange is the time filter applied, if any.
	TimeRange *TimeRange

	Window    time.Duration
	Threshold int
	Year      int

	// StartTime is when analysis began.
	StartTime time.Time

	// EndTime is when analysis completed.
	EndTime time.Time
}

// Duration returns how long the analysis took.
func (m AnalysisMetadata) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}
