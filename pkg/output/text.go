package output

import (
	"context"
	"fmt"
	"io"
	"time"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "authburst: %d incidents, %d failed attempts from %d addresses\n",
		report.Summary.Incidents,
		report.Summary.FailedAttempts,
		report.Summary.Identities)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("Detected %d brute-force incidents\n", len(report.Incidents))
	if len(report.Incidents) > 0 {
		ew.println()
	}
	for _, inc := range report.Incidents {
		ew.printf("  - %s: %d failed attempts from %s to %s (%s)\n",
			inc.IP,
			inc.Count,
			inc.First.Format(TimelineLayout),
			inc.Last.Format(TimelineLayout),
			inc.Span())
	}

	ew.println()
	ew.printf("Top attacker IPs:\n")
	if len(report.TopIdentities) == 0 {
		ew.printf("  (no failed attempts)\n")
	}
	for _, c := range report.TopIdentities {
		ew.printf("%s: %d failed attempts\n", c.IP, c.FailedAttempts)
	}

	if f.opts.Verbose {
		f.formatStats(report, ew)
	}

	return ew.err
}

func (f *TextFormatter) formatStats(report *Report, ew *errWriter) {
	s := report.Summary
	m := report.Metadata

	ew.println()
	ew.printf("---\n")
	ew.printf("Lines processed: %d (%d unparseable)\n", s.LinesProcessed, s.ParseFailures)
	ew.printf("Failed attempts: %d (%d without source address)\n", s.FailedAttempts, s.MissingIdentity)
	ew.printf("Accepted logins: %d\n", s.AcceptedLogins)
	if s.OutOfRange > 0 {
		ew.printf("Outside time range: %d\n", s.OutOfRange)
	}
	ew.printf("Detection: %d attempts within %s (year %d)\n", m.Threshold, m.Window, m.Year)
	if m.TimeRange != nil {
		ew.printf("Time range: %s to %s\n", m.TimeRange.Start.Format(time.RFC3339), m.TimeRange.End.Format(time.RFC3339))
	}
	if m.RunID != "" {
		ew.printf("Run ID: %s\n", m.RunID)
	}
	ew.printf("Duration: %s\n", m.Duration)
}

// errWriter remembers the first write error so formatting code can stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) println() {
	e.printf("\n")
}
