package parser

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// timestampTokens is the number of leading whitespace-delimited tokens that
// make up the syslog timestamp.
const timestampTokens = 3

const identityMarker = "from"

// Outcome markers, checked in order.
var (
	failedMarkers   = []string{"Failed password"}
	acceptedMarkers = []string{"Accepted password", "Accepted publickey"}
)

// LineParser converts sshd auth log lines into Events.
// It holds no mutable state and is safe for concurrent use.
type LineParser struct {
	ts *TimestampParser
}

// NewLineParser creates a parser that dates events in the given year.
// A nil location means UTC.
func NewLineParser(year int, loc *time.Location) *LineParser {
	return &LineParser{ts: NewTimestampParser(year, loc)}
}

// Parse converts one line into an Event.
// On failure the returned error is a *ParseFailure carrying the raw line.
func (p *LineParser) Parse(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < timestampTokens {
		return Event{}, &ParseFailure{
			Line: line,
			Err:  fmt.Errorf("%w: got %d, need %d", ErrTooFewTokens, len(fields), timestampTokens),
		}
	}

	prefix := strings.Join(fields[:timestampTokens], " ")
	ts, err := p.ts.Parse(prefix)
	if err != nil {
		return Event{}, &ParseFailure{
			Line: line,
			Err:  fmt.Errorf("%w %q: %w", ErrBadTimestamp, prefix, err),
		}
	}

	return Event{
		Timestamp: ts,
		Identity:  extractIdentity(fields),
		Kind:      Classify(line),
	}, nil
}

// Classify returns the attempt outcome named by the line's markers.
// "Failed password" wins over the accepted markers when both appear.
func Classify(line string) Kind {
	if containsAny(line, failedMarkers) {
		return KindFailed
	}
	if containsAny(line, acceptedMarkers) {
		return KindAccepted
	}
	return KindOther
}

// extractIdentity returns the token after the first "from", or "".
func extractIdentity(fields []string) string {
	idx := slices.Index(fields, identityMarker)
	if idx < 0 || idx+1 >= len(fields) {
		return ""
	}
	return fields[idx+1]
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
