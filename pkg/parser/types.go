// Package parser turns raw authentication log lines into structured events.
package parser

import (
	"fmt"
	"time"
)

// Kind is the outcome of an authentication attempt.
type Kind uint8

const (
	// KindOther is any line that carries no recognized auth outcome.
	KindOther Kind = iota

	// KindFailed marks a "Failed password" attempt.
	KindFailed

	// KindAccepted marks an "Accepted password" or "Accepted publickey" login.
	KindAccepted
)

// String returns the lowercase name used in reports and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindFailed:
		return "failed"
	case KindAccepted:
		return "accepted"
	default:
		return "other"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "failed":
		*k = KindFailed
	case "accepted":
		*k = KindAccepted
	case "other":
		*k = KindOther
	default:
		return fmt.Errorf("unknown event kind %q", text)
	}
	return nil
}

// Event is a single parsed authentication log line.
type Event struct {
	// Timestamp is the syslog time combined with the configured year.
	Timestamp time.Time

	// Identity is the source address following the "from" token.
	// Empty when the line has no such token.
	Identity string

	// Kind classifies the attempt.
	Kind Kind
}

// HasIdentity reports whether a source address was extracted.
func (e Event) HasIdentity() bool {
	return e.Identity != ""
}

// LogLine is a raw log line before parsing.
type LogLine struct {
	// Content is the raw line text.
	Content string

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}
