package parser

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrTooFewTokens is returned for lines too short to hold a timestamp.
	ErrTooFewTokens = errors.New("too few tokens for a timestamp")

	// ErrBadTimestamp is returned when the timestamp prefix does not parse.
	ErrBadTimestamp = errors.New("malformed timestamp")
)

// ParseFailure describes a line that could not be turned into an Event.
// It is recoverable: the line is reported and processing continues.
type ParseFailure struct {
	// Line is the offending raw line.
	Line string

	// Source and LineNum locate the line when it came from a LineSource.
	Source  string
	LineNum int

	// Err is the cause, wrapping ErrTooFewTokens or ErrBadTimestamp.
	Err error
}

func (f *ParseFailure) Error() string {
	if f.Source != "" {
		return fmt.Sprintf("%s:%d: %v: %q", f.Source, f.LineNum, f.Err, f.Line)
	}
	return fmt.Sprintf("%v: %q", f.Err, f.Line)
}

func (f *ParseFailure) Unwrap() error {
	return f.Err
}

// FailureObserver receives every line that failed to parse.
// Implementations must be safe for concurrent use.
type FailureObserver interface {
	ObserveFailure(f *ParseFailure)
}

// FailureObserverFunc adapts a function to a FailureObserver.
type FailureObserverFunc func(f *ParseFailure)

// ObserveFailure calls fn(f).
func (fn FailureObserverFunc) ObserveFailure(f *ParseFailure) {
	fn(f)
}

// MultiObserver fans a failure out to several observers in order.
type MultiObserver []FailureObserver

// ObserveFailure forwards f to every non-nil observer.
func (m MultiObserver) ObserveFailure(f *ParseFailure) {
	for _, o := range m {
		if o != nil {
			o.ObserveFailure(f)
		}
	}
}

// CountingObserver counts failures.
type CountingObserver struct {
	n atomic.Int64
}

// ObserveFailure increments the count.
func (c *CountingObserver) ObserveFailure(*ParseFailure) {
	c.n.Add(1)
}

// Count returns the number of failures observed so far.
func (c *CountingObserver) Count() int {
	return int(c.n.Load())
}
