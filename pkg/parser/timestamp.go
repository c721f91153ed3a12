package parser

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// errClockFormat is returned when the time of day is not exactly HH:MM:SS.
var errClockFormat = errors.New("time of day must be HH:MM:SS")

// syslogLayout is the BSD syslog prefix ("Jan  5 10:00:01") with a leading
// year, since the log itself does not carry one.
const syslogLayout = "2006 Jan 2 15:04:05"

// TimestampParser parses year-less syslog timestamps.
type TimestampParser struct {
	year string
	loc  *time.Location
}

// NewTimestampParser creates a parser that places every timestamp in the given
// year and location. A nil location means UTC.
func NewTimestampParser(year int, loc *time.Location) *TimestampParser {
	if loc == nil {
		loc = time.UTC
	}
	return &TimestampParser{
		year: strconv.Itoa(year),
		loc:  loc,
	}
}

// Parse parses a "<month-abbrev> <day> <HH:MM:SS>" string.
func (p *TimestampParser) Parse(s string) (time.Time, error) {
	// time.Parse accepts a fractional suffix after the seconds; syslog
	// timestamps never carry one.
	if !isClock(s[strings.LastIndexByte(s, ' ')+1:]) {
		return time.Time{}, errClockFormat
	}
	return time.ParseInLocation(syslogLayout, p.year+" "+s, p.loc)
}

// isClock reports whether s is exactly two-digit HH:MM:SS.
func isClock(s string) bool {
	if len(s) != len("15:04:05") {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch i {
		case 2, 5:
			if s[i] != ':' {
				return false
			}
		default:
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		}
	}
	return true
}
