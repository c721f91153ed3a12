package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ccollicutt/authburst/pkg/analyzer"
)

// TimelineLayout is how timeline dumps print attempt times.
const TimelineLayout = "Jan 02 15:04:05"

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	enc := newEncoder(w)

	if f.opts.Quiet {
		// Quiet mode: just summary
		return enc.Encode(report.Summary)
	}

	return enc.Encode(report)
}

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

// WriteTimelinesJSON writes every identity's failed attempt times as a JSON
// object. Keys keep discovery order, which encoding a map would lose.
func WriteTimelinesJSON(w io.Writer, timelines *analyzer.Timelines) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for id, ts := range timelines.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(id)
		if err != nil {
			return fmt.Errorf("encoding identity %q: %w", id, err)
		}
		val, err := json.Marshal(formatTimes(ts))
		if err != nil {
			return fmt.Errorf("encoding timeline for %q: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("indenting timelines: %w", err)
	}
	out.WriteByte('\n')

	_, err := out.WriteTo(w)
	return err
}

func formatTimes(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Format(TimelineLayout)
	}
	return out
}
