package analyzer

import (
	"iter"
	"slices"
	"time"

	"github.com/ccollicutt/authburst/pkg/parser"
)

// TimelineBuilder collects failed attempts per identity in arrival order.
// It is not safe for concurrent use.
type TimelineBuilder struct {
	order  []string
	groups map[string][]time.Time
}

// NewTimelineBuilder creates an empty builder.
func NewTimelineBuilder() *TimelineBuilder {
	return &TimelineBuilder{groups: make(map[string][]time.Time)}
}

// Add records ev if it is a failed attempt with a timestamp and an identity.
// It reports whether the event was retained.
func (b *TimelineBuilder) Add(ev parser.Event) bool {
	if ev.Kind != parser.KindFailed || !ev.HasIdentity() || ev.Timestamp.IsZero() {
		return false
	}

	ts, seen := b.groups[ev.Identity]
	if !seen {
		b.order = append(b.order, ev.Identity)
	}
	b.groups[ev.Identity] = append(ts, ev.Timestamp)
	return true
}

// Build returns the timelines, each stable-sorted ascending.
// The builder may keep accepting events afterwards.
func (b *TimelineBuilder) Build() *Timelines {
	t := &Timelines{
		order: slices.Clone(b.order),
		byID:  make(map[string][]time.Time, len(b.groups)),
	}
	for id, ts := range b.groups {
		sorted := slices.Clone(ts)
		slices.SortStableFunc(sorted, time.Time.Compare)
		t.byID[id] = sorted
	}
	return t
}

// Group builds timelines from a sequence of events.
func Group(events iter.Seq[parser.Event]) *Timelines {
	b := NewTimelineBuilder()
	for ev := range events {
		b.Add(ev)
	}
	return b.Build()
}

// Timelines maps each identity to the ascending times of its failed attempts.
// An identity is present only if it has at least one failed attempt.
type Timelines struct {
	order []string
	byID  map[string][]time.Time
}

// Len returns the number of identities.
func (t *Timelines) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Identities returns the identities in the order they were first seen.
func (t *Timelines) Identities() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.order)
}

// Get returns the sorted timeline for id, or nil if id has none.
// The returned slice must not be modified.
func (t *Timelines) Get(id string) []time.Time {
	if t == nil {
		return nil
	}
	return t.byID[id]
}

// All iterates identities in discovery order with their timelines.
func (t *Timelines) All() iter.Seq2[string, []time.Time] {
	return func(yield func(string, []time.Time) bool) {
		if t == nil {
			return
		}
		for _, id := range t.order {
			if !yield(id, t.byID[id]) {
				return
			}
		}
	}
}

// FailedCounts returns the failed attempt count per identity, in discovery order.
func (t *Timelines) FailedCounts() []IdentityCount {
	counts := make([]IdentityCount, 0, t.Len())
	for id, ts := range t.All() {
		counts = append(counts, IdentityCount{Identity: id, Count: len(ts)})
	}
	return counts
}

// TopN returns up to n identities ranked by failed attempts, highest first.
// Ties keep discovery order. n <= 0 returns every identity.
func (t *Timelines) TopN(n int) []IdentityCount {
	counts := t.FailedCounts()
	slices.SortStableFunc(counts, func(a, b IdentityCount) int {
		return b.Count - a.Count
	})
	if n > 0 && n < len(counts) {
		counts = counts[:n]
	}
	return counts
}
