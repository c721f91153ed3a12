package analyzer

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.January, 5, 10, 0, 0, 0, time.UTC)

func offsets(mins ...int) []time.Time {
	ts := make([]time.Time, len(mins))
	for i, m := range mins {
		ts[i] = t0.Add(time.Duration(m) * time.Minute)
	}
	return ts
}

func mustDetector(t *testing.T, window time.Duration, threshold int) *Detector {
	t.Helper()
	d, err := NewDetector(window, threshold)
	require.NoError(t, err)
	return d
}

func TestNewDetector_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		window    time.Duration
		threshold int
	}{
		{"zero window", 0, 5},
		{"negative window", -time.Minute, 5},
		{"zero threshold", time.Minute, 0},
		{"negative threshold", time.Minute, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(tt.window, tt.threshold)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrInvalidDetector)
		})
	}
}

func TestDetector_WindowAnchoredToFirstAttempt(t *testing.T) {
	d := mustDetector(t, 10*time.Minute, 5)

	got := d.Detect("10.0.0.5", offsets(0, 2, 4, 6, 8, 12))

	require.Len(t, got, 1)
	assert.Equal(t, Incident{
		Identity: "10.0.0.5",
		Count:    5,
		First:    t0,
		Last:     t0.Add(8 * time.Minute),
	}, got[0])
}

func TestDetector_ThresholdBoundary(t *testing.T) {
	d := mustDetector(t, 10*time.Minute, 5)

	assert.Empty(t, d.Detect("a", offsets(0, 1, 2, 3)))

	got := d.Detect("a", offsets(0, 1, 2, 3, 4))
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Count)
}

func TestDetector_WindowBoundaryIsInclusive(t *testing.T) {
	d := mustDetector(t, 10*time.Minute, 2)

	got := d.Detect("a", offsets(0, 10))
	require.Len(t, got, 1)
	assert.Equal(t, 10*time.Minute, got[0].Span())

	assert.Empty(t, d.Detect("a", []time.Time{t0, t0.Add(10*time.Minute + time.Second)}))
}

func TestDetector_EmptyTimeline(t *testing.T) {
	d := mustDetector(t, time.Minute, 1)

	assert.Empty(t, d.Detect("a", nil))
	assert.Empty(t, d.Detect("a", []time.Time{}))
}

func TestDetector_ThresholdOne(t *testing.T) {
	d := mustDetector(t, time.Minute, 1)

	got := d.Detect("a", offsets(0, 5, 10))
	require.Len(t, got, 3)
	for i, inc := range got {
		assert.Equal(t, 1, inc.Count)
		assert.Equal(t, inc.First, inc.Last, "incident %d", i)
	}
}

func TestDetector_SkipsPastCluster(t *testing.T) {
	d := mustDetector(t, 10*time.Minute, 3)

	// Anchored at 9, the attempts 9 and 11 and 15 would form a second
	// incident, but 9 already belongs to the first one.
	got := d.Detect("a", offsets(0, 3, 9, 11, 15))
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Count)
	assert.Equal(t, t0.Add(9*time.Minute), got[0].Last)
}

func TestDetector_SlidesPastSparseStart(t *testing.T) {
	d := mustDetector(t, 5*time.Minute, 3)

	got := d.Detect("a", offsets(0, 20, 21, 22, 40, 41, 42, 43))
	require.Len(t, got, 2)
	assert.Equal(t, Incident{Identity: "a", Count: 3, First: t0.Add(20 * time.Minute), Last: t0.Add(22 * time.Minute)}, got[0])
	assert.Equal(t, Incident{Identity: "a", Count: 4, First: t0.Add(40 * time.Minute), Last: t0.Add(43 * time.Minute)}, got[1])
}

func TestDetector_DuplicateTimestamps(t *testing.T) {
	d := mustDetector(t, time.Second, 4)

	ts := []time.Time{t0, t0, t0, t0, t0.Add(2 * time.Second)}
	got := d.Detect("a", ts)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, t0, got[0].Last)
}

func TestDetector_DoesNotModifyTimeline(t *testing.T) {
	d := mustDetector(t, 10*time.Minute, 2)
	ts := offsets(0, 1, 2, 30, 31)
	before := slices.Clone(ts)

	d.Detect("a", ts)

	assert.Equal(t, before, ts)
}

func randomTimeline(r *rand.Rand, n int) []time.Time {
	ts := make([]time.Time, n)
	cur := t0
	for i := range ts {
		cur = cur.Add(time.Duration(r.IntN(180)) * time.Second)
		ts[i] = cur
	}
	return ts
}

func TestDetector_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 200; trial++ {
		window := time.Duration(1+r.IntN(15)) * time.Minute
		threshold := 1 + r.IntN(8)
		d := mustDetector(t, window, threshold)
		ts := randomTimeline(r, r.IntN(60))

		got := d.Detect("x", ts)

		// Idempotent.
		assert.Equal(t, got, d.Detect("x", ts))

		for k, inc := range got {
			assert.GreaterOrEqual(t, inc.Count, threshold)
			assert.False(t, inc.Last.Before(inc.First))
			assert.LessOrEqual(t, inc.Span(), window)

			// Count is exactly the attempts within [First, Last].
			inside := 0
			for _, at := range ts {
				if !at.Before(inc.First) && !at.After(inc.Last) {
					inside++
				}
			}
			assert.Equal(t, inside, inc.Count)

			// Incidents of one identity never overlap.
			if k > 0 {
				assert.True(t, got[k-1].Last.Before(inc.First))
			}
		}
	}
}

func buildTimelines(groups map[string][]time.Time, order ...string) *Timelines {
	return &Timelines{order: order, byID: groups}
}

func TestDetector_DetectAll_Ordering(t *testing.T) {
	d := mustDetector(t, 10*time.Minute, 2)
	tl := buildTimelines(map[string][]time.Time{
		"10.0.0.9": offsets(0, 1, 30, 31),
		"10.0.0.1": offsets(5, 6),
		"10.0.0.5": offsets(0),
	}, "10.0.0.9", "10.0.0.1", "10.0.0.5")

	for _, workers := range []int{0, 1, 8} {
		got, err := d.DetectAll(context.Background(), tl, workers)
		require.NoError(t, err)

		require.Len(t, got, 3)
		assert.Equal(t, "10.0.0.1", got[0].Identity)
		assert.Equal(t, "10.0.0.9", got[1].Identity)
		assert.Equal(t, t0, got[1].First)
		assert.Equal(t, "10.0.0.9", got[2].Identity)
		assert.Equal(t, t0.Add(30*time.Minute), got[2].First)
	}
}

func TestDetector_DetectAll_Empty(t *testing.T) {
	d := mustDetector(t, time.Minute, 1)

	got, err := d.DetectAll(context.Background(), NewTimelineBuilder().Build(), 4)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDetector_DetectAll_Cancelled(t *testing.T) {
	d := mustDetector(t, time.Minute, 1)
	tl := buildTimelines(map[string][]time.Time{"a": offsets(0)}, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DetectAll(ctx, tl, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
