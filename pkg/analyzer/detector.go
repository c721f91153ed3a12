package analyzer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidDetector is returned for a non-positive window or threshold.
var ErrInvalidDetector = errors.New("invalid detector parameters")

// Detector clusters failed attempts into incidents.
//
// A cluster starts at some attempt and takes every following attempt no
// later than window after that first one. A cluster of at least threshold
// attempts is an incident, and scanning resumes after its last attempt.
// Otherwise scanning resumes at the next attempt. Because the whole cluster
// is consumed, attempts after it are never counted toward an overlapping
// cluster, even when a later anchor would have produced a larger one.
type Detector struct {
	window    time.Duration
	threshold int
}

// NewDetector creates a Detector. Both window and threshold must be positive.
func NewDetector(window time.Duration, threshold int) (*Detector, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be > 0, got %s", ErrInvalidDetector, window)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be > 0, got %d", ErrInvalidDetector, threshold)
	}
	return &Detector{window: window, threshold: threshold}, nil
}

// Window returns the clustering window.
func (d *Detector) Window() time.Duration { return d.window }

// Threshold returns the minimum incident size.
func (d *Detector) Threshold() int { return d.threshold }

// Detect returns the incidents in one identity's timeline, which must be
// sorted ascending. It runs in linear time and does not modify timeline.
func (d *Detector) Detect(identity string, timeline []time.Time) []Incident {
	var incidents []Incident

	n := len(timeline)
	j := 0
	for i := 0; i < n; {
		if j < i {
			j = i
		}
		for j+1 < n && timeline[j+1].Sub(timeline[i]) <= d.window {
			j++
		}

		if count := j - i + 1; count >= d.threshold {
			incidents = append(incidents, Incident{
				Identity: identity,
				Count:    count,
				First:    timeline[i],
				Last:     timeline[j],
			})
			i = j + 1
		} else {
			i++
		}
	}

	return incidents
}

// DetectAll runs Detect over every identity on at most workers goroutines.
// workers <= 0 means one per CPU. Incidents are ordered by identity, then by
// first attempt.
func (d *Detector) DetectAll(ctx context.Context, timelines *Timelines, workers int) ([]Incident, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ids := timelines.Identities()
	perID := make([][]Incident, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perID[i] = d.Detect(id, timelines.Get(id))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detecting incidents: %w", err)
	}

	incidents := make([]Incident, 0, len(ids))
	for _, found := range perID {
		incidents = append(incidents, found...)
	}
	slices.SortStableFunc(incidents, func(a, b Incident) int {
		return cmp.Or(
			cmp.Compare(a.Identity, b.Identity),
			a.First.Compare(b.First),
		)
	})

	return incidents, nil
}
