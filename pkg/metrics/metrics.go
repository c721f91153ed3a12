// Package metrics records per-run analysis counters in a private Prometheus
// registry. A run writes them once, at the end, to a node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ccollicutt/authburst/pkg/parser"
)

const namespace = "authburst"

// Recorder holds the metrics of a single analysis run.
// All methods are safe for concurrent use, and a nil *Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	lines         prometheus.Counter
	parseFailures prometheus.Counter
	events        *prometheus.CounterVec
	incidents     prometheus.Counter
	identities    prometheus.Gauge
	duration      prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		lines: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Total number of log lines read.",
		}),
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Total number of log lines that could not be parsed.",
		}),
		// kind: failed | accepted | other
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of parsed authentication events by kind.",
		}, []string{"kind"}),
		incidents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_total",
			Help:      "Total number of brute-force incidents detected.",
		}),
		identities: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identities",
			Help:      "Number of distinct source addresses with failed attempts.",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall-clock duration of the last analysis run in seconds.",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last analysis run completed.",
		}),
	}

	// Pre-create every kind so zero counts are still exported.
	for _, k := range []parser.Kind{parser.KindFailed, parser.KindAccepted, parser.KindOther} {
		r.events.WithLabelValues(k.String())
	}

	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveLine counts one line read from a source.
func (r *Recorder) ObserveLine() {
	if r == nil {
		return
	}
	r.lines.Inc()
}

// ObserveEvent counts one successfully parsed event.
func (r *Recorder) ObserveEvent(kind parser.Kind) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(kind.String()).Inc()
}

// ObserveFailure implements parser.FailureObserver.
func (r *Recorder) ObserveFailure(*parser.ParseFailure) {
	if r == nil {
		return
	}
	r.parseFailures.Inc()
}

// RecordResult stores the outcome of a finished run.
func (r *Recorder) RecordResult(incidents, identities int, elapsed time.Duration, finished time.Time) {
	if r == nil {
		return
	}
	r.incidents.Add(float64(incidents))
	r.identities.Set(float64(identities))
	r.duration.Set(elapsed.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format.
// The write is atomic, as the textfile collector requires.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

var _ parser.FailureObserver = (*Recorder)(nil)
