package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/authburst/pkg/config"
	"github.com/ccollicutt/authburst/pkg/metrics"
	"github.com/ccollicutt/authburst/pkg/parser"
)

// Analyzer reads auth log lines and reports brute-force incidents.
type Analyzer struct {
	cfg      *config.Config
	parser   *parser.LineParser
	detector *Detector

	// Options
	timeRange *TimeRange
	observer  parser.FailureObserver
	logger    *zap.Logger
	metrics   *metrics.Recorder
	workers   int
	topN      int
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithTimeRange limits analysis to events within the given time range.
func WithTimeRange(start, end time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.timeRange = &TimeRange{Start: start, End: end}
	}
}

// WithObserver sets where unparseable lines are reported.
func WithObserver(o parser.FailureObserver) AnalyzerOption {
	return func(a *Analyzer) {
		a.observer = o
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records run metrics into r.
func WithMetrics(r *metrics.Recorder) AnalyzerOption {
	return func(a *Analyzer) {
		a.metrics = r
	}
}

// WithWorkers overrides detection.workers.
func WithWorkers(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithTopN overrides report.top_n.
func WithTopN(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.topN = n
	}
}

// NewAnalyzer creates a new analyzer from a validated configuration.
func NewAnalyzer(cfg *config.Config, opts ...AnalyzerOption) (*Analyzer, error) {
	detector, err := NewDetector(cfg.Detection.Window, cfg.Detection.Threshold)
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}

	a := &Analyzer{
		cfg:      cfg,
		parser:   parser.NewLineParser(cfg.Year, cfg.Location()),
		detector: detector,
		logger:   zap.NewNop(),
		workers:  cfg.Detection.Workers,
		topN:     cfg.Report.TopN,
	}

	// Apply options
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Analyze reads every line from source and returns the detected incidents.
// Unparseable lines are reported to the observer and skipped.
func (a *Analyzer) Analyze(ctx context.Context, source parser.LineSource) (*AnalysisResult, error) {
	result := &AnalysisResult{
		Metadata: AnalysisMetadata{
			TimeRange: a.timeRange,
			Window:    a.detector.Window(),
			Threshold: a.detector.Threshold(),
			Year:      a.cfg.Year,
			StartTime: time.Now(),
		},
	}
	stats := &result.Stats
	builder := NewTimelineBuilder()

	// Track sources seen
	sourcesMap := make(map[string]bool)

	// Process all log lines
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading log source: %w", err)
		}

		if !sourcesMap[line.Source] {
			sourcesMap[line.Source] = true
			result.Metadata.Sources = append(result.Metadata.Sources, line.Source)
			a.logger.Debug("reading log source", zap.String("source", line.Source))
		}

		stats.Lines++
		a.metrics.ObserveLine()

		ev, err := a.parser.Parse(line.Content)
		if err != nil {
			a.reportFailure(line, err)
			stats.ParseFailures++
			continue
		}

		if a.timeRange != nil && !a.timeRange.Contains(ev.Timestamp) {
			stats.OutOfRange++
			continue
		}

		a.metrics.ObserveEvent(ev.Kind)
		switch ev.Kind {
		case parser.KindFailed:
			stats.Failed++
			if !ev.HasIdentity() {
				stats.MissingIdentity++
			}
		case parser.KindAccepted:
			stats.Accepted++
		default:
			stats.Other++
		}

		if builder.Add(ev) {
			stats.Retained++
		}
	}

	result.Timelines = builder.Build()
	stats.Identities = result.Timelines.Len()

	incidents, err := a.detector.DetectAll(ctx, result.Timelines, a.workers)
	if err != nil {
		return nil, err
	}
	result.Incidents = incidents
	result.TopIdentities = result.Timelines.TopN(a.topN)

	result.Metadata.EndTime = time.Now()
	a.metrics.RecordResult(len(incidents), stats.Identities, result.Metadata.Duration(), result.Metadata.EndTime)

	a.logger.Info("analysis complete",
		zap.Int("lines", stats.Lines),
		zap.Int("parse_failures", stats.ParseFailures),
		zap.Int("failed_events", stats.Failed),
		zap.Int("identities", stats.Identities),
		zap.Int("incidents", len(incidents)),
		zap.Duration("duration", result.Metadata.Duration()),
	)

	return result, nil
}

// reportFailure locates a parse failure in its source and hands it to the
// observers.
func (a *Analyzer) reportFailure(line *parser.LogLine, err error) {
	var pf *parser.ParseFailure
	if !errors.As(err, &pf) {
		pf = &parser.ParseFailure{Line: line.Content, Err: err}
	}
	pf.Source = line.Source
	pf.LineNum = line.LineNum

	a.metrics.ObserveFailure(pf)
	if a.observer != nil {
		a.observer.ObserveFailure(pf)
	}
}
