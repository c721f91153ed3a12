package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ccollicutt/authburst/pkg/analyzer"
	"github.com/ccollicutt/authburst/pkg/config"
	"github.com/ccollicutt/authburst/pkg/logging"
	"github.com/ccollicutt/authburst/pkg/metrics"
	"github.com/ccollicutt/authburst/pkg/output"
	"github.com/ccollicutt/authburst/pkg/parser"
	"github.com/ccollicutt/authburst/pkg/store"
	"github.com/ccollicutt/authburst/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Output     string
	ReportFile string
	TimeRange  string
	Verbose    bool
	Quiet      bool
	NoStore    bool

	Detection DetectionFlags

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// DetectionFlags override the detection section of the config file.
type DetectionFlags struct {
	Year      int
	Window    time.Duration
	Threshold int
	Workers   int
	Top       int
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <config-file>",
		Short: "Detect brute-force login incidents",
		Long: `Analyze auth logs for brute-force login incidents.

An incident is a run of failed password attempts from one source address
where at least <threshold> attempts fall within <window> of the first one.
The report lists every incident and ranks addresses by failed attempts.

Lines that cannot be parsed are logged and skipped.

Exit codes:
  0 - No incidents detected
  1 - Incidents detected
  2 - Configuration or runtime error`,
		Example: `  authburst analyze authburst.yaml
  authburst analyze authburst.yaml --window 5m --threshold 10
  authburst analyze authburst.yaml -o chart --top 5
  authburst analyze authburst.yaml -o json --report-file incidents.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|chart)")
	cmd.Flags().StringVar(&opts.ReportFile, "report-file", "", "Also write the report to this file")
	cmd.Flags().StringVar(&opts.TimeRange, "time-range", "", "Limit analysis to a recent window (e.g., 2h, 24h)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Include input statistics in the report")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "Do not persist this run even if storage is enabled")
	addDetectionFlags(cmd, &opts.Detection)

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnIncidents), "When to fire webhook (on_incidents|always|never)")

	return cmd
}

func addDetectionFlags(cmd *cobra.Command, f *DetectionFlags) {
	cmd.Flags().IntVar(&f.Year, "year", 0, "Year of the log timestamps (default: from config)")
	cmd.Flags().DurationVar(&f.Window, "window", 0, "Clustering window (default: from config)")
	cmd.Flags().IntVar(&f.Threshold, "threshold", 0, "Minimum attempts per incident (default: from config)")
	cmd.Flags().IntVar(&f.Workers, "workers", 0, "Identities clustered concurrently (default: from config)")
	cmd.Flags().IntVar(&f.Top, "top", 0, "Number of addresses in the attacker ranking (default: from config)")
}

// applyDetectionFlags copies explicitly set flags over cfg and re-validates.
func applyDetectionFlags(cmd *cobra.Command, cfg *config.Config, f *DetectionFlags) error {
	flags := cmd.Flags()
	if flags.Changed("year") {
		cfg.Year = f.Year
	}
	if flags.Changed("window") {
		cfg.Detection.Window = f.Window
	}
	if flags.Changed("threshold") {
		cfg.Detection.Threshold = f.Threshold
	}
	if flags.Changed("workers") {
		cfg.Detection.Workers = f.Workers
	}
	if flags.Changed("top") {
		cfg.Report.TopN = f.Top
	}
	return config.Validate(cfg)
}

// loadConfig loads configPath and applies the detection flags.
func loadConfig(cmd *cobra.Command, configPath string, f *DetectionFlags) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := applyDetectionFlags(cmd, cfg, f); err != nil {
		return nil, fmt.Errorf("applying flags: %w", err)
	}
	return cfg, nil
}

// openSources expands the configured log sources into one line source.
func openSources(cfg *config.Config) (parser.LineSource, error) {
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		return nil, fmt.Errorf("expanding log sources: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no log files matched patterns: %v", cfg.LogSources)
	}

	return parser.NewFileSource(files), nil
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, configPath, &opts.Detection)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	analyzerOpts := []analyzer.AnalyzerOption{
		analyzer.WithLogger(logger),
		analyzer.WithObserver(logging.FailureLogger(logger)),
	}

	if opts.TimeRange != "" {
		duration, err := time.ParseDuration(opts.TimeRange)
		if err != nil {
			return fmt.Errorf("invalid time-range %q: %w", opts.TimeRange, err)
		}
		end := time.Now().In(cfg.Location())
		start := end.Add(-duration)
		analyzerOpts = append(analyzerOpts, analyzer.WithTimeRange(start, end))
	}

	var recorder *metrics.Recorder
	if cfg.Metrics.Textfile != "" {
		recorder = metrics.NewRecorder()
		analyzerOpts = append(analyzerOpts, analyzer.WithMetrics(recorder))
	}

	a, err := analyzer.NewAnalyzer(cfg, analyzerOpts...)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	source, err := openSources(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	result, err := a.Analyze(ctx, source)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	result.Metadata.ConfigFile = configPath

	report := output.NewReport(result, configPath)

	if cfg.Storage.Enabled && !opts.NoStore {
		runID, err := saveRun(ctx, cfg, result, configPath)
		if err != nil {
			return err
		}
		report.Metadata.RunID = runID
		logger.Info("run saved", zap.String("run_id", runID), zap.String("driver", string(cfg.Storage.Driver)))
	}

	if err := writeReport(ctx, cmd.OutOrStdout(), formatter, report, opts.ReportFile); err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}

	// Webhook failures are logged but don't fail the analysis
	webhook.NewClient(logger).Notify(ctx, collectWebhooks(cfg, opts), report)

	// Set exit code based on results
	if report.HasIncidents() {
		ExitCode = 1
	}

	return nil
}

// writeReport formats report to stdout and, if set, to reportFile as well.
func writeReport(ctx context.Context, stdout io.Writer, formatter output.Formatter, report *output.Report, reportFile string) error {
	w := stdout
	if reportFile != "" {
		f, err := os.Create(reportFile) // #nosec G304 -- user-provided output path
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		w = io.MultiWriter(stdout, f)
	}

	if err := formatter.Format(ctx, report, w); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}

// saveRun persists the run and returns its ID.
func saveRun(ctx context.Context, cfg *config.Config, result *analyzer.AnalysisResult, configPath string) (string, error) {
	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		return "", fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		return "", fmt.Errorf("initializing store: %w", err)
	}

	run := store.NewRun(result, configPath)
	if err := st.SaveRun(ctx, run, result.Incidents, result.TopIdentities); err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	return run.ID, nil
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	// Add config file webhooks
	webhooks = append(webhooks, cfg.Webhooks...)

	// Add CLI webhook if specified
	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnIncidents
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}
