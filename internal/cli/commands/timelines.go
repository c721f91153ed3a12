package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/authburst/pkg/analyzer"
	"github.com/ccollicutt/authburst/pkg/logging"
	"github.com/ccollicutt/authburst/pkg/output"
)

// NewTimelinesCommand creates the timelines command.
func NewTimelinesCommand() *cobra.Command {
	flags := &DetectionFlags{}

	cmd := &cobra.Command{
		Use:   "timelines <config-file>",
		Short: "Dump per-address failed attempt timelines as JSON",
		Long: `Print the sorted failed-password timestamps of every source address as a
JSON object, keyed by address in first-seen order. Timestamps use the
syslog layout "Jan 02 15:04:05".

Use this to inspect the input the incident detector works on.`,
		Example: `  authburst timelines authburst.yaml > timelines.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, args[0], flags)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			a, err := analyzer.NewAnalyzer(cfg,
				analyzer.WithLogger(logger),
				analyzer.WithObserver(logging.FailureLogger(logger)),
			)
			if err != nil {
				return fmt.Errorf("creating analyzer: %w", err)
			}

			source, err := openSources(cfg)
			if err != nil {
				return err
			}
			defer source.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			result, err := a.Analyze(ctx, source)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			return output.WriteTimelinesJSON(cmd.OutOrStdout(), result.Timelines)
		},
	}

	cmd.Flags().IntVar(&flags.Year, "year", 0, "Year of the log timestamps (default: from config)")

	return cmd
}
