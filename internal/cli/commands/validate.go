package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/authburst/pkg/config"
	"github.com/ccollicutt/authburst/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate an authburst configuration file without running analysis.

Checks:
  - YAML syntax
  - Required fields
  - Detection window and threshold
  - Timezone, storage and webhook settings
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(w, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	printConfigSummary(w, cfg)

	// Check if log sources exist (warnings only)
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		_, _ = fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
	} else if len(files) == 0 {
		_, _ = fmt.Fprintf(w, "\nWarning: No files match log source patterns\n")
	} else {
		_, _ = fmt.Fprintf(w, "\nLog files matched: %d\n", len(files))
		for _, f := range files {
			_, _ = fmt.Fprintf(w, "  - %s\n", f)
		}
	}

	return nil
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	_, _ = fmt.Fprintf(w, "\nConfiguration valid!\n")
	_, _ = fmt.Fprintf(w, "  Log sources: %d pattern(s)\n", len(cfg.LogSources))
	_, _ = fmt.Fprintf(w, "  Year:        %d\n", cfg.Year)
	_, _ = fmt.Fprintf(w, "  Timezone:    %s\n", cfg.Location())
	_, _ = fmt.Fprintf(w, "  Window:      %s\n", cfg.Detection.Window)
	_, _ = fmt.Fprintf(w, "  Threshold:   %d\n", cfg.Detection.Threshold)
	_, _ = fmt.Fprintf(w, "  Top N:       %d\n", cfg.Report.TopN)

	if cfg.Storage.Enabled {
		_, _ = fmt.Fprintf(w, "  Storage:     %s\n", cfg.Storage.Driver)
	} else {
		_, _ = fmt.Fprintf(w, "  Storage:     disabled\n")
	}

	if len(cfg.Webhooks) > 0 {
		_, _ = fmt.Fprintf(w, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = "unnamed"
			}
			_, _ = fmt.Fprintf(w, "  %d. [%s] %s (%s)\n", i+1, wh.Trigger, name, wh.URL)
		}
	}
}
