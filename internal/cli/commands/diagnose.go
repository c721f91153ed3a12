package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/authburst/pkg/config"
	"github.com/ccollicutt/authburst/pkg/parser"
	"github.com/ccollicutt/authburst/pkg/store"
)

// diagnoseSampleSize is the number of lines parsed per log file.
const diagnoseSampleSize = 20

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Log source file existence and accessibility
- Whether sample lines parse as auth log entries
- Detection, storage and webhook settings

Example:
  authburst diagnose authburst.yaml
  authburst diagnose -v authburst.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	// 1. Check config file existence
	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Parse config file
	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Check log sources
	results = append(results, checkLogSources(cfg)...)

	// 4. Parse sample lines from each log file
	results = append(results, checkParseRate(ctx, cfg, opts)...)

	// 5. Check detection parameters
	results = append(results, checkDetection(cfg))

	// 6. Check storage
	results = append(results, checkStorage(ctx, cfg, opts)...)

	// 7. Check webhooks configuration
	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{"Check the file path is correct"}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"A minimal config needs log_sources and a detection section",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case errors.Is(err, config.ErrInvalidConfig):
			result.Suggests = []string{"Run 'authburst validate' after fixing the field above"}
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Log sources: %d", len(cfg.LogSources)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkLogSources(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	totalFiles := 0
	for _, source := range cfg.LogSources {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Log Source: %s", source),
		}

		switch {
		case source == "-":
			result.Status = "ok"
			result.Message = "Reads standard input"
			totalFiles++
		case strings.ContainsAny(source, "*?["):
			matches, err := filepath.Glob(source)
			if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Invalid glob pattern: %v", err)
			} else if len(matches) == 0 {
				result.Status = "warning"
				result.Message = "Glob pattern matches no files"
				result.Suggests = []string{
					"Check if the log files exist at this path",
					"Verify the glob pattern syntax",
				}
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("Matches %d file(s)", len(matches))
				result.Details = append(result.Details, matches...)
				totalFiles += len(matches)
			}
		default:
			info, err := os.Stat(source)
			if os.IsNotExist(err) {
				result.Status = "error"
				result.Message = "File does not exist"
				result.Suggests = []string{
					"Check if the log file path is correct",
				}
			} else if err != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("Cannot access file: %v", err)
				result.Suggests = []string{"Check file permissions"}
			} else if info.IsDir() {
				result.Status = "error"
				result.Message = "Path is a directory, not a file"
				result.Suggests = []string{
					"Use a glob pattern to match files in directory",
					"Example: /var/log/auth.log*",
				}
			} else if info.Size() == 0 {
				result.Status = "warning"
				result.Message = "File is empty (0 bytes)"
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
				totalFiles++
			}
		}
		results = append(results, result)
	}

	if totalFiles == 0 {
		results = append(results, DiagnosticResult{
			Check:   "Log Files Summary",
			Status:  "error",
			Message: "No accessible log files found",
			Suggests: []string{
				"Ensure at least one log file exists and is readable",
			},
		})
	}

	return results
}

func checkParseRate(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		return results
	}

	p := parser.NewLineParser(cfg.Year, cfg.Location())

	for _, logFile := range files {
		if logFile == "-" {
			continue
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Parse Test: %s", filepath.Base(logFile)),
		}

		lines, err := sampleLines(ctx, logFile, diagnoseSampleSize)
		if err != nil {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Cannot read file: %v", err)
			results = append(results, result)
			continue
		}
		if len(lines) == 0 {
			continue
		}

		parsed, failed := 0, 0
		var sampleMatch, sampleFail string
		for _, line := range lines {
			ev, err := p.Parse(line)
			if err != nil {
				if sampleFail == "" {
					sampleFail = line
				}
				continue
			}
			parsed++
			if ev.Kind == parser.KindFailed {
				failed++
			}
			if sampleMatch == "" {
				sampleMatch = line
			}
		}

		switch {
		case parsed == 0:
			result.Status = "error"
			result.Message = "No sample lines could be parsed"
			result.Suggests = []string{
				"Lines must start with a syslog timestamp such as 'Jan 02 15:04:05'",
				"Check that log_sources points at an auth log",
			}
		case parsed < len(lines)/2:
			result.Status = "warning"
			result.Message = fmt.Sprintf("Parsed only %d/%d sample lines", parsed, len(lines))
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("Parsed %d/%d sample lines", parsed, len(lines))
		}

		if parsed > 0 {
			result.Details = append(result.Details,
				fmt.Sprintf("Failed password lines: %d/%d", failed, parsed))
		}
		if sampleFail != "" {
			result.Details = append(result.Details,
				"Sample line that didn't parse:",
				truncate(sampleFail, 80))
		}
		if opts.Verbose && sampleMatch != "" {
			result.Details = append(result.Details,
				"Sample parsed line:",
				truncate(sampleMatch, 80))
		}

		results = append(results, result)
	}

	return results
}

// sampleLines returns up to n non-blank lines from the start of path.
func sampleLines(ctx context.Context, path string, n int) ([]string, error) {
	source := parser.NewFileSource([]string{path})
	defer source.Close()

	lines := make([]string, 0, n)
	for len(lines) < n {
		line, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line.Content) == "" {
			continue
		}
		lines = append(lines, line.Content)
	}
	return lines, nil
}

func checkDetection(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Detection",
	}

	d := cfg.Detection
	result.Details = []string{
		fmt.Sprintf("Window: %s", d.Window),
		fmt.Sprintf("Threshold: %d", d.Threshold),
		fmt.Sprintf("Year: %d", cfg.Year),
		fmt.Sprintf("Timezone: %s", cfg.Location()),
	}

	switch {
	case d.Threshold == 1:
		result.Status = "warning"
		result.Message = "Threshold of 1 reports every failed attempt as an incident"
		result.Suggests = []string{"Use a threshold of at least 3"}
	case d.Window < time.Second:
		result.Status = "warning"
		result.Message = fmt.Sprintf("Window %s is below the one second timestamp resolution", d.Window)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("%d attempts within %s", d.Threshold, d.Window)
	}

	return result
}

func checkStorage(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	if !cfg.Storage.Enabled {
		if !opts.Verbose {
			return nil
		}
		return []DiagnosticResult{{
			Check:   "Storage",
			Status:  "ok",
			Message: "Storage disabled (optional)",
		}}
	}

	result := DiagnosticResult{
		Check: fmt.Sprintf("Storage: %s", cfg.Storage.Driver),
	}

	st, err := store.NewStore(cfg.Storage)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot open store: %v", err)
		return []DiagnosticResult{result}
	}
	defer st.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := st.Ping(pingCtx); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot reach database: %v", err)
		result.Suggests = []string{
			"Check the storage dsn",
			"Use --no-store to analyze without persisting runs",
		}
		return []DiagnosticResult{result}
	}

	result.Status = "ok"
	result.Message = "Database reachable"
	return []DiagnosticResult{result}
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	_, _ = fmt.Fprintln(w, "=== authburst Configuration Diagnostics ===")
	_, _ = fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		_, _ = fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		_, _ = fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				_, _ = fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			_, _ = fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		_, _ = fmt.Fprintln(w)
	}

	// Summary
	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		_, _ = fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	} else if warnCount > 0 {
		_, _ = fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	} else {
		_, _ = fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		// Check URL
		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			}
		}

		// Check trigger
		if wh.Trigger != "" {
			switch wh.Trigger {
			case config.WebhookTriggerOnIncidents, config.WebhookTriggerAlways, config.WebhookTriggerNever:
				// Valid
			default:
				issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_incidents, always, or never)", wh.Trigger))
			}
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "${") || strings.HasPrefix(wh.Token, "$") {
			warnings = append(warnings, fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	// Optionally test webhook connectivity
	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(ctx, wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	// Just do a HEAD request to check if the endpoint is reachable
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	// Any response (even 4xx/5xx) means the server is reachable
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may require POST method (will work during actual webhook send)",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
