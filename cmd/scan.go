package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/driftsec/hostsentry/internal/analysis"
	"github.com/driftsec/hostsentry/internal/config"
	"github.com/driftsec/hostsentry/internal/firewall"
	"github.com/driftsec/hostsentry/internal/gateway"
	"github.com/driftsec/hostsentry/internal/logging"
	"github.com/driftsec/hostsentry/internal/report"
	"github.com/driftsec/hostsentry/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a triage scan of the local host",
	Long: "\nRun the core detector set against the local host, expand into adaptive " +
		"analysis when the evidence warrants it, and print a sanitized report to stdout.\n\n" +
		"The process exits 2 when the overall risk is high.",
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Int("parallel", config.DefaultConfig.Scan.MaxParallelAgents, "Maximum detectors running concurrently")
	scanCmd.Flags().Bool("sequential", false, "Run detectors one at a time")
	scanCmd.Flags().Bool("external", false, "Request external analysis of the sanitized report")
	scanCmd.Flags().String("output", "", "Directory to write the JSON report into")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration; %w", err)
	}
	applyScanFlags(cmd, cfg)

	logger := logging.Setup(cfg)

	opts := analysis.Options{
		Progress: func(completed, total int) {
			fmt.Fprintf(os.Stderr, "detectors: %d/%d\n", completed, total)
		},
	}

	if cfg.External.Enabled {
		if cfg.External.APIKey == "" {
			return fmt.Errorf("external analysis requires HOSTSENTRY_EXTERNAL_API_KEY to be set")
		}
		opts.Gateway = gateway.New(cfg.External, logger)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := analysis.NewRunner(cfg, logger, opts)
	run, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan failed; %w", err)
	}

	writer := report.NewWriter(firewall.New())

	text, err := writer.RenderText(run)
	if err != nil {
		return fmt.Errorf("failed to render report; %w", err)
	}
	fmt.Println(text)

	if cfg.Report.OutputDir != "" {
		path, err := writer.WriteJSON(run, cfg.Report.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to write report; %w", err)
		}
		logger.Info("report written", "path", path)
	}

	if run.OverallRisk == types.RiskHigh {
		os.Exit(2)
	}

	return nil
}

// applyScanFlags overlays explicitly set flags onto the loaded configuration.
// Unset flags leave config-file and environment values untouched.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("parallel") {
		cfg.Scan.MaxParallelAgents, _ = cmd.Flags().GetInt("parallel")
	}
	if sequential, _ := cmd.Flags().GetBool("sequential"); sequential {
		cfg.Scan.MaxParallelAgents = 1
	}
	if cmd.Flags().Changed("external") {
		cfg.External.Enabled, _ = cmd.Flags().GetBool("external")
	}
	if cmd.Flags().Changed("output") {
		cfg.Report.OutputDir, _ = cmd.Flags().GetString("output")
	}
}
