package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskweave/loadbench/internal/config"
	"github.com/taskweave/loadbench/internal/harness"
	"github.com/taskweave/loadbench/internal/report"
)

var (
	runProfile string
	runBaseURL string
	runOut     string
	runHTML    string
	runGzip    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a load profile against the target",
	Example: `  # Smoke-check a local target
  loadbench run --base-url http://localhost:8080 --profile smoke

  # Full config file, report to a custom directory
  loadbench run -c bench.yaml --profile load --out reports/`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "profile name (overrides config)")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "target base URL (overrides config)")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "report output directory (overrides config)")
	runCmd.Flags().StringVar(&runHTML, "html", "", "also write an HTML report (on/off)")
	runCmd.Flags().BoolVar(&runGzip, "gzip", false, "gzip report files")
}

func newLogger() (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapCfg.Build()
}

func runBench(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cfg)

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	h, err := harness.New(cfg, logger)
	if err != nil {
		return err
	}

	// First interrupt ends the staged portion and drains gracefully; a
	// second one kills the process the usual way.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := h.Run(ctx)
	if err != nil {
		if errors.Is(err, harness.ErrSetup) {
			logger.Error("setup check failed", zap.Error(err))
			os.Exit(2)
		}
		return err
	}

	printSummary(cmd, summary)
	if !summary.Passed {
		os.Exit(1)
	}
	return nil
}

func applyFlags(cfg *config.Config) {
	if runProfile != "" {
		cfg.Run.Profile = runProfile
	}
	if runBaseURL != "" {
		cfg.Target.BaseURL = runBaseURL
	}
	if runOut != "" {
		cfg.Report.Dir = runOut
	}
	if runHTML == "off" {
		cfg.Report.HTML = false
	} else if runHTML != "" {
		cfg.Report.HTML = true
	}
	if runGzip {
		cfg.Report.Gzip = true
	}
}

func printSummary(cmd *cobra.Command, s *report.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nrun %s (%s) in %s\n", s.RunID, s.Profile, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  iterations  %d (%d failed, %d aborted)\n", s.TotalIterations, s.Failed, s.Aborted)
	fmt.Fprintf(out, "  success     %.2f%%\n", s.SuccessRate*100)
	fmt.Fprintf(out, "  p95 latency %s\n", s.Latency.P95.Round(time.Millisecond))
	fmt.Fprintln(out)
	for _, o := range s.Thresholds {
		fmt.Fprintf(out, "  %s\n", o.String())
	}
	if s.Passed {
		fmt.Fprintln(out, "\nPASSED")
	} else {
		fmt.Fprintf(out, "\nFAILED (%d of %d thresholds)\n", s.ThresholdsFailed, len(s.Thresholds))
	}
}
