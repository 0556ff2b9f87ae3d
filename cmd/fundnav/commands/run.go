package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundnav/internal/fundlist"
	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/scheduler"
	"github.com/wonny/fundnav/internal/scheduler/jobs"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "基金估值循环 (默认每60秒)",
	Long: `Values every fund in the fund list on a fixed interval and appends the
results to plain text files (and to Postgres when DATABASE_URL is set).

Outputs (append-only):
  --output-file           every estimate
  --hit-output-file       estimates with a usable valuation
  --miss-output-file      unavailable estimates
  --miss-analysis-file    per-run failure buckets
  --holdings-output-file  holdings weight / change detail

Example:
  go run ./cmd/fundnav run --once
  go run ./cmd/fundnav run --funds-file funds.yaml --interval 60s --workers 8`,
	RunE: runValuation,
}

var (
	fundsFile   string
	outputPaths report.FilePaths
	interval    time.Duration
	minCoverage float64
	workers     int
	topN        int
	runOnce     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&fundsFile, "funds-file", "funds_list.txt", "fund list (.txt one code per line, or .yaml)")
	runCmd.Flags().StringVar(&outputPaths.Output, "output-file", report.DefaultFilePaths.Output, "all estimates (append)")
	runCmd.Flags().StringVar(&outputPaths.Hits, "hit-output-file", report.DefaultFilePaths.Hits, "effective estimates (append)")
	runCmd.Flags().StringVar(&outputPaths.Misses, "miss-output-file", report.DefaultFilePaths.Misses, "unavailable estimates (append)")
	runCmd.Flags().StringVar(&outputPaths.Analysis, "miss-analysis-file", report.DefaultFilePaths.Analysis, "miss analysis (append)")
	runCmd.Flags().StringVar(&outputPaths.Holdings, "holdings-output-file", report.DefaultFilePaths.Holdings, "holdings detail (append)")
	runCmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default VALUATION_INTERVAL, 60s)")
	runCmd.Flags().Float64Var(&minCoverage, "min-coverage", 0, "minimum holdings coverage percent (default VALUATION_MIN_COVERAGE, 35)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "parallel funds (default VALUATION_MAX_WORKERS, 8)")
	runCmd.Flags().IntVar(&topN, "top-n", 0, "holdings per fund (default VALUATION_TOP_N, 10)")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single round and exit")
}

// tuningFromFlags collects the tuning flags the user actually set
func tuningFromFlags(cmd *cobra.Command) tuning {
	var t tuning
	if cmd.Flags().Changed("min-coverage") {
		t.minCoverage = &minCoverage
	}
	if cmd.Flags().Changed("workers") {
		t.workers = &workers
	}
	if cmd.Flags().Changed("top-n") {
		t.topN = &topN
	}
	return t
}

func runValuation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	list, err := fundlist.Load(fundsFile)
	if err != nil {
		return err
	}
	if err := applyTuning(cfg, list, tuningFromFlags(cmd)); err != nil {
		return err
	}
	if interval > 0 {
		cfg.Valuation.Interval = interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	store := a.stores(report.NewFileStore(outputPaths), nil)
	job := jobs.NewValuationJob(a.batch, store, fundsFile, cfg.Valuation.Interval, a.log)

	out := cmd.OutOrStdout()
	PrintRunHeader(out, "Fund valuation", fundsFile, len(list.Funds), cfg.Valuation.Interval, runOnce)

	sched := scheduler.New(a.log)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	// first round runs right away, the cron tick takes over afterwards
	result, err := sched.RunJob(ctx, job.Name())
	if err != nil {
		return err
	}
	PrintJobResult(out, result)

	if runOnce {
		if !result.Success {
			return fmt.Errorf("valuation round failed: %s", result.Error)
		}
		return nil
	}

	sched.Start()
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
	<-ctx.Done()

	sched.Stop()
	return nil
}
