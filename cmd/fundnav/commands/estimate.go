package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/valuation"
)

// estimateCmd represents the estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate CODE...",
	Short: "单次估值 (不写文件)",
	Long: `Values the given funds once and prints the records.

Example:
  go run ./cmd/fundnav estimate 110011 161725
  go run ./cmd/fundnav estimate 110011 --holdings
  go run ./cmd/fundnav estimate 110011 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEstimate,
}

var (
	estimateJSON     bool
	estimateHoldings bool
)

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().BoolVar(&estimateJSON, "json", false, "print estimates as JSON")
	estimateCmd.Flags().BoolVar(&estimateHoldings, "holdings", false, "print holdings detail rows")
	estimateCmd.Flags().Float64Var(&minCoverage, "min-coverage", 0, "minimum holdings coverage percent")
	estimateCmd.Flags().IntVar(&topN, "top-n", 0, "holdings per fund")
	estimateCmd.Flags().IntVar(&workers, "workers", 0, "parallel funds")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyTuning(cfg, nil, tuningFromFlags(cmd)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	estimates := a.batch.EstimateMany(ctx, args)
	return printEstimates(cmd, estimates)
}

func printEstimates(cmd *cobra.Command, estimates []valuation.FundEstimate) error {
	out := cmd.OutOrStdout()

	if estimateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(estimates)
	}

	for _, e := range estimates {
		fmt.Fprintln(out, report.FormatRecord(e))
		if estimateHoldings {
			for _, row := range report.FormatHoldingRows(e) {
				fmt.Fprintf(out, "    %s\n", row)
			}
		}
	}

	PrintRunSummary(out, report.NewRun(estimates, time.Now()))
	return nil
}
