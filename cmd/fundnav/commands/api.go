package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundnav/internal/api"
	"github.com/wonny/fundnav/internal/api/handlers"
	"github.com/wonny/fundnav/internal/fundlist"
	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/scheduler"
	"github.com/wonny/fundnav/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `Starts the query API. With --funds-file the fund list is also valued on
the refresh interval and the latest round is served.

Endpoints:
  GET  /health                  - Health check
  GET  /api/estimates?codes=    - On-demand estimate (comma separated, max 50)
  GET  /api/estimates/latest    - Latest scheduled round
  GET  /api/estimates/{code}    - Persisted latest estimate (DATABASE_URL)
  GET  /api/jobs                - Scheduler statistics

Example:
  go run ./cmd/fundnav api
  go run ./cmd/fundnav api --port 8089 --funds-file funds_list.txt`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiFundsFile string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT, 8089)")
	apiCmd.Flags().StringVar(&apiFundsFile, "funds-file", "", "fund list to value on every interval")
	apiCmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default VALUATION_INTERVAL, 60s)")
	apiCmd.Flags().IntVar(&workers, "workers", 0, "parallel funds")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	var list *fundlist.List
	if apiFundsFile != "" {
		if list, err = fundlist.Load(apiFundsFile); err != nil {
			return err
		}
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

	var (
		latest      *report.Latest
		jobsHandler *handlers.JobsHandler
		snapshots   handlers.SnapshotStore
		sched       *scheduler.Scheduler
	)

	if a.db != nil {
		snapshots = report.NewPostgresStore(a.db.Pool)
	}

	if list != nil {
		latest = &report.Latest{}
		sched = scheduler.New(a.log)
		job := jobs.NewValuationJob(a.batch, a.stores(nil, latest), apiFundsFile, cfg.Valuation.Interval, a.log)
		if err := sched.AddJob(job); err != nil {
			return err
		}
		jobsHandler = handlers.NewJobsHandler(sched)

		go sched.RunJob(ctx, job.Name())
		sched.Start()
		defer sched.Stop()
	}

	estimateHandler := handlers.NewEstimateHandler(a.batch, latest, snapshots, a.log)
	server := api.New(cfg, a.log, api.NewRouter(estimateHandler, jobsHandler, a.log))

	if err := server.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
