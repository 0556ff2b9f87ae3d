package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fundnav/internal/fundlist"
	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/scheduler"
	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/logger"
)

// Estimator values a batch of funds, one estimate per code in input order
type Estimator interface {
	EstimateMany(ctx context.Context, fundCodes []string) []valuation.FundEstimate
}

// ValuationJob re-values the fund list on every tick and hands the run to the store
// ⭐ SSOT: 주기적 펀드 추정 스케줄은 이 Job에서만
type ValuationJob struct {
	estimator Estimator
	store     report.Store
	fundsPath string
	interval  time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewValuationJob creates the job. The fund list is re-read on every run so edits apply
// without a restart.
func NewValuationJob(estimator Estimator, store report.Store, fundsPath string, interval time.Duration, log *logger.Logger) *ValuationJob {
	return &ValuationJob{
		estimator: estimator,
		store:     store,
		fundsPath: fundsPath,
		interval:  interval,
		logger:    log.WithModule("valuation_job"),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *ValuationJob) Name() string {
	return "fund_valuation"
}

// Schedule returns the cron schedule (every interval, 60s by default)
func (j *ValuationJob) Schedule() string {
	return scheduler.EverySchedule(j.interval)
}

// Run executes one valuation round
func (j *ValuationJob) Run(ctx context.Context) error {
	list, err := fundlist.Load(j.fundsPath)
	if err != nil {
		return fmt.Errorf("load fund list: %w", err)
	}

	estimates := j.estimator.EstimateMany(ctx, list.Funds)
	run := report.NewRun(estimates, j.now())

	if err := j.store.Save(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"list_hash": list.Hash(),
		"total":     len(run.Estimates),
		"hit":       len(run.Hits),
		"fail":      len(run.Fails),
	}).Info("Valuation round completed")

	return nil
}
