package valuation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/fundnav/pkg/logger"
)

// FundResolver resolves a single fund. *Resolver is the production implementation.
type FundResolver interface {
	Resolve(ctx context.Context, fundCode string) (FundEstimate, error)
}

// Batch runs a FundResolver over many funds with a bounded worker pool
// ⭐ SSOT: 펀드 일괄 추정 오케스트레이션은 여기서만
type Batch struct {
	resolver   FundResolver
	maxWorkers int
	logger     *logger.Logger
	now        func() time.Time
}

// NewBatch creates a Batch. maxWorkers below 1 is treated as 1.
func NewBatch(resolver FundResolver, maxWorkers int, log *logger.Logger) *Batch {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Batch{
		resolver:   resolver,
		maxWorkers: maxWorkers,
		logger:     log.WithModule("batch"),
		now:        time.Now,
	}
}

// Workers returns the parallelism used for n funds: max(1, min(maxWorkers, n))
func (b *Batch) Workers(n int) int {
	w := b.maxWorkers
	if n < w {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// EstimateMany returns exactly one estimate per input code, in input order.
// Duplicated codes are resolved independently. A fund whose resolution errors or panics
// becomes an UNAVAILABLE record; siblings are unaffected. There is no batch deadline:
// the call returns once every scheduled fund has finished.
func (b *Batch) EstimateMany(ctx context.Context, fundCodes []string) []FundEstimate {
	results := make([]FundEstimate, len(fundCodes))
	if len(fundCodes) == 0 {
		return results
	}

	workers := b.Workers(len(fundCodes))
	startTime := time.Now()

	b.logger.WithFields(map[string]interface{}{
		"fund_count": len(fundCodes),
		"workers":    workers,
	}).Info("Starting fund estimation")

	// each worker writes only the slots it receives, so results needs no lock
	indexCh := make(chan int, len(fundCodes))
	for i := range fundCodes {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range indexCh {
				results[i] = b.resolveOne(ctx, workerID, fundCodes[i])
			}
		}(w)
	}
	wg.Wait()

	effective := 0
	for _, e := range results {
		if e.Effective() {
			effective++
		}
	}

	b.logger.WithFields(map[string]interface{}{
		"total":     len(results),
		"effective": effective,
		"failed":    len(results) - effective,
		"duration":  time.Since(startTime),
	}).Info("Fund estimation completed")

	return results
}

// resolveOne isolates a single fund: errors and panics become a generic UNAVAILABLE record
func (b *Batch) resolveOne(ctx context.Context, workerID int, fundCode string) (estimate FundEstimate) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			b.logger.WithError(err).WithFields(map[string]interface{}{
				"worker":    workerID,
				"fund_code": fundCode,
			}).Error("Fund resolution panicked")
			estimate = DataSourceFailure(fundCode, b.now(), err)
		}
	}()

	estimate, err := b.resolver.Resolve(ctx, fundCode)
	if err != nil {
		entry := b.logger.WithError(err).WithFields(map[string]interface{}{
			"worker":    workerID,
			"fund_code": fundCode,
			"kind":      KindOf(err).String(),
		})
		if IsContextError(err) {
			entry.Debug("Fund resolution skipped")
		} else {
			entry.Warn("Fund resolution failed")
		}
		return DataSourceFailure(fundCode, b.now(), err)
	}

	return estimate
}
