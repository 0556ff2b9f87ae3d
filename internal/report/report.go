package report

import (
	"context"
	"time"

	"github.com/wonny/fundnav/internal/valuation"
)

// Run is one batch of estimates plus its effective/failed split
type Run struct {
	Timestamp time.Time
	Estimates []valuation.FundEstimate
	Hits      []valuation.FundEstimate
	Fails     []valuation.FundEstimate
}

// NewRun builds a Run. The run timestamp is the first estimate's, or now for an empty batch.
func NewRun(estimates []valuation.FundEstimate, now time.Time) *Run {
	ts := now
	if len(estimates) > 0 {
		ts = estimates[0].Timestamp
	}

	hits, fails := SplitEffectiveAndFailed(estimates)
	return &Run{
		Timestamp: ts,
		Estimates: estimates,
		Hits:      hits,
		Fails:     fails,
	}
}

// Analysis returns the miss analysis block of the run
func (r *Run) Analysis() []string {
	return AnalysisBlock(r.Timestamp, len(r.Estimates), r.Fails, len(r.Hits))
}

// Store persists a finished run
type Store interface {
	Save(ctx context.Context, run *Run) error
}
