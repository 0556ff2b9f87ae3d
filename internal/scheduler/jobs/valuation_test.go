package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/scheduler"
	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/logger"
)

type echoEstimator struct {
	calls [][]string
}

func (e *echoEstimator) EstimateMany(ctx context.Context, codes []string) []valuation.FundEstimate {
	e.calls = append(e.calls, codes)
	out := make([]valuation.FundEstimate, len(codes))
	for i, code := range codes {
		out[i] = valuation.Basis{FundCode: code, LastNav: 1}.Unavailable("no usable holdings/index quotes", "test")
	}
	return out
}

type errStore struct{}

func (errStore) Save(context.Context, *report.Run) error { return errors.New("disk full") }

func fundsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "funds_list.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValuationJob_Run(t *testing.T) {
	est := &echoEstimator{}
	latest := &report.Latest{}
	job := NewValuationJob(est, latest, fundsFile(t, "110011\n000001\n"), time.Minute, logger.Nop())

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, [][]string{{"110011", "000001"}}, est.calls)
	run := latest.Get()
	require.NotNil(t, run)
	assert.Len(t, run.Estimates, 2)
	assert.Empty(t, run.Hits)
	assert.Len(t, run.Fails, 2)
}

func TestValuationJob_Errors(t *testing.T) {
	job := NewValuationJob(&echoEstimator{}, &report.Latest{}, filepath.Join(t.TempDir(), "missing.txt"), time.Minute, logger.Nop())
	assert.ErrorContains(t, job.Run(context.Background()), "load fund list")

	job = NewValuationJob(&echoEstimator{}, errStore{}, fundsFile(t, "110011\n"), time.Minute, logger.Nop())
	assert.ErrorContains(t, job.Run(context.Background()), "disk full")
}

func TestValuationJob_Scheduled(t *testing.T) {
	est := &echoEstimator{}
	latest := &report.Latest{}
	job := NewValuationJob(est, latest, fundsFile(t, "110011\n"), time.Minute, logger.Nop())
	assert.Equal(t, "@every 1m0s", job.Schedule())

	s := scheduler.New(logger.Nop())
	require.NoError(t, s.AddJob(job))
	require.Error(t, s.AddJob(job), "duplicate job name")

	result, err := s.RunJob(context.Background(), job.Name())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotNil(t, latest.Get())

	stats := s.GetJobStats()[job.Name()]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)

	require.NoError(t, s.RemoveJob(job.Name()))
	_, err = s.RunJob(context.Background(), job.Name())
	assert.Error(t, err)
}
