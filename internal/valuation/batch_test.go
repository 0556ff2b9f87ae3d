package valuation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundnav/pkg/logger"
)

// scriptedResolver answers per fund code and records peak concurrency
type scriptedResolver struct {
	delay    map[string]time.Duration
	fail     map[string]error
	panics   map[string]bool
	inFlight int32
	peak     int32
	calls    int32
}

func (s *scriptedResolver) Resolve(ctx context.Context, code string) (FundEstimate, error) {
	atomic.AddInt32(&s.calls, 1)
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}

	time.Sleep(s.delay[code])
	if s.panics[code] {
		panic("parser exploded")
	}
	if err := s.fail[code]; err != nil {
		return FundEstimate{}, err
	}
	return Basis{FundCode: code, LastNav: 1}.Unavailable("ok", "mock"), nil
}

func codesOf(estimates []FundEstimate) []string {
	codes := make([]string, len(estimates))
	for i, e := range estimates {
		codes[i] = e.FundCode
	}
	return codes
}

func TestEstimateMany_KeepsInputOrder(t *testing.T) {
	r := &scriptedResolver{delay: map[string]time.Duration{
		"000003": 30 * time.Millisecond,
		"000001": 10 * time.Millisecond,
		"000002": 0,
	}}

	codes := []string{"000003", "000001", "000002"}
	out := NewBatch(r, 3, logger.Nop()).EstimateMany(context.Background(), codes)
	assert.Equal(t, codes, codesOf(out))
}

func TestEstimateMany_IsolatesFailures(t *testing.T) {
	r := &scriptedResolver{fail: map[string]error{
		"000001": DataSourceError("fetch holdings", errors.New("HTTP request failed")),
	}}

	codes := []string{"000003", "000001", "000002"}
	out := NewBatch(r, 3, logger.Nop()).EstimateMany(context.Background(), codes)

	require.Len(t, out, 3)
	assert.Equal(t, codes, codesOf(out))

	assert.Equal(t, MethodUnavailable, out[1].Method)
	assert.Equal(t, SourceUnknown, out[1].SourceAPI)
	assert.Contains(t, out[1].Detail, DetailDataSourceError)
	assert.Zero(t, out[1].LastNav)

	for _, i := range []int{0, 2} {
		assert.Equal(t, "mock", out[i].SourceAPI)
		assert.Equal(t, "ok", out[i].Detail)
	}
}

func TestEstimateMany_RecoversPanics(t *testing.T) {
	r := &scriptedResolver{panics: map[string]bool{"000002": true}}

	out := NewBatch(r, 2, logger.Nop()).EstimateMany(context.Background(), []string{"000001", "000002", "000003"})
	require.Len(t, out, 3)
	assert.Equal(t, "000002", out[1].FundCode)
	assert.Equal(t, SourceUnknown, out[1].SourceAPI)
	assert.Contains(t, out[1].Detail, "parser exploded")
	assert.Equal(t, "mock", out[2].SourceAPI)
}

func TestEstimateMany_Duplicates(t *testing.T) {
	r := &scriptedResolver{}
	out := NewBatch(r, 4, logger.Nop()).EstimateMany(context.Background(), []string{"110011", "110011"})
	assert.Equal(t, []string{"110011", "110011"}, codesOf(out))
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.calls))
}

func TestEstimateMany_Empty(t *testing.T) {
	r := &scriptedResolver{}
	out := NewBatch(r, 4, logger.Nop()).EstimateMany(context.Background(), nil)
	assert.Empty(t, out)
	assert.Zero(t, atomic.LoadInt32(&r.calls))
}

func TestEstimateMany_BoundedParallelism(t *testing.T) {
	delay := map[string]time.Duration{}
	codes := make([]string, 12)
	for i := range codes {
		codes[i] = string(rune('A'+i)) + "00000"
		delay[codes[i]] = 20 * time.Millisecond
	}
	r := &scriptedResolver{delay: delay}

	out := NewBatch(r, 3, logger.Nop()).EstimateMany(context.Background(), codes)
	require.Len(t, out, len(codes))
	assert.LessOrEqual(t, atomic.LoadInt32(&r.peak), int32(3))
}

func TestWorkers(t *testing.T) {
	b := NewBatch(&scriptedResolver{}, 8, logger.Nop())
	assert.Equal(t, 1, b.Workers(0))
	assert.Equal(t, 3, b.Workers(3))
	assert.Equal(t, 8, b.Workers(100))

	assert.Equal(t, 1, NewBatch(&scriptedResolver{}, 0, logger.Nop()).Workers(5))
}

func TestEstimateMany_WithResolver(t *testing.T) {
	data := &fakeMarketData{
		nav: 2.0, holdings: sampleHoldings,
		quotes: QuoteChanges{"SH600519": 2, "HK00700": -1},
	}
	resolver := NewResolver(data, ResolverConfig{MinCoverage: 35, Labels: testLabels}, logger.Nop())

	out := NewBatch(resolver, 2, logger.Nop()).EstimateMany(context.Background(), []string{"110011", "000001"})
	require.Len(t, out, 2)
	for _, e := range out {
		assert.Equal(t, MethodHoldings, e.Method)
		assert.True(t, e.Effective())
	}
}
