package valuation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/fundnav/pkg/logger"
)

// MarketData is the set of upstream capabilities one fund resolution needs.
// Every method may fail with a classified *Error; empty results are not errors.
type MarketData interface {
	FetchLastNav(ctx context.Context, fundCode string) (nav float64, navDate string, err error)
	FetchTopHoldings(ctx context.Context, fundCode string, topN int) ([]Holding, error)
	FetchRealtimeChangePercent(ctx context.Context, keys []string) (QuoteChanges, error)
	FetchTrackingIndexCandidates(ctx context.Context, fundCode string) ([]string, error)
}

// SourceLabels name each upstream capability in an estimate's SourceAPI
type SourceLabels struct {
	Nav      string
	Holdings string
	Profile  string
	Quotes   string
}

// DefaultLabels is used when the provider does not name its capabilities
var DefaultLabels = SourceLabels{
	Nav:      "nav",
	Holdings: "holdings",
	Profile:  "index_profile",
	Quotes:   "quotes",
}

// ResolverConfig tunes a Resolver
type ResolverConfig struct {
	MinCoverage float64 // percent
	TopN        int
	Labels      SourceLabels
}

// Resolver turns one fund code into one FundEstimate
// ⭐ SSOT: 펀드별 추정 상태머신은 여기서만
type Resolver struct {
	data   MarketData
	cfg    ResolverConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewResolver creates a Resolver. Zero TopN means 10, zero Labels means DefaultLabels.
func NewResolver(data MarketData, cfg ResolverConfig, log *logger.Logger) *Resolver {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.Labels == (SourceLabels{}) {
		cfg.Labels = DefaultLabels
	}
	return &Resolver{
		data:   data,
		cfg:    cfg,
		logger: log.WithModule("resolver"),
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

type stage int

const (
	stageFetchNav stage = iota
	stageFetchHoldings
	stageResolveHoldingsQuotes
	stageFetchIndexCandidates
	stageResolveIndexQuotes
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageFetchNav:
		return "FETCH_NAV"
	case stageFetchHoldings:
		return "FETCH_HOLDINGS"
	case stageResolveHoldingsQuotes:
		return "RESOLVE_HOLDINGS_QUOTES"
	case stageFetchIndexCandidates:
		return "FETCH_INDEX_CANDIDATES"
	case stageResolveIndexQuotes:
		return "RESOLVE_INDEX_QUOTES"
	default:
		return "DONE"
	}
}

// resolution is the mutable working state of one Resolve call
type resolution struct {
	basis      Basis
	holdings   []Holding
	candidates []string
	sources    []string
	reasons    []string
	result     FundEstimate
	log        *logger.Logger
}

func (res *resolution) used(label string) {
	for _, s := range res.sources {
		if s == label {
			return
		}
	}
	res.sources = append(res.sources, label)
}

func (res *resolution) source() string {
	return strings.Join(res.sources, "+")
}

// degrade records why a stage produced nothing usable
func (res *resolution) degrade(st stage, reason string, err error) {
	if err != nil {
		reason = fmt.Sprintf("%s: %v", reason, err)
		entry := res.log.WithError(err).WithFields(map[string]interface{}{
			"stage": st.String(),
			"kind":  KindOf(err).String(),
		})
		if KindOf(err) == KindConfiguration {
			entry.Error("configuration error during resolution")
		} else {
			entry.Warn("stage degraded")
		}
	}
	res.reasons = append(res.reasons, reason)
}

// Resolve runs FETCH_NAV → FETCH_HOLDINGS → RESOLVE_HOLDINGS_QUOTES → (ACCEPT_HOLDINGS |
// FETCH_INDEX_CANDIDATES → RESOLVE_INDEX_QUOTES → (ACCEPT_INDEX | UNAVAILABLE)).
//
// Upstream failures never escape: a NAV failure yields an UNAVAILABLE record with lastNav 0,
// later failures fall through to the next stage. The only error returned is ctx's, when the
// context is already done before resolution starts.
func (r *Resolver) Resolve(ctx context.Context, fundCode string) (FundEstimate, error) {
	if err := ctx.Err(); err != nil {
		return FundEstimate{}, err
	}

	res := &resolution{
		basis: Basis{FundCode: fundCode, Timestamp: r.now()},
		log:   r.logger.WithFund(fundCode),
	}

	st := stageFetchNav
	for st != stageDone {
		switch st {
		case stageFetchNav:
			st = r.fetchNav(ctx, res)
		case stageFetchHoldings:
			st = r.fetchHoldings(ctx, res)
		case stageResolveHoldingsQuotes:
			st = r.resolveHoldingsQuotes(ctx, res)
		case stageFetchIndexCandidates:
			st = r.fetchIndexCandidates(ctx, res)
		case stageResolveIndexQuotes:
			st = r.resolveIndexQuotes(ctx, res)
		}
	}

	res.log.WithFields(map[string]interface{}{
		"method":   res.result.Method.String(),
		"coverage": res.result.CoveragePercent,
		"change":   res.result.EstimatedChangePercent,
		"source":   res.result.SourceAPI,
	}).Debug("Fund resolved")

	return res.result, nil
}

func (r *Resolver) fetchNav(ctx context.Context, res *resolution) stage {
	res.used(r.cfg.Labels.Nav)

	nav, navDate, err := r.data.FetchLastNav(ctx, res.basis.FundCode)
	if err == nil && (!isFinite(nav) || nav <= 0) {
		err = NavFetchError("fetch last nav", fmt.Errorf("non-positive nav %v", nav))
	}
	if err != nil {
		res.log.WithError(err).WithField("kind", KindOf(err).String()).Warn("NAV fetch failed")
		res.result = NavFailure(res.basis.FundCode, res.basis.Timestamp, err, res.source())
		return stageDone
	}

	res.basis.LastNav = nav
	res.basis.NavDate = navDate
	return stageFetchHoldings
}

func (r *Resolver) fetchHoldings(ctx context.Context, res *resolution) stage {
	res.used(r.cfg.Labels.Holdings)

	holdings, err := r.data.FetchTopHoldings(ctx, res.basis.FundCode, r.cfg.TopN)
	if err != nil {
		res.degrade(stageFetchHoldings, "holdings unavailable", err)
		return stageFetchIndexCandidates
	}
	if len(holdings) == 0 {
		res.degrade(stageFetchHoldings, "no holdings published", nil)
		return stageFetchIndexCandidates
	}

	res.holdings = holdings
	return stageResolveHoldingsQuotes
}

func (r *Resolver) resolveHoldingsQuotes(ctx context.Context, res *resolution) stage {
	keys := QuoteKeys(res.holdings)

	var changes QuoteChanges
	if len(keys) > 0 {
		res.used(r.cfg.Labels.Quotes)
		var err error
		changes, err = r.data.FetchRealtimeChangePercent(ctx, keys)
		if err != nil {
			res.degrade(stageResolveHoldingsQuotes, "holding quotes unavailable", err)
			changes = nil
		}
	}

	// audit trail survives every later fallback
	res.basis.Snapshot = HoldingsSnapshot(res.holdings, changes)

	est, ok := EstimateFromHoldings(res.holdings, changes, r.cfg.MinCoverage)
	if !ok {
		if est.Hits == 0 {
			res.degrade(stageResolveHoldingsQuotes, fmt.Sprintf("no holding quotes resolved (0/%d)", est.Total), nil)
		} else {
			res.degrade(stageResolveHoldingsQuotes, fmt.Sprintf("holdings coverage %.2f%% below %.2f%%",
				est.CoveragePercent, r.cfg.MinCoverage), nil)
		}
		return stageFetchIndexCandidates
	}

	result, err := res.basis.Holdings(est, r.cfg.MinCoverage, res.source())
	if err != nil {
		res.degrade(stageResolveHoldingsQuotes, "holdings estimate rejected", err)
		return stageFetchIndexCandidates
	}

	res.result = result
	return stageDone
}

func (r *Resolver) fetchIndexCandidates(ctx context.Context, res *resolution) stage {
	candidates, err := r.data.FetchTrackingIndexCandidates(ctx, res.basis.FundCode)
	if err != nil {
		res.used(r.cfg.Labels.Profile)
		res.degrade(stageFetchIndexCandidates, "index profile unavailable", err)
		return r.unavailable(res)
	}
	if len(candidates) == 0 {
		res.used(r.cfg.Labels.Profile)
		res.degrade(stageFetchIndexCandidates, "no tracking index matched", nil)
		return r.unavailable(res)
	}

	res.candidates = candidates
	return stageResolveIndexQuotes
}

func (r *Resolver) resolveIndexQuotes(ctx context.Context, res *resolution) stage {
	// index path label: nav + profile + quotes, holdings were only an attempt
	indexSources := []string{r.cfg.Labels.Nav, r.cfg.Labels.Profile, r.cfg.Labels.Quotes}

	changes, err := r.data.FetchRealtimeChangePercent(ctx, res.candidates)
	if err != nil {
		res.used(r.cfg.Labels.Profile)
		res.used(r.cfg.Labels.Quotes)
		res.degrade(stageResolveIndexQuotes, "index quotes unavailable", err)
		return r.unavailable(res)
	}

	est, ok := EstimateFromIndices(res.candidates, changes)
	if !ok {
		res.used(r.cfg.Labels.Profile)
		res.used(r.cfg.Labels.Quotes)
		res.degrade(stageResolveIndexQuotes,
			fmt.Sprintf("no index quotes resolved (%s)", strings.Join(res.candidates, ",")), nil)
		return r.unavailable(res)
	}

	result, err := res.basis.Index(est, strings.Join(indexSources, "+"))
	if err != nil {
		res.degrade(stageResolveIndexQuotes, "index estimate rejected", err)
		return r.unavailable(res)
	}

	res.result = result
	return stageDone
}

func (r *Resolver) unavailable(res *resolution) stage {
	detail := fmt.Sprintf("%s, nav date %s", DetailNoQuotes, res.basis.NavDate)
	if len(res.reasons) > 0 {
		detail += " (" + strings.Join(res.reasons, "; ") + ")"
	}
	res.result = res.basis.Unavailable(detail, res.source())
	return stageDone
}

// IsContextError reports whether err came from a cancelled or expired context
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
