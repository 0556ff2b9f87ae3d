package marketdata

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/logger"
	"github.com/wonny/fundnav/pkg/redis"
)

// Source labels reported in FundEstimate.SourceAPI
const (
	LabelNav      = "eastmoney_fundgz"
	LabelHoldings = "eastmoney_holdings"
	LabelProfile  = "eastmoney_profile"
	LabelQuotes   = "sina_hq"
)

// FundSource serves per-fund reference data (NAV, holdings, profile page)
type FundSource interface {
	FetchLastNav(ctx context.Context, fundCode string) (float64, string, error)
	FetchTopHoldings(ctx context.Context, fundCode string, topN int) ([]valuation.Holding, error)
	FetchProfileText(ctx context.Context, fundCode string) (string, error)
}

// QuoteSource serves real-time change percent by canonical key
type QuoteSource interface {
	FetchChangePercent(ctx context.Context, keys []string) (valuation.QuoteChanges, error)
}

// Provider implements valuation.MarketData over a fund source and a quote source,
// with an optional Redis cache in front.
// ⭐ SSOT: 외부 데이터 오류 분류 (NavFetch / DataSource) 는 여기서만
type Provider struct {
	funds  FundSource
	quotes QuoteSource
	cache  *redis.Cache
	group  singleflight.Group
	logger *logger.Logger

	flightTimeout time.Duration
}

// defaultFlightTimeout bounds one shared vendor call, retries included
const defaultFlightTimeout = 30 * time.Second

// NewProvider creates a provider. cache may be nil.
func NewProvider(funds FundSource, quotes QuoteSource, cache *redis.Cache, log *logger.Logger) *Provider {
	return &Provider{
		funds:  funds,
		quotes: quotes,
		cache:  cache,
		logger: log.WithModule("marketdata"),

		flightTimeout: defaultFlightTimeout,
	}
}

// WithFlightTimeout overrides the bound on a shared vendor call
func (p *Provider) WithFlightTimeout(d time.Duration) *Provider {
	if d > 0 {
		p.flightTimeout = d
	}
	return p
}

// Labels names this provider's capabilities for estimate records
func (p *Provider) Labels() valuation.SourceLabels {
	return valuation.SourceLabels{
		Nav:      LabelNav,
		Holdings: LabelHoldings,
		Profile:  LabelProfile,
		Quotes:   LabelQuotes,
	}
}

type navEntry struct {
	Nav  float64 `json:"nav"`
	Date string  `json:"date"`
}

// FetchLastNav returns the last published NAV. Any failure is a NavFetch error.
func (p *Provider) FetchLastNav(ctx context.Context, fundCode string) (float64, string, error) {
	var cached navEntry
	if p.cacheGet(ctx, redis.NavKey(fundCode), &cached) {
		return cached.Nav, cached.Date, nil
	}

	nav, navDate, err := p.funds.FetchLastNav(ctx, fundCode)
	if err != nil {
		return 0, "", valuation.NavFetchError("fetch last nav", err)
	}

	p.cacheSet(ctx, redis.NavKey(fundCode), navEntry{Nav: nav, Date: navDate}, redis.TTLNav)
	return nav, navDate, nil
}

// FetchTopHoldings returns the latest disclosed top holdings
func (p *Provider) FetchTopHoldings(ctx context.Context, fundCode string, topN int) ([]valuation.Holding, error) {
	key := redis.HoldingsKey(fundCode, topN)

	var cached []valuation.Holding
	if p.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	holdings, err := p.funds.FetchTopHoldings(ctx, fundCode, topN)
	if err != nil {
		return nil, valuation.DataSourceError("fetch holdings", err)
	}

	p.cacheSet(ctx, key, holdings, redis.TTLDaily)
	return holdings, nil
}

// FetchTrackingIndexCandidates matches the fund's profile page against the benchmark lexicon.
// Concurrent lookups of the same fund share one page fetch; see share.
func (p *Provider) FetchTrackingIndexCandidates(ctx context.Context, fundCode string) ([]string, error) {
	key := redis.ProfileKey(fundCode)

	var cached []string
	if p.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	v, _, err := p.share(ctx, "profile:"+fundCode, func(ctx context.Context) (interface{}, error) {
		text, err := p.funds.FetchProfileText(ctx, fundCode)
		if err != nil {
			return nil, err
		}
		candidates := valuation.MatchIndexCandidates(text)
		if candidates == nil {
			candidates = []string{}
		}
		p.cacheSet(ctx, key, candidates, redis.TTLProfile)
		return candidates, nil
	})
	if err != nil {
		return nil, valuation.DataSourceError("fetch index profile", err)
	}

	candidates := v.([]string)
	return append([]string(nil), candidates...), nil
}

// FetchRealtimeChangePercent resolves change percent per key. Cached keys are served locally,
// the rest go to the quote source in one call; identical concurrent requests (the same
// benchmark set across funds) share that call. A caller cancelling does not fail the others.
func (p *Provider) FetchRealtimeChangePercent(ctx context.Context, keys []string) (valuation.QuoteChanges, error) {
	changes := valuation.QuoteChanges{}

	var missing []string
	for _, key := range keys {
		if _, done := changes[key]; done {
			continue
		}
		var change float64
		if p.cacheGet(ctx, redis.QuoteKey(key), &change) {
			changes[key] = change
			continue
		}
		missing = append(missing, key)
	}

	if len(missing) == 0 {
		return changes, nil
	}

	v, shared, err := p.share(ctx, quotesFlightKey(missing), func(ctx context.Context) (interface{}, error) {
		fetched, err := p.quotes.FetchChangePercent(ctx, missing)
		if err != nil {
			return nil, err
		}
		for key, change := range fetched {
			p.cacheSet(ctx, redis.QuoteKey(key), change, redis.TTLQuote)
		}
		return fetched, nil
	})
	if err != nil {
		return nil, valuation.DataSourceError("fetch quotes", err)
	}

	if shared {
		p.logger.WithField("keys", len(missing)).Debug("Quote request shared")
	}

	for key, change := range v.(valuation.QuoteChanges) {
		changes[key] = change
	}
	return changes, nil
}

// share runs fn once for all concurrent callers of key. fn is detached from the cancellation of
// whichever caller started it and bounded by flightTimeout instead; every caller still returns
// as soon as its own ctx is done.
func (p *Provider) share(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	ch := p.group.DoChan(key, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.flightTimeout)
		defer cancel()
		return fn(flightCtx)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

func quotesFlightKey(keys []string) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return "quotes:" + strings.Join(sorted, ",")
}

// cacheGet is best effort: errors are logged and treated as a miss
func (p *Provider) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if p.cache == nil {
		return false
	}
	found, err := p.cache.Get(ctx, key, dest)
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		return false
	}
	return found
}

func (p *Provider) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, value, ttl); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}
