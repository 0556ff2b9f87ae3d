package valuation

import (
	"fmt"
	"strings"
	"time"
)

// Holding is one reported position of a fund
type Holding struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	WeightPercent float64 `json:"weight_percent"`
}

// QuoteChanges maps canonical quote key → percent change since previous close
type QuoteChanges map[string]float64

// Method is how an estimate was produced
type Method int

const (
	MethodUnavailable Method = iota
	MethodHoldings
	MethodIndex
)

func (m Method) String() string {
	switch m {
	case MethodHoldings:
		return "holdings"
	case MethodIndex:
		return "index"
	default:
		return "unavailable"
	}
}

// ParseMethod is the inverse of Method.String
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "holdings":
		return MethodHoldings, nil
	case "index":
		return MethodIndex, nil
	case "unavailable":
		return MethodUnavailable, nil
	}
	return MethodUnavailable, fmt.Errorf("unknown estimation method %q", s)
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// FundEstimate is the terminal record for one fund in one run.
// Build it only through Basis methods, NavFailure or DataSourceFailure; it is never mutated after.
type FundEstimate struct {
	FundCode               string    `json:"fund_code"`
	Timestamp              time.Time `json:"timestamp"`
	NavDate                string    `json:"nav_date,omitempty"`
	LastNav                float64   `json:"last_nav"`
	EstimatedNav           float64   `json:"estimated_nav"`
	EstimatedChangePercent float64   `json:"estimated_change_percent"`
	Method                 Method    `json:"method"`
	CoveragePercent        float64   `json:"coverage_percent"`
	Detail                 string    `json:"detail"`
	SourceAPI              string    `json:"source_api"`
	HoldingsSnapshot       []string  `json:"holdings_snapshot"`
}

// Effective reports whether the estimate carries a usable valuation
func (e FundEstimate) Effective() bool {
	return (e.Method == MethodHoldings || e.Method == MethodIndex) && e.EstimatedNav > 0
}

// Basis is what every estimate of a fund shares once its last NAV is known
type Basis struct {
	FundCode  string
	Timestamp time.Time
	LastNav   float64
	NavDate   string
	Snapshot  []string
}

func (b Basis) record(method Method) FundEstimate {
	snapshot := make([]string, len(b.Snapshot))
	copy(snapshot, b.Snapshot)
	return FundEstimate{
		FundCode:         b.FundCode,
		Timestamp:        b.Timestamp,
		NavDate:          b.NavDate,
		LastNav:          b.LastNav,
		Method:           method,
		HoldingsSnapshot: snapshot,
	}
}

// Holdings builds a HOLDINGS estimate.
// estimatedNav = lastNav·(1+weighted); the change percent is recomputed from the two NAVs.
func (b Basis) Holdings(h HoldingsEstimate, minCoverage float64, source string) (FundEstimate, error) {
	if !isFinite(b.LastNav) || b.LastNav <= 0 {
		return FundEstimate{}, fmt.Errorf("holdings estimate needs a positive last nav, got %v", b.LastNav)
	}
	if h.Hits == 0 || !isFinite(h.CoveragePercent) || h.CoveragePercent < minCoverage {
		return FundEstimate{}, fmt.Errorf("coverage %.2f%% below %.2f%%", h.CoveragePercent, minCoverage)
	}

	e := b.record(MethodHoldings)
	e.EstimatedNav = b.LastNav * (1 + h.WeightedChange)
	if !isFinite(e.EstimatedNav) || e.EstimatedNav < 0 {
		return FundEstimate{}, fmt.Errorf("holdings estimate produced invalid nav %v", e.EstimatedNav)
	}
	e.EstimatedChangePercent = (e.EstimatedNav/b.LastNav - 1) * 100
	e.CoveragePercent = h.CoveragePercent
	e.Detail = fmt.Sprintf("estimated from top %d holdings, matched %d/%d, nav date %s",
		h.Total, h.Hits, h.Total, b.NavDate)
	e.SourceAPI = source
	return e, nil
}

// Index builds an INDEX estimate, coverage is always 100
func (b Basis) Index(ix IndexEstimate, source string) (FundEstimate, error) {
	if len(ix.UsedSymbols) == 0 {
		return FundEstimate{}, fmt.Errorf("index estimate needs at least one contributing symbol")
	}

	if !isFinite(ix.AverageChangePercent) {
		return FundEstimate{}, fmt.Errorf("index estimate needs a finite change, got %v", ix.AverageChangePercent)
	}

	e := b.record(MethodIndex)
	e.EstimatedNav = b.LastNav * (1 + ix.AverageChangePercent/100)
	if !isFinite(e.EstimatedNav) || e.EstimatedNav < 0 {
		return FundEstimate{}, fmt.Errorf("index estimate produced invalid nav %v", e.EstimatedNav)
	}
	e.EstimatedChangePercent = ix.AverageChangePercent
	e.CoveragePercent = 100
	e.Detail = fmt.Sprintf("estimated from tracking index (%s), nav date %s",
		strings.Join(ix.UsedSymbols, ","), b.NavDate)
	e.SourceAPI = source
	return e, nil
}

// Unavailable builds a no-movement estimate: estimatedNav = lastNav, change 0
func (b Basis) Unavailable(detail, source string) FundEstimate {
	e := b.record(MethodUnavailable)
	e.EstimatedNav = b.LastNav
	e.Detail = detail
	e.SourceAPI = source
	return e
}

// NavFailure builds the estimate for a fund whose last NAV could not be read
func NavFailure(fundCode string, ts time.Time, err error, source string) FundEstimate {
	return FundEstimate{
		FundCode:         fundCode,
		Timestamp:        ts,
		Method:           MethodUnavailable,
		Detail:           fmt.Sprintf("%s: %v", DetailNavFetchFailed, err),
		SourceAPI:        source,
		HoldingsSnapshot: []string{},
	}
}

// DataSourceFailure builds the estimate for a fund whose resolution escaped with an error
func DataSourceFailure(fundCode string, ts time.Time, err error) FundEstimate {
	return FundEstimate{
		FundCode:         fundCode,
		Timestamp:        ts,
		Method:           MethodUnavailable,
		Detail:           fmt.Sprintf("%s: %v", DetailDataSourceError, err),
		SourceAPI:        SourceUnknown,
		HoldingsSnapshot: []string{},
	}
}

// Detail prefixes, matched by the reporting layer when classifying failures
const (
	DetailNavFetchFailed  = "nav fetch failed"
	DetailNoQuotes        = "no usable holdings/index quotes"
	DetailDataSourceError = "data source error"
)

// SourceUnknown labels records whose data path could not be determined
const SourceUnknown = "unknown"
