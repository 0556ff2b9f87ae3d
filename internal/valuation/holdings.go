package valuation

import "fmt"

// HoldingsEstimate is the coverage-weighted result over the holdings that had a quote
type HoldingsEstimate struct {
	WeightedChange  float64 // fraction, 0.01 == +1%
	CoveragePercent float64
	Hits            int
	Total           int
}

// EstimateFromHoldings accumulates weight·change over holdings with a resolved quote.
// Missing or non-finite quotes and weights only lower coverage. ok is false when nothing matched or coverage < minCoverage,
// in which case the caller falls back to the tracking index; the partial result is still returned
// for diagnostics.
func EstimateFromHoldings(holdings []Holding, changes QuoteChanges, minCoverage float64) (HoldingsEstimate, bool) {
	est := HoldingsEstimate{Total: len(holdings)}

	for _, h := range holdings {
		key, ok := Normalize(h.Code)
		if !ok {
			continue
		}
		change, ok := changes[key]
		if !ok || !isFinite(change) || !isFinite(h.WeightPercent) {
			continue
		}
		est.WeightedChange += (h.WeightPercent / 100) * (change / 100)
		est.CoveragePercent += h.WeightPercent
		est.Hits++
	}

	if est.Hits == 0 || est.CoveragePercent < minCoverage {
		return est, false
	}
	return est, true
}

// QuoteKeys returns the canonical keys of holdings, deduplicated, in holding order
func QuoteKeys(holdings []Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	keys := make([]string, 0, len(holdings))
	for _, h := range holdings {
		key, ok := Normalize(h.Code)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// HoldingsSnapshot renders one audit line per fetched holding, hit or miss:
// "code\tname\tweight%\tchange%" with "N/A" for holdings without a quote.
func HoldingsSnapshot(holdings []Holding, changes QuoteChanges) []string {
	lines := make([]string, 0, len(holdings))
	for _, h := range holdings {
		change := "N/A"
		if key, ok := Normalize(h.Code); ok {
			if v, found := changes[key]; found {
				change = fmt.Sprintf("%+.3f%%", v)
			}
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%.2f%%\t%s", h.Code, h.Name, h.WeightPercent, change))
	}
	return lines
}
