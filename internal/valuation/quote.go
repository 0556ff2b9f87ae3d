package valuation

import (
	"math"
	"strconv"
	"strings"
)

// fieldLayout is where a market's quote row keeps previous close and current price
type fieldLayout struct {
	prevClose int
	price     int
}

var quoteLayouts = map[string]fieldLayout{
	MarketSH: {prevClose: 2, price: 3},
	MarketSZ: {prevClose: 2, price: 3},
	MarketHK: {prevClose: 3, price: 6},
	MarketUS: {prevClose: 26, price: 1},
}

// ResolveChangePercent computes (price/prevClose - 1) * 100 from a raw quote row.
// ok is false for an unknown market, missing, non-numeric or non-finite fields, or a zero previous close.
func ResolveChangePercent(key string, fields []string) (float64, bool) {
	layout, known := quoteLayouts[MarketOf(key)]
	if !known {
		return 0, false
	}

	prevClose, ok := fieldFloat(fields, layout.prevClose)
	if !ok || prevClose == 0 {
		return 0, false
	}

	price, ok := fieldFloat(fields, layout.price)
	if !ok {
		return 0, false
	}

	return (price/prevClose - 1) * 100, true
}

func fieldFloat(fields []string, idx int) (float64, bool) {
	if idx < 0 || idx >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

// isFinite rejects NaN and ±Inf, which strconv.ParseFloat accepts as text
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
