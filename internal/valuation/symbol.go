package valuation

import (
	"regexp"
	"strings"
)

// Canonical market prefixes
const (
	MarketSH = "SH"
	MarketSZ = "SZ"
	MarketHK = "HK"
	MarketUS = "US"
)

var (
	sixDigits  = regexp.MustCompile(`^\d{6}$`)
	fiveDigits = regexp.MustCompile(`^\d{5}$`)
	usTicker   = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// Normalize maps an instrument code to its canonical quote key (e.g. SH600000, HK00700, USAAPL).
// Rules apply in order; ok is false when the code belongs to no known market.
//
// Canonical keys always carry an upper-case prefix, so an already-prefixed code such as
// "sh600000" passes through as "SH600000" rather than in lower-case prefix form. Vendors wanting
// another spelling (sina's "sh600000", "hkHSI") convert at their own boundary.
func Normalize(code string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return "", false
	}

	switch {
	case sixDigits.MatchString(c):
		// 5xxxxx funds/ETFs, 6xxxxx main board, 9xxxxx B shares trade in Shanghai
		switch c[0] {
		case '5', '6', '9':
			return MarketSH + c, true
		}
		return MarketSZ + c, true
	case fiveDigits.MatchString(c):
		return MarketHK + c, true
	case usTicker.MatchString(c):
		return MarketUS + c, true
	}

	if len(c) > 2 {
		switch c[:2] {
		case MarketSH, MarketSZ, MarketHK, MarketUS:
			return c, true
		}
	}

	return "", false
}

// MarketOf returns the upper-case market prefix of a canonical key, or "" when unknown
func MarketOf(key string) string {
	if len(key) <= 2 {
		return ""
	}
	switch p := strings.ToUpper(key[:2]); p {
	case MarketSH, MarketSZ, MarketHK, MarketUS:
		return p
	}
	return ""
}
