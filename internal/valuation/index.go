package valuation

import "strings"

// Benchmark is a named index the fund description may mention
type Benchmark struct {
	Key     string   // canonical quote key
	Aliases []string // any of these in the descriptor text selects the benchmark
}

// Lexicon is the fixed benchmark table, in match order
var Lexicon = []Benchmark{
	{Key: "SH000300", Aliases: []string{"沪深300", "CSI 300", "CSI300"}},
	{Key: "SH000905", Aliases: []string{"中证500", "CSI 500", "CSI500"}},
	{Key: "SH000852", Aliases: []string{"中证1000", "CSI 1000", "CSI1000"}},
	{Key: "HKHSI", Aliases: []string{"恒生指数", "Hang Seng Index"}},
	{Key: "USIXIC", Aliases: []string{"纳斯达克", "Nasdaq Composite", "NASDAQ"}},
	{Key: "USINX", Aliases: []string{"标普500", "S&P 500", "S&P500"}},
}

// MatchIndexCandidates returns every lexicon key whose alias occurs in text, in lexicon order
func MatchIndexCandidates(text string) []string {
	var candidates []string
	for _, b := range Lexicon {
		for _, alias := range b.Aliases {
			if strings.Contains(text, alias) {
				candidates = append(candidates, b.Key)
				break
			}
		}
	}
	return candidates
}

// IndexEstimate is the unweighted average over candidates that resolved
type IndexEstimate struct {
	AverageChangePercent float64
	UsedSymbols          []string
}

// EstimateFromIndices averages the changes of the candidates present in changes.
// ok is false when no candidate resolved.
func EstimateFromIndices(candidates []string, changes QuoteChanges) (IndexEstimate, bool) {
	var est IndexEstimate
	seen := make(map[string]struct{}, len(candidates))
	sum := 0.0

	for _, key := range candidates {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		change, ok := changes[key]
		if !ok || !isFinite(change) {
			continue
		}
		sum += change
		est.UsedSymbols = append(est.UsedSymbols, key)
	}

	if len(est.UsedSymbols) == 0 {
		return est, false
	}
	est.AverageChangePercent = sum / float64(len(est.UsedSymbols))
	return est, true
}
