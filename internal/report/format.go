package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/fundnav/internal/valuation"
)

// TimeLayout is the timestamp format of every report line
const TimeLayout = "2006-01-02 15:04:05"

// Failure buckets of the miss analysis
const (
	BucketNavFetch     = "nav_fetch_failed"
	BucketUpstreamHTTP = "upstream_http_failed"
	BucketNoQuotes     = "quote_or_index_unavailable"
	BucketDataSource   = "datasource_error"
	BucketOther        = "other"
)

// FormatRecord renders one estimate as a tab-separated line:
// ts, code, lastNav, estNav, change%, method, coverage=x%, source=…, detail
func FormatRecord(e valuation.FundEstimate) string {
	return strings.Join([]string{
		e.Timestamp.Format(TimeLayout),
		e.FundCode,
		fmt.Sprintf("%.4f", e.LastNav),
		fmt.Sprintf("%.4f", e.EstimatedNav),
		fmt.Sprintf("%.3f%%", e.EstimatedChangePercent),
		e.Method.String(),
		fmt.Sprintf("coverage=%.2f%%", e.CoveragePercent),
		"source=" + e.SourceAPI,
		e.Detail,
	}, "\t")
}

// FormatHoldingRows renders the holdings snapshot, one line per holding.
// A fund without a snapshot yields a single no_holdings placeholder line.
func FormatHoldingRows(e valuation.FundEstimate) []string {
	ts := e.Timestamp.Format(TimeLayout)
	if len(e.HoldingsSnapshot) == 0 {
		return []string{fmt.Sprintf("%s\t%s\t-\t-\t-\tN/A\tno_holdings", ts, e.FundCode)}
	}

	rows := make([]string, 0, len(e.HoldingsSnapshot))
	for _, item := range e.HoldingsSnapshot {
		rows = append(rows, fmt.Sprintf("%s\t%s\t%s\t%s", ts, e.FundCode, item, e.Method))
	}
	return rows
}

// SplitEffectiveAndFailed partitions estimates, keeping input order in both halves
func SplitEffectiveAndFailed(estimates []valuation.FundEstimate) (hits, fails []valuation.FundEstimate) {
	for _, e := range estimates {
		if e.Effective() {
			hits = append(hits, e)
		} else {
			fails = append(fails, e)
		}
	}
	return hits, fails
}

// ClassifyFailure buckets a failed estimate by its detail text. First match wins.
func ClassifyFailure(detail string) string {
	switch {
	case strings.Contains(detail, valuation.DetailNavFetchFailed):
		return BucketNavFetch
	case strings.Contains(detail, "HTTP request failed"), strings.Contains(detail, "unexpected status code"):
		return BucketUpstreamHTTP
	case strings.Contains(detail, valuation.DetailNoQuotes):
		return BucketNoQuotes
	case strings.Contains(detail, valuation.DetailDataSourceError):
		return BucketDataSource
	default:
		return BucketOther
	}
}

// FailureCounts counts failed estimates per bucket
func FailureCounts(fails []valuation.FundEstimate) map[string]int {
	counts := make(map[string]int)
	for _, e := range fails {
		counts[ClassifyFailure(e.Detail)]++
	}
	return counts
}

// AnalysisBlock renders the miss analysis of one run:
// a "ts\ttotal=\thit=\tfail=" header, one "bucket\tcount" line per bucket sorted by name, then "-".
func AnalysisBlock(ts time.Time, total int, fails []valuation.FundEstimate, hits int) []string {
	counts := FailureCounts(fails)

	buckets := make([]string, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	lines := []string{fmt.Sprintf("%s\ttotal=%d\thit=%d\tfail=%d", ts.Format(TimeLayout), total, hits, len(fails))}
	for _, b := range buckets {
		lines = append(lines, fmt.Sprintf("%s\t%d", b, counts[b]))
	}
	return append(lines, "-")
}
