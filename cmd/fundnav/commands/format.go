package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/scheduler"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintRunHeader prints the header of a valuation loop
func PrintRunHeader(w io.Writer, title, fundsFile string, funds int, interval time.Duration, once bool) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
	fmt.Fprintf(w, "  Funds     : %d (%s)\n", funds, fundsFile)
	if once {
		fmt.Fprintln(w, "  Mode      : once")
	} else {
		fmt.Fprintf(w, "  Interval  : %s\n", interval)
	}
	PrintSeparator(w)
}

// PrintJobResult prints one finished round
func PrintJobResult(w io.Writer, result scheduler.JobResult) {
	if result.Success {
		fmt.Fprintf(w, "✅ Round completed in %.2fs\n", result.Duration.Seconds())
		return
	}
	fmt.Fprintf(w, "❌ Round failed after %.2fs: %s\n", result.Duration.Seconds(), result.Error)
}

// PrintRunSummary prints hit/fail counts and the failure buckets of a run
func PrintRunSummary(w io.Writer, run *report.Run) {
	PrintSeparator(w)
	fmt.Fprintf(w, "  Total %d   Hit %d   Fail %d\n", len(run.Estimates), len(run.Hits), len(run.Fails))

	counts := report.FailureCounts(run.Fails)
	buckets := make([]string, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	for _, b := range buckets {
		fmt.Fprintf(w, "   • %-28s %d\n", b, counts[b])
	}
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}
