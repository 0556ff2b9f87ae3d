package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wonny/fundnav/internal/valuation"
)

// FilePaths are the append-only outputs of a FileStore. Empty paths are skipped.
type FilePaths struct {
	Output   string // every estimate
	Hits     string // effective estimates
	Misses   string // failed estimates
	Analysis string // miss analysis blocks
	Holdings string // holdings snapshot rows
}

// DefaultFilePaths mirrors the file names the run command has always written
var DefaultFilePaths = FilePaths{
	Output:   "valuation_output.txt",
	Hits:     "valuation_hits.txt",
	Misses:   "valuation_misses.txt",
	Analysis: "valuation_miss_analysis.txt",
	Holdings: "valuation_holdings.txt",
}

// FileStore appends each run to plain text files
type FileStore struct {
	paths FilePaths
	mu    sync.Mutex
}

// NewFileStore creates a FileStore
func NewFileStore(paths FilePaths) *FileStore {
	return &FileStore{paths: paths}
}

// Save appends the run's lines to every configured file
func (s *FileStore) Save(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var holdingRows []string
	for _, e := range run.Estimates {
		holdingRows = append(holdingRows, FormatHoldingRows(e)...)
	}

	writes := []struct {
		path  string
		lines []string
	}{
		{s.paths.Output, formatAll(run.Estimates)},
		{s.paths.Hits, formatAll(run.Hits)},
		{s.paths.Misses, formatAll(run.Fails)},
		{s.paths.Holdings, holdingRows},
		{s.paths.Analysis, run.Analysis()},
	}

	for _, w := range writes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendLines(w.path, w.lines); err != nil {
			return err
		}
	}
	return nil
}

func formatAll(estimates []valuation.FundEstimate) []string {
	lines := make([]string, 0, len(estimates))
	for _, e := range estimates {
		lines = append(lines, FormatRecord(e))
	}
	return lines
}

func appendLines(path string, lines []string) error {
	if path == "" || len(lines) == 0 {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}
