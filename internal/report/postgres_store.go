package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fundnav/internal/valuation"
)

// PostgresStore keeps the latest estimate of every fund in fund_estimates
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore. The schema comes from database.Migrate.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save upserts every estimate of the run in one batch. A fund listed twice keeps its last estimate.
func (s *PostgresStore) Save(ctx context.Context, run *Run) error {
	if len(run.Estimates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO fund_estimates
			(fund_code, estimated_at, nav_date, last_nav, estimated_nav, estimated_change_percent,
			 method, coverage_percent, source_api, detail, holdings_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (fund_code) DO UPDATE SET
			estimated_at = EXCLUDED.estimated_at,
			nav_date = EXCLUDED.nav_date,
			last_nav = EXCLUDED.last_nav,
			estimated_nav = EXCLUDED.estimated_nav,
			estimated_change_percent = EXCLUDED.estimated_change_percent,
			method = EXCLUDED.method,
			coverage_percent = EXCLUDED.coverage_percent,
			source_api = EXCLUDED.source_api,
			detail = EXCLUDED.detail,
			holdings_snapshot = EXCLUDED.holdings_snapshot,
			updated_at = NOW()`

	for _, e := range run.Estimates {
		snapshot := e.HoldingsSnapshot
		if snapshot == nil {
			snapshot = []string{}
		}
		batch.Queue(query, e.FundCode, e.Timestamp, e.NavDate,
			e.LastNav, e.EstimatedNav, e.EstimatedChangePercent,
			e.Method.String(), e.CoveragePercent, e.SourceAPI, e.Detail, snapshot)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, e := range run.Estimates {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert estimate %s: %w", e.FundCode, err)
		}
	}

	return nil
}

// Get returns the stored estimate of a fund; found is false when the fund was never valued
func (s *PostgresStore) Get(ctx context.Context, fundCode string) (valuation.FundEstimate, bool, error) {
	query := `
		SELECT fund_code, estimated_at, nav_date, last_nav, estimated_nav, estimated_change_percent,
			   method, coverage_percent, source_api, detail, holdings_snapshot
		FROM fund_estimates
		WHERE fund_code = $1`

	var e valuation.FundEstimate
	var method string
	err := s.pool.QueryRow(ctx, query, fundCode).Scan(
		&e.FundCode, &e.Timestamp, &e.NavDate, &e.LastNav, &e.EstimatedNav, &e.EstimatedChangePercent,
		&method, &e.CoveragePercent, &e.SourceAPI, &e.Detail, &e.HoldingsSnapshot,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return valuation.FundEstimate{}, false, nil
	}
	if err != nil {
		return valuation.FundEstimate{}, false, fmt.Errorf("get estimate %s: %w", fundCode, err)
	}

	if e.Method, err = valuation.ParseMethod(method); err != nil {
		return valuation.FundEstimate{}, false, err
	}
	return e, true, nil
}
