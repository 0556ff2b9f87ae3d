package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/fundnav/internal/fundlist"
	"github.com/wonny/fundnav/internal/marketdata"
	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/config"
	"github.com/wonny/fundnav/pkg/database"
	"github.com/wonny/fundnav/pkg/httputil"
	"github.com/wonny/fundnav/pkg/logger"
	"github.com/wonny/fundnav/pkg/redis"
)

// tuning holds per-command overrides; nil fields keep the configured value
type tuning struct {
	minCoverage *float64
	workers     *int
	topN        *int
}

// app is the wired object graph shared by every command
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	rc    *redis.Client
	db    *database.DB
	batch *valuation.Batch
}

// loadConfig reads the environment and applies global flag overrides.
// An unusable proxy is a configuration error and stops the command before any fund is valued.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, valuation.ConfigurationError("load config", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if proxyURL != "" {
		cfg.HTTP.ProxyURL = proxyURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, valuation.ConfigurationError("validate config", err)
	}
	return cfg, nil
}

// applyTuning layers fund list settings, then flags, over the config
func applyTuning(cfg *config.Config, list *fundlist.List, t tuning) error {
	if list != nil {
		if list.MinCoverage != nil {
			cfg.Valuation.MinCoverage = *list.MinCoverage
		}
		if list.TopN != nil {
			cfg.Valuation.TopN = *list.TopN
		}
	}
	if t.minCoverage != nil {
		cfg.Valuation.MinCoverage = *t.minCoverage
	}
	if t.workers != nil {
		cfg.Valuation.MaxWorkers = *t.workers
	}
	if t.topN != nil {
		cfg.Valuation.TopN = *t.topN
	}

	if err := cfg.Validate(); err != nil {
		return valuation.ConfigurationError("validate tuning", err)
	}
	return nil
}

// newApp wires transport, cache, optional database and the estimator
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.New(cfg)

	httpClient, err := httputil.New(cfg, log)
	if err != nil {
		if errors.Is(err, httputil.ErrInvalidProxy) {
			return nil, valuation.ConfigurationError("build http client", err)
		}
		return nil, err
	}

	rc, err := redis.New(cfg)
	if err != nil {
		// cache and shared pacing are optional
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc, _ = redis.New(&config.Config{})
	}
	if rc.Enabled() {
		httpClient.WithRateLimiter(redis.NewRateLimiter(rc, "fundnav"), redis.VendorRateLimit)
	}

	a := &app{cfg: cfg, log: log, rc: rc}

	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			rc.Close()
			return nil, err
		}
		a.db = db
	}

	provider := marketdata.NewVendorProvider(cfg, httpClient, rc, log)
	resolver := valuation.NewResolver(provider, valuation.ResolverConfig{
		MinCoverage: cfg.Valuation.MinCoverage,
		TopN:        cfg.Valuation.TopN,
		Labels:      provider.Labels(),
	}, log)
	a.batch = valuation.NewBatch(resolver, cfg.Valuation.MaxWorkers, log)

	log.WithFields(map[string]interface{}{
		"env":          cfg.Env,
		"min_coverage": cfg.Valuation.MinCoverage,
		"top_n":        cfg.Valuation.TopN,
		"workers":      cfg.Valuation.MaxWorkers,
		"proxy":        cfg.HTTP.ProxyURL != "",
		"redis":        rc.Enabled(),
		"database":     a.db != nil,
	}).Info("fundnav initialized")

	return a, nil
}

// stores returns the sinks a finished run is written to; latest may be nil
func (a *app) stores(files *report.FileStore, latest *report.Latest) report.MultiStore {
	var stores report.MultiStore
	if files != nil {
		stores = append(stores, files)
	}
	if latest != nil {
		stores = append(stores, latest)
	}
	if a.db != nil {
		stores = append(stores, report.NewPostgresStore(a.db.Pool))
	}
	return stores
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.rc != nil {
		a.rc.Close()
	}
}
