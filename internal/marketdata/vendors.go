package marketdata

import (
	"time"

	"github.com/wonny/fundnav/internal/external/eastmoney"
	"github.com/wonny/fundnav/internal/external/sina"
	"github.com/wonny/fundnav/pkg/config"
	"github.com/wonny/fundnav/pkg/httputil"
	"github.com/wonny/fundnav/pkg/logger"
	"github.com/wonny/fundnav/pkg/redis"
)

// NewVendorProvider wires Eastmoney (NAV, holdings, profile) and Sina (quotes) behind one Provider.
// rc may be nil or disabled, in which case nothing is cached.
func NewVendorProvider(cfg *config.Config, httpClient *httputil.Client, rc *redis.Client, log *logger.Logger) *Provider {
	var cache *redis.Cache
	if rc != nil && rc.Enabled() {
		cache = redis.NewCache(rc, "fundnav")
	}

	return NewProvider(
		eastmoney.NewClient(httpClient, cfg.Eastmoney, log),
		sina.NewClient(httpClient, cfg.Sina, log),
		cache,
		log,
	).WithFlightTimeout(FlightTimeout(cfg.HTTP))
}

// FlightTimeout is the time one request may take with every retry attempt, plus backoff slack.
// Zero (unset timeout) keeps the provider default.
func FlightTimeout(h config.HTTPConfig) time.Duration {
	if h.Timeout <= 0 {
		return 0
	}
	attempts := h.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*h.Timeout + 5*time.Second
}
