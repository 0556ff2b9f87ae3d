package sina

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/config"
	"github.com/wonny/fundnav/pkg/httputil"
	"github.com/wonny/fundnav/pkg/logger"
)

// maxSymbolsPerRequest keeps the list= query well under the vendor's URL limit
const maxSymbolsPerRequest = 60

// Client handles communication with Sina real-time quotes (hq.sinajs.cn)
// ⭐ SSOT: Sina 시세 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	hqURL      string
	referer    string
}

// NewClient creates a new Sina quote client
func NewClient(httpClient *httputil.Client, cfg config.SinaConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("sina"),
		hqURL:      strings.TrimRight(cfg.HQURL, "/"),
		referer:    cfg.Referer,
	}
}

// FetchChangePercent returns the intraday change percent for each canonical quote key.
// Keys the vendor does not know, or whose row cannot be parsed, are absent from the result.
func (c *Client) FetchChangePercent(ctx context.Context, keys []string) (valuation.QuoteChanges, error) {
	changes := valuation.QuoteChanges{}

	// vendor symbol -> canonical key
	symbols := make(map[string]string, len(keys))
	var ordered []string
	for _, key := range keys {
		sym, ok := VendorSymbol(key)
		if !ok {
			continue
		}
		if _, dup := symbols[sym]; dup {
			continue
		}
		symbols[sym] = key
		ordered = append(ordered, sym)
	}

	for start := 0; start < len(ordered); start += maxSymbolsPerRequest {
		end := start + maxSymbolsPerRequest
		if end > len(ordered) {
			end = len(ordered)
		}

		rows, err := c.fetchRows(ctx, ordered[start:end])
		if err != nil {
			return nil, err
		}

		for sym, fields := range rows {
			key, ok := symbols[sym]
			if !ok {
				continue
			}
			if change, ok := valuation.ResolveChangePercent(key, fields); ok {
				changes[key] = change
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"requested": len(ordered),
		"resolved":  len(changes),
	}).Debug("Fetched quotes")

	return changes, nil
}

func (c *Client) fetchRows(ctx context.Context, symbols []string) (map[string][]string, error) {
	url := fmt.Sprintf("%s/list=%s", c.hqURL, strings.Join(symbols, ","))

	headers := map[string]string{}
	if c.referer != "" {
		headers["Referer"] = c.referer
	}

	text, err := c.httpClient.GetText(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	return ParseHQ(text), nil
}

// VendorSymbol converts a canonical key (SH600000, HKHSI, USAAPL) to sina's form
// (sh600000, hkHSI, usAAPL): only the market prefix is lower-cased.
func VendorSymbol(key string) (string, bool) {
	market := valuation.MarketOf(key)
	if market == "" {
		return "", false
	}
	return strings.ToLower(market) + key[len(market):], true
}
