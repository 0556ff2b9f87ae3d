package eastmoney

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/fundnav/pkg/config"
	"github.com/wonny/fundnav/pkg/httputil"
	"github.com/wonny/fundnav/pkg/logger"
)

// Client handles communication with Eastmoney fund pages (天天基金)
// ⭐ SSOT: Eastmoney 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	fundGZURL  string
	f10URL     string
}

// NewClient creates a new Eastmoney client
func NewClient(httpClient *httputil.Client, cfg config.EastmoneyConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("eastmoney"),
		fundGZURL:  strings.TrimRight(cfg.FundGZURL, "/"),
		f10URL:     strings.TrimRight(cfg.F10URL, "/"),
	}
}

// fetchText fetches a page body
func (c *Client) fetchText(ctx context.Context, url string) (string, error) {
	text, err := c.httpClient.GetText(ctx, url, map[string]string{
		"Referer": "https://fund.eastmoney.com/",
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return text, nil
}
