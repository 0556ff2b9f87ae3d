package eastmoney

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsable is returned when a page does not carry the expected payload
var ErrUnparsable = errors.New("unparsable response")

var jsonpPattern = regexp.MustCompile(`(?s)jsonpgz\((\{.*\})\)`)

// fundGZPayload is the fundgz jsonp body
type fundGZPayload struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	Dwjz     string `json:"dwjz"` // 单位净值 (last published NAV)
	Jzrq     string `json:"jzrq"` // 净值日期
	Gsz      string `json:"gsz"`  // vendor's own estimate, unused
}

// FetchLastNav returns the last published NAV and its date
func (c *Client) FetchLastNav(ctx context.Context, fundCode string) (float64, string, error) {
	url := fmt.Sprintf("%s/js/%s.js?rt=%d", c.fundGZURL, fundCode, time.Now().UnixMilli())

	text, err := c.fetchText(ctx, url)
	if err != nil {
		return 0, "", err
	}

	nav, navDate, err := parseLastNav(text, time.Now())
	if err != nil {
		return 0, "", fmt.Errorf("fund %s: %w", fundCode, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"fund_code": fundCode,
		"nav":       nav,
		"nav_date":  navDate,
	}).Debug("Fetched last NAV")

	return nav, navDate, nil
}

// parseLastNav extracts dwjz/jzrq from `jsonpgz({...});`. A missing date falls back to today.
func parseLastNav(text string, today time.Time) (float64, string, error) {
	m := jsonpPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, "", fmt.Errorf("%w: no jsonpgz payload", ErrUnparsable)
	}

	var payload fundGZPayload
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	nav, err := strconv.ParseFloat(strings.TrimSpace(payload.Dwjz), 64)
	if err != nil || math.IsNaN(nav) || math.IsInf(nav, 0) {
		return 0, "", fmt.Errorf("%w: dwjz %q", ErrUnparsable, payload.Dwjz)
	}

	navDate := strings.TrimSpace(payload.Jzrq)
	if navDate == "" {
		navDate = today.Format("2006-01-02")
	}

	return nav, navDate, nil
}
