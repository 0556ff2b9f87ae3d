package eastmoney

import (
	"context"
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/fundnav/internal/valuation"
)

// FundArchivesDatas wraps the holdings table in a js object: var apidata={ content:"<div>…",arryear:[…]}
var archiveContentPattern = regexp.MustCompile(`(?s)content:"(.*)",arryear`)

// FetchTopHoldings returns the fund's latest disclosed top holdings, at most topN.
// A page without a holdings table yields an empty slice.
func (c *Client) FetchTopHoldings(ctx context.Context, fundCode string, topN int) ([]valuation.Holding, error) {
	url := fmt.Sprintf("%s/FundArchivesDatas.aspx?type=jjcc&code=%s&topline=%d&year=&month=",
		c.f10URL, fundCode, topN)

	text, err := c.fetchText(ctx, url)
	if err != nil {
		return nil, err
	}

	holdings, err := parseHoldings(text, topN)
	if err != nil {
		return nil, fmt.Errorf("fund %s: %w", fundCode, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"fund_code": fundCode,
		"count":     len(holdings),
	}).Debug("Fetched holdings")

	return holdings, nil
}

// parseHoldings reads the first (latest quarter) table.
// 列: 序号 | 股票代码 | 股票名称 | 最新价 | 涨跌幅 | 相关资讯 | 占净值比例 | …
func parseHoldings(text string, topN int) ([]valuation.Holding, error) {
	m := archiveContentPattern.FindStringSubmatch(text)
	if m == nil {
		return []valuation.Holding{}, nil
	}

	fragment := strings.ReplaceAll(html.UnescapeString(m[1]), `\/`, "/")
	fragment = strings.ReplaceAll(fragment, `\"`, `"`)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	holdings := []valuation.Holding{}
	doc.Find("table").First().Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if topN > 0 && len(holdings) >= topN {
			return false
		}

		tds := row.Find("td")
		if tds.Length() < 7 {
			return true
		}

		code := cellText(tds.Eq(1))
		if code == "" {
			return true
		}

		weight, err := strconv.ParseFloat(strings.TrimSuffix(cellText(tds.Eq(6)), "%"), 64)
		if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
			return true
		}

		holdings = append(holdings, valuation.Holding{
			Code:          code,
			Name:          cellText(tds.Eq(2)),
			WeightPercent: weight,
		})
		return true
	})

	return holdings, nil
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
