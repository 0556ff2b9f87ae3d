package eastmoney

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// profile rows that name the benchmark
var benchmarkHeaders = []string{"跟踪标的", "业绩比较基准"}

// FetchProfileText returns the descriptive text of the fund's profile page (基本概况).
// When the page has the benchmark rows only their values are returned, otherwise the whole body text.
func (c *Client) FetchProfileText(ctx context.Context, fundCode string) (string, error) {
	url := fmt.Sprintf("%s/jbgk_%s.html", c.f10URL, fundCode)

	text, err := c.fetchText(ctx, url)
	if err != nil {
		return "", err
	}

	profile, err := parseProfileText(text)
	if err != nil {
		return "", fmt.Errorf("fund %s: %w", fundCode, err)
	}
	return profile, nil
}

func parseProfileText(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	var parts []string
	doc.Find("th").Each(func(_ int, th *goquery.Selection) {
		header := strings.TrimSpace(th.Text())
		for _, h := range benchmarkHeaders {
			if strings.Contains(header, h) {
				if v := strings.TrimSpace(th.Next().Text()); v != "" {
					parts = append(parts, v)
				}
				return
			}
		}
	})

	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}
	return strings.TrimSpace(doc.Find("body").Text()), nil
}
