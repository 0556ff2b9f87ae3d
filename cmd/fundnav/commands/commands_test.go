package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundnav/internal/fundlist"
	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/config"
)

func TestLoadConfig_InvalidProxyIsConfigurationError(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("HTTP_PROXY_URL", "")

	proxyURL = "127.0.0.1:7890"
	defer func() { proxyURL = "" }()

	_, err := loadConfig()
	require.Error(t, err)
	assert.Equal(t, valuation.KindConfiguration, valuation.KindOf(err))
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "development")

	proxyURL = "socks5://127.0.0.1:1080"
	verbose = true
	defer func() { proxyURL, verbose = "", false }()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.HTTP.ProxyURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func validConfig() *config.Config {
	return &config.Config{
		Env:       "development",
		Valuation: config.ValuationConfig{MinCoverage: 35, TopN: 10, MaxWorkers: 8, Interval: time.Minute},
	}
}

func TestApplyTuning(t *testing.T) {
	listCoverage, listTopN := 50.0, 5
	list := &fundlist.List{Funds: []string{"110011"}, MinCoverage: &listCoverage, TopN: &listTopN}

	cfg := validConfig()
	require.NoError(t, applyTuning(cfg, list, tuning{}))
	assert.Equal(t, 50.0, cfg.Valuation.MinCoverage)
	assert.Equal(t, 5, cfg.Valuation.TopN)

	flagCoverage, flagWorkers := 20.0, 2
	cfg = validConfig()
	require.NoError(t, applyTuning(cfg, list, tuning{minCoverage: &flagCoverage, workers: &flagWorkers}))
	assert.Equal(t, 20.0, cfg.Valuation.MinCoverage, "flags win over the fund list")
	assert.Equal(t, 2, cfg.Valuation.MaxWorkers)

	bad := 150.0
	err := applyTuning(validConfig(), nil, tuning{minCoverage: &bad})
	assert.Equal(t, valuation.KindConfiguration, valuation.KindOf(err))
}

func TestPrintEstimates(t *testing.T) {
	ts := time.Date(2026, 10, 16, 10, 30, 0, 0, time.Local)
	basis := valuation.Basis{FundCode: "110011", Timestamp: ts, LastNav: 2, NavDate: "2026-10-15"}
	hit, err := basis.Index(valuation.IndexEstimate{AverageChangePercent: 1, UsedSymbols: []string{"SH000300"}}, "eastmoney_fundgz+eastmoney_profile+sina_hq")
	require.NoError(t, err)
	miss := valuation.NavFailure("000001", ts, errors.New("HTTP request failed: timeout"), "eastmoney_fundgz")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	estimateHoldings = true
	defer func() { estimateHoldings = false }()

	require.NoError(t, printEstimates(cmd, []valuation.FundEstimate{hit, miss}))

	text := out.String()
	assert.Contains(t, text, report.FormatRecord(hit))
	assert.Contains(t, text, report.FormatRecord(miss))
	assert.Contains(t, text, "no_holdings")
	assert.Contains(t, text, "Total 2   Hit 1   Fail 1")
	assert.Contains(t, text, report.BucketNavFetch)
}

func TestPrintEstimates_JSON(t *testing.T) {
	miss := valuation.NavFailure("000001", time.Now(), errors.New("boom"), "eastmoney_fundgz")

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	estimateJSON = true
	defer func() { estimateJSON = false }()

	require.NoError(t, printEstimates(cmd, []valuation.FundEstimate{miss}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out.String()), "["))
	assert.Contains(t, out.String(), `"method": "unavailable"`)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "estimate", "api", "check"} {
		assert.True(t, names[want], want)
	}

	flag := runCmd.Flags().Lookup("output-file")
	require.NotNil(t, flag)
	assert.Equal(t, report.DefaultFilePaths.Output, flag.DefValue)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "(none)", redactURL(""))
	assert.Equal(t, "postgres://fund:xxxxx@db:5432/fundnav", redactURL("postgres://fund:secret@db:5432/fundnav"))
	assert.Equal(t, "http://127.0.0.1:7890", redactURL("http://127.0.0.1:7890"))
}
