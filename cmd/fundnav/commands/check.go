package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fundnav/internal/marketdata"
	"github.com/wonny/fundnav/pkg/config"
	"github.com/wonny/fundnav/pkg/database"
	"github.com/wonny/fundnav/pkg/httputil"
	"github.com/wonny/fundnav/pkg/logger"
	"github.com/wonny/fundnav/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "连接检查 (配置/数据库/Redis/行情源)",
	Long: `Checks that the configured backends and vendors are reachable.

이 명령어는:
- config 로드 및 검증
- Redis Ping (REDIS_ENABLED=true 일 때)
- PostgreSQL Health Check (DATABASE_URL 이 있을 때)
- 최신 净值 조회와 指数 시세 조회

Example:
  go run ./cmd/fundnav check
  go run ./cmd/fundnav check --fund 161725 --proxy http://127.0.0.1:7890`,
	RunE: runCheck,
}

var (
	checkFund  string
	checkIndex string
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFund, "fund", "110011", "fund code whose last NAV is fetched")
	checkCmd.Flags().StringVar(&checkIndex, "index", "SH000300", "quote key whose change percent is fetched")
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== fundnav connectivity check ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Fprintf(out, "   Proxy       : %s\n", redactURL(cfg.HTTP.ProxyURL))
	fmt.Fprintf(out, "   Database URL: %s\n", redactURL(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	log := logger.New(cfg)
	failures := 0

	rc, err := redis.New(cfg)
	switch {
	case err != nil:
		failures++
		fmt.Fprintf(out, "❌ Redis: %v\n", err)
		rc, _ = redis.New(&config.Config{})
	case rc.Enabled():
		if rtt, err := rc.Ping(ctx); err != nil {
			failures++
			fmt.Fprintf(out, "❌ Redis %s: %v\n", rc.Addr(), err)
		} else {
			fmt.Fprintf(out, "✅ Redis %s ping %v\n", rc.Addr(), rtt)
		}
	default:
		fmt.Fprintln(out, "-  Redis disabled")
	}
	defer rc.Close()

	if cfg.Database.Enabled() {
		if err := checkDatabase(ctx, out, cfg); err != nil {
			failures++
			fmt.Fprintf(out, "❌ Database: %v\n", err)
		}
	} else {
		fmt.Fprintln(out, "-  Database disabled")
	}

	httpClient, err := httputil.New(cfg, log)
	if err != nil {
		return err
	}
	provider := marketdata.NewVendorProvider(cfg, httpClient, rc, log)

	nav, navDate, err := provider.FetchLastNav(ctx, checkFund)
	if err != nil {
		failures++
		fmt.Fprintf(out, "❌ NAV %s: %v\n", checkFund, err)
	} else {
		fmt.Fprintf(out, "✅ NAV %s: %.4f (%s)\n", checkFund, nav, navDate)
	}

	changes, err := provider.FetchRealtimeChangePercent(ctx, []string{checkIndex})
	if err != nil {
		failures++
		fmt.Fprintf(out, "❌ Quote %s: %v\n", checkIndex, err)
	} else if pct, ok := changes[checkIndex]; ok {
		fmt.Fprintf(out, "✅ Quote %s: %.3f%%\n", checkIndex, pct)
	} else {
		failures++
		fmt.Fprintf(out, "❌ Quote %s: no usable quote\n", checkIndex)
	}

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Fprintln(out, "\n✅ All checks passed!")
	return nil
}

func checkDatabase(ctx context.Context, out io.Writer, cfg *config.Config) error {
	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "✅ Database health check:")
	fmt.Fprintf(out, "   Response Time: %v\n", status.ResponseTime)
	fmt.Fprintf(out, "   Connections  : %d/%d (idle %d)\n",
		status.Stats.TotalConns, status.Stats.MaxConns, status.Stats.IdleConns)
	return nil
}

// redactURL hides credentials in a connection or proxy URL for display
func redactURL(raw string) string {
	if raw == "" {
		return "(none)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparsable)"
	}
	return u.Redacted()
}
