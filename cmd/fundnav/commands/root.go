package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env      string
	verbose  bool
	proxyURL string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fundnav",
	Short: "场外基金实时估值",
	Long: `fundnav - real-time NAV estimation for open-end funds

Estimates today's NAV of each fund from its disclosed top holdings,
falling back to its tracking index when holdings coverage is too low.

Usage:
  go run ./cmd/fundnav [command]

Examples:
  go run ./cmd/fundnav run --once
  go run ./cmd/fundnav run --funds-file funds.yaml --proxy http://127.0.0.1:7890
  go run ./cmd/fundnav estimate 110011 161725
  go run ./cmd/fundnav api --funds-file funds_list.txt`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production), overrides ENV")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "HTTP proxy, e.g. http://127.0.0.1:7890 (overrides HTTP_PROXY_URL)")
}
