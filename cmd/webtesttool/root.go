package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "webtesttool",
	Short: "Webtesttool - passive web security scanner",
	Long: `Webtesttool is a passive web security scanner with admission control.

It fetches web targets, evaluates passive security checks, stores the
findings, and serves them over a JSON API:
  - Missing hardening headers (CSP, HSTS, frame and sniffing protections)
  - Cookies set without Secure or HttpOnly flags
  - Server version disclosure in response headers

Scan submission through the API is rate limited per client IP using
token bucket, fixed window, or sliding window strategies, optionally
adapting limits to observed system load.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
