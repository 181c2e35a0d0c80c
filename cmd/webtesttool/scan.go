package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agobrik/webtesttool/pkg/scanner"
	"github.com/agobrik/webtesttool/pkg/storage"
	"github.com/agobrik/webtesttool/pkg/telemetry/logging"
)

var scanFlags struct {
	format string
}

var scanCmd = &cobra.Command{
	Use:   "scan <target-url>",
	Short: "Scan a single target and print the findings",
	Long: `Scan a single target URL from the command line.

The scan runs the same passive checks as the API server but keeps the
result in memory and prints it instead of persisting it.

Examples:
  # Scan a target and print a text report
  webtesttool scan https://example.com

  # Emit the full scan result as JSON
  webtesttool scan https://example.com --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanFlags.format, "format", "text", "output format: text, json")
}

func runScan(cmd *cobra.Command, args []string) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{Level: level, Format: "text", Writer: os.Stderr})
	if err != nil {
		return err
	}

	sc := scanner.NewScanner(scanner.Config{}, scanner.DefaultChecks(), storage.NewMemoryBackend(), nil, logger)

	scan, err := sc.Scan(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	switch scanFlags.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scan)
	case "text":
		printScanReport(scan)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", scanFlags.format)
	}
}

func printScanReport(scan *storage.ScanResult) {
	fmt.Printf("Target:   %s\n", scan.Target)
	fmt.Printf("Scan ID:  %s\n", scan.ID)
	fmt.Printf("Status:   %s\n", scan.Status)
	fmt.Printf("Duration: %s\n", scan.FinishedAt.Sub(scan.StartedAt).Round(time.Millisecond))
	fmt.Println()

	if len(scan.Findings) == 0 {
		fmt.Println("No findings.")
		return
	}

	fmt.Printf("Findings (%d):\n", len(scan.Findings))
	for _, f := range scan.Findings {
		fmt.Printf("  [%s] %s (%s)\n", f.Severity, f.Title, f.Check)
		if f.Detail != "" {
			fmt.Printf("      %s\n", f.Detail)
		}
	}
}
