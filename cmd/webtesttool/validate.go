package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agobrik/webtesttool/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the server.

The validate command loads the configuration, applies defaults and
environment overrides, and reports every validation problem found.

Examples:
  # Validate the default config
  webtesttool validate

  # Validate a specific file
  webtesttool validate --config /etc/webtesttool/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Configuration invalid (%d problems):\n", len(verr.Errors))
			for _, fe := range verr.Errors {
				fmt.Printf("  %s: %s\n", fe.Field, fe.Message)
			}
			return fmt.Errorf("validation failed")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Configuration valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Limiters: %d\n", len(cfg.Limits))
	fmt.Printf("  Storage backend: %s\n", cfg.Storage.Backend)
	if cfg.Notify.WebhookURL != "" {
		fmt.Println("  Webhook notifications: enabled")
	}
	return nil
}
