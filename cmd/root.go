package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mobilitylabs/ridewash/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ridewash",
	Short: "Bike-share data corruption and LLM-assisted repair",
	Long:  "Injects synthetic data-entry errors into clean ride tables, repairs them through a local language model, and scores repair quality against ground truth.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
