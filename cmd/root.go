package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innsight-labs/innsight/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "innsight",
	Short: "Travel accommodation recommendation pipeline",
	Long:  "Parses Chinese travel queries, tiers accommodations by isochrone travel time around the main attraction, and ranks them by tier, rating, and amenities.",
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
