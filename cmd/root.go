package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heyimsteve/nichescout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nichescout",
	Short: "Evidence-driven niche opportunity research",
	Long:  "Collects complaint and spending evidence from community, micro and web sources, validates grounded opportunity candidates against it, and ranks them into a report.",
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
