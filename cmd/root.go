package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "boundary-cli",
	Short: "Geographic boundary vintage historization",
	Long:  "Loads vintages of administrative boundary polygons into PostGIS, matches successive vintages by geometric similarity, and partitions entities into matched, review, removed, and added buckets.",
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
