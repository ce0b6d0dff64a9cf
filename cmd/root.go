package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coc-switcher/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "coc-switcher",
	Short: "Convert supplier shipment paperwork into government conformity certificates",
	Long:  "Extracts supplier conformity certificates and packing slips, merges manual data, validates the result and renders the government-format COC document.",
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
