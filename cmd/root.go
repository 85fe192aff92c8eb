package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cvrgpt/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cvrgpt",
	Short: "Danish company registry API and chat proxy",
	Long:  "Serves normalized CVR company data (search, profiles, filings, accounts) over REST and a conversational endpoint, backed by fixtures or the live registry.",
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
