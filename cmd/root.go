package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "news-agent",
	Short: "Pharmaceutical news research pipeline",
	Long:  "Fans keyword searches out across PubMed, Exa, Tavily, and NewsAPI, then deduplicates, date-filters, scores with an LLM, and ranks the results.",
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
