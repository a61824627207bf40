package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
)

var (
	searchKeywords  []string
	searchAliases   []string
	searchStart     string
	searchEnd       string
	searchMode      string
	searchProviders []string
	searchMinScore  int
	searchAlertName string
	searchUser      string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one research pipeline pass and print the ranked articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := buildQuery()
		if err != nil {
			return err
		}

		env, err := initPipeline()
		if err != nil {
			return err
		}
		defer env.Close()

		articles, stats, runErr := env.pipeline.Run(cmd.Context(), q)
		if runErr != nil {
			return eris.Wrap(runErr, "pipeline run")
		}

		out := map[string]any{
			"results":        articles,
			"workflow_stats": stats,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "encode results")
		}

		zap.L().Info("search complete",
			zap.Int("collected", stats.Collected),
			zap.Int("kept", stats.Kept),
		)
		return nil
	},
}

func buildQuery() (*model.Query, error) {
	start, err := time.Parse("2006-01-02", searchStart)
	if err != nil {
		return nil, eris.Errorf("invalid --start %q, want YYYY-MM-DD", searchStart)
	}
	end, err := time.Parse("2006-01-02", searchEnd)
	if err != nil {
		return nil, eris.Errorf("invalid --end %q, want YYYY-MM-DD", searchEnd)
	}

	var providers []model.Source
	for _, p := range searchProviders {
		providers = append(providers, model.Source(strings.ToLower(strings.TrimSpace(p))))
	}

	q := &model.Query{
		PrimaryKeywords: searchKeywords,
		AliasKeywords:   searchAliases,
		StartDate:       start,
		EndDate:         end,
		Mode:            model.SearchMode(searchMode),
		Providers:       providers,
		MinScore:        searchMinScore,
		AlertName:       searchAlertName,
		AlertType:       "cli",
		User:            searchUser,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchKeywords, "keywords", "k", nil, "primary search keywords (required)")
	searchCmd.Flags().StringSliceVar(&searchAliases, "aliases", nil, "alias keywords merged into the search")
	searchCmd.Flags().StringVar(&searchStart, "start", "", "window start, YYYY-MM-DD (required)")
	searchCmd.Flags().StringVar(&searchEnd, "end", "", "window end, YYYY-MM-DD (required)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "standard", "search mode: standard, title, or cooccurrence")
	searchCmd.Flags().StringSliceVar(&searchProviders, "providers", nil, "providers to query (default all): pubmed, exa, tavily, newsapi")
	searchCmd.Flags().IntVar(&searchMinScore, "min-score", 0, "relevance threshold override")
	searchCmd.Flags().StringVar(&searchAlertName, "alert-name", "", "alert name recorded in run metadata")
	searchCmd.Flags().StringVar(&searchUser, "user", "", "user recorded in run metadata")
	_ = searchCmd.MarkFlagRequired("keywords")
	_ = searchCmd.MarkFlagRequired("start")
	_ = searchCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(searchCmd)
}
