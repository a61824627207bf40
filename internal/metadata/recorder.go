// Package metadata persists one wide row per pipeline run for strategy
// effectiveness analysis, behind interchangeable csv, sqlite, and postgres
// sinks.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ace26597/News-Agent/internal/model"
)

// Recorder appends run records to an append-only sink. Implementations must
// be safe for concurrent use; a missing field serializes as empty.
type Recorder interface {
	Record(ctx context.Context, rec *model.RunRecord) error
	Close() error
}

// RowReader reads recent run rows back as column-keyed maps for
// effectiveness analysis. Every bundled sink implements it.
type RowReader interface {
	RecentRows(n int) ([]map[string]string, error)
}

// Open creates the recorder selected by driver: "csv" (default), "sqlite",
// or "postgres".
func Open(driver, path, databaseURL string) (Recorder, error) {
	switch driver {
	case "", "csv":
		return NewCSVRecorder(path)
	case "sqlite":
		return NewSQLiteRecorder(path)
	case "postgres":
		return NewPostgresRecorder(databaseURL)
	default:
		return nil, eris.Errorf("metadata: unknown driver %q", driver)
	}
}

// trackedProviders fixes the per-provider column blocks; absent providers
// get zero-valued columns so rows stay aligned.
var trackedProviders = []model.Source{
	model.SourcePubMed, model.SourceExa, model.SourceTavily, model.SourceNewsAPI,
}

// columns is the canonical header, in order.
func columns() []string {
	cols := []string{
		"run_id", "timestamp", "alert_name", "alert_type", "user",
		"primary_keywords", "alias_keywords", "all_keywords", "search_type",
		"start_date", "end_date",
		"providers_used", "num_providers",
		"total_collected", "total_unique_after_dedup", "total_duplicates_removed",
		"duplicate_groups", "duplicate_rate",
		"articles_with_dates", "articles_without_dates", "model_extracted_dates",
		"articles_in_range", "articles_out_of_range", "model_rescued",
		"articles_analyzed", "analysis_failures",
		"relevance_high_80plus", "relevance_medium_60_79", "relevance_low_40_59", "relevance_below_40",
		"articles_final_kept", "avg_relevance_score",
		"article_types_json",
	}
	for _, p := range trackedProviders {
		name := string(p)
		cols = append(cols,
			name+"_retrieved", name+"_after_dedup", name+"_strategies",
			name+"_unique_contribution", name+"_duplicate_rate",
			name+"_avg_relevance", name+"_final_kept", name+"_elapsed",
		)
	}
	cols = append(cols,
		"strategy_details_json",
		"input_tokens", "output_tokens", "estimated_cost_usd",
		"phase_timings_json",
		"total_elapsed", "workflow_successful", "errors",
	)
	return cols
}

// row flattens a RunRecord into the column order.
func row(rec *model.RunRecord) []string {
	s := &rec.Stats

	dupRate := 0.0
	if s.Collected > 0 {
		dupRate = float64(s.DuplicatesRemoved) / float64(s.Collected) * 100
	}

	providers := make([]string, 0, len(rec.Providers))
	for _, p := range rec.Providers {
		providers = append(providers, string(p))
	}

	out := []string{
		rec.ID,
		rec.Timestamp.Format("2006-01-02T15:04:05Z"),
		rec.AlertName,
		rec.AlertType,
		rec.User,
		strings.Join(rec.PrimaryKeywords, ", "),
		strings.Join(rec.AliasKeywords, ", "),
		strings.Join(rec.AllKeywords, ", "),
		string(rec.Mode),
		rec.StartDate.Format("2006-01-02"),
		rec.EndDate.Format("2006-01-02"),
		strings.Join(providers, ", "),
		fmt.Sprint(len(rec.Providers)),
		fmt.Sprint(s.Collected),
		fmt.Sprint(s.Unique),
		fmt.Sprint(s.DuplicatesRemoved),
		fmt.Sprint(s.DuplicateGroups),
		fmt.Sprintf("%.2f", dupRate),
		fmt.Sprint(s.WithDates),
		fmt.Sprint(s.WithoutDates),
		fmt.Sprint(s.ModelExtracted),
		fmt.Sprint(s.InRange),
		fmt.Sprint(s.OutOfRange),
		fmt.Sprint(s.ModelRescued),
		fmt.Sprint(s.Analyzed),
		fmt.Sprint(s.AnalysisFails),
		fmt.Sprint(s.Band80Plus),
		fmt.Sprint(s.Band60to79),
		fmt.Sprint(s.Band40to59),
		fmt.Sprint(s.BandBelow),
		fmt.Sprint(s.Kept),
		fmt.Sprintf("%.2f", s.ScoreAvg),
		mustJSON(s.ArticleTypes),
	}

	for _, p := range trackedProviders {
		ps, ok := s.ByProvider[p]
		if !ok {
			out = append(out, "0", "0", "", "0", "0.00", "0.00", "0", "0.00")
			continue
		}
		out = append(out,
			fmt.Sprint(ps.Retrieved),
			fmt.Sprint(ps.AfterDedup),
			strings.Join(ps.Strategies, ", "),
			fmt.Sprint(ps.UniqueContribution),
			fmt.Sprintf("%.2f", ps.DuplicateRate),
			fmt.Sprintf("%.2f", ps.AvgScore),
			fmt.Sprint(ps.FinalKept),
			fmt.Sprintf("%.2f", ps.Elapsed),
		)
	}

	out = append(out,
		mustJSON(s.Strategies),
		fmt.Sprint(s.Usage.InputTokens),
		fmt.Sprint(s.Usage.OutputTokens),
		fmt.Sprintf("%.4f", s.EstimatedUSD),
		mustJSON(s.Phases),
		fmt.Sprintf("%.2f", rec.Elapsed),
		fmt.Sprint(rec.Successful),
		strings.Join(s.Errors, "; "),
	)
	return out
}

// rowMap flattens a RunRecord into column-keyed form, matching the csv
// header. The sql sinks use it to rebuild analysis rows from their stored
// record blobs.
func rowMap(rec *model.RunRecord) map[string]string {
	cols := columns()
	vals := row(rec)
	m := make(map[string]string, len(cols))
	for i, col := range cols {
		m[col] = vals[i]
	}
	return m
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
