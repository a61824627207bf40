package metadata

import (
	"encoding/json"
	"strconv"

	"github.com/ace26597/News-Agent/internal/model"
)

// ProviderPerformance summarizes one provider's effectiveness over recent
// runs.
type ProviderPerformance struct {
	Provider         model.Source
	RunsAnalyzed     int
	TotalRetrieved   int
	TotalKept        int
	AvgRelevance     float64
	EffectivenessPct float64
	AvgPerRun        float64
}

// AnalyzeProviderPerformance aggregates a provider's columns across
// recorded rows.
func AnalyzeProviderPerformance(rows []map[string]string, provider model.Source) ProviderPerformance {
	perf := ProviderPerformance{Provider: provider, RunsAnalyzed: len(rows)}
	if len(rows) == 0 {
		return perf
	}

	name := string(provider)
	var relevanceSum float64
	var relevanceCount int

	for _, r := range rows {
		perf.TotalRetrieved += atoi(r[name+"_retrieved"])
		perf.TotalKept += atoi(r[name+"_final_kept"])
		if rel := atof(r[name+"_avg_relevance"]); rel > 0 {
			relevanceSum += rel
			relevanceCount++
		}
	}

	if relevanceCount > 0 {
		perf.AvgRelevance = relevanceSum / float64(relevanceCount)
	}
	if perf.TotalRetrieved > 0 {
		perf.EffectivenessPct = float64(perf.TotalKept) / float64(perf.TotalRetrieved) * 100
	}
	perf.AvgPerRun = float64(perf.TotalRetrieved) / float64(len(rows))
	return perf
}

// StrategyPerformance summarizes one provider+strategy pair across runs.
type StrategyPerformance struct {
	Provider         model.Source
	Strategy         string
	Occurrences      int
	TotalRetrieved   int
	TotalKept        int
	TotalDuplicates  int
	EffectivenessPct float64
	DuplicatePct     float64
	AvgPerRun        float64
}

// AnalyzeStrategyPerformance unpacks the per-row strategy detail blobs and
// aggregates effectiveness per provider+strategy pair.
func AnalyzeStrategyPerformance(rows []map[string]string) map[string]StrategyPerformance {
	out := make(map[string]StrategyPerformance)

	for _, r := range rows {
		blob := r["strategy_details_json"]
		if blob == "" {
			continue
		}
		var outcomes []model.StrategyOutcome
		if err := json.Unmarshal([]byte(blob), &outcomes); err != nil {
			continue
		}

		for _, o := range outcomes {
			key := string(o.Provider) + "/" + o.Strategy
			perf := out[key]
			perf.Provider = o.Provider
			perf.Strategy = o.Strategy
			perf.Occurrences++
			perf.TotalRetrieved += o.Retrieved
			perf.TotalKept += o.FinalKept
			perf.TotalDuplicates += o.Retrieved - o.AfterDedupCrossProvider
			out[key] = perf
		}
	}

	for key, perf := range out {
		if perf.TotalRetrieved > 0 {
			perf.EffectivenessPct = float64(perf.TotalKept) / float64(perf.TotalRetrieved) * 100
			perf.DuplicatePct = float64(perf.TotalDuplicates) / float64(perf.TotalRetrieved) * 100
		}
		if perf.Occurrences > 0 {
			perf.AvgPerRun = float64(perf.TotalRetrieved) / float64(perf.Occurrences)
		}
		out[key] = perf
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
