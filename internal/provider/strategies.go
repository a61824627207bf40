package provider

import (
	"github.com/ace26597/News-Agent/internal/config"
	"github.com/ace26597/News-Agent/internal/model"
)

// GenerateStrategies produces the per-provider query variants for a run.
// Strategies within a provider execute in the order returned here.
//
// PubMed gets one primary strategy. Exa varies domain filter and
// keyword/neural mode. Tavily varies the domain set. NewsAPI always runs
// both the quoted primary and the unquoted expanded variant; dedup removes
// the overlap between them.
func GenerateStrategies(q *model.Query, domains config.DomainSets) map[model.Source][]model.Strategy {
	strategies := map[model.Source][]model.Strategy{
		model.SourcePubMed: {
			{Name: "primary", Provider: model.SourcePubMed},
		},
		model.SourceExa: {
			{Name: "keyword_curated", Provider: model.SourceExa, Domains: domains.ExaCurated},
			{Name: "neural_curated", Provider: model.SourceExa, Domains: domains.ExaCurated, Neural: true},
			{Name: "neural_open", Provider: model.SourceExa, Neural: true},
		},
		model.SourceTavily: {
			{Name: "news_heavy", Provider: model.SourceTavily, Domains: domains.NewsHeavy},
			{Name: "mixed", Provider: model.SourceTavily, Domains: domains.Mixed},
			{Name: "pharma_heavy", Provider: model.SourceTavily, Domains: domains.PharmaHeavy},
		},
		model.SourceNewsAPI: {
			{Name: "primary", Provider: model.SourceNewsAPI},
			{Name: "expanded", Provider: model.SourceNewsAPI, Expanded: true},
		},
	}

	out := make(map[model.Source][]model.Strategy, len(q.Providers))
	for _, p := range q.Providers {
		if variants, ok := strategies[p]; ok {
			out[p] = variants
		}
	}
	return out
}
