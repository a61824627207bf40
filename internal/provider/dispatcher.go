package provider

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ace26597/News-Agent/internal/model"
)

// Dispatcher fans strategies out across providers. Distinct providers run
// in parallel; strategies within one provider run sequentially so the
// adapter's rate discipline holds.
type Dispatcher struct {
	searchers  map[model.Source]Searcher
	timeout    time.Duration
	maxResults map[model.Source]int
}

// NewDispatcher creates a dispatcher over the given searchers. timeout
// bounds each strategy call; maxResults caps each provider's per-strategy
// result count.
func NewDispatcher(searchers []Searcher, timeout time.Duration, maxResults map[model.Source]int) *Dispatcher {
	bySource := make(map[model.Source]Searcher, len(searchers))
	for _, s := range searchers {
		bySource[s.Source()] = s
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{searchers: bySource, timeout: timeout, maxResults: maxResults}
}

// CollectResult aggregates a full fan-out: the merged article list plus
// per-strategy and per-provider attribution for the run record.
type CollectResult struct {
	Articles   []model.Article
	Outcomes   []model.StrategyOutcome
	ByProvider map[model.Source]*model.ProviderStats
}

// providerResult is one provider's sequential strategy sweep.
type providerResult struct {
	source   model.Source
	articles []model.Article
	outcomes []model.StrategyOutcome
	elapsed  float64
}

// Collect executes every strategy for the query's enabled providers and
// merges the results. Provider and strategy failures are recorded in the
// outcome rows and never abort the fan-out. The merged order is canonical
// provider order, then strategy order, for reproducibility.
func (d *Dispatcher) Collect(ctx context.Context, q *model.Query, strategies map[model.Source][]model.Strategy) *CollectResult {
	var mu sync.Mutex
	results := make(map[model.Source]*providerResult, len(strategies))

	g, gCtx := errgroup.WithContext(ctx)
	for _, source := range q.Providers {
		searcher, ok := d.searchers[source]
		if !ok {
			zap.L().Warn("dispatcher: no searcher registered", zap.String("provider", string(source)))
			continue
		}
		variants := strategies[source]
		if len(variants) == 0 {
			continue
		}

		g.Go(func() error {
			pr := d.runProvider(gCtx, searcher, q, variants)
			mu.Lock()
			results[source] = pr
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return d.merge(q, results)
}

// runProvider executes one provider's strategies in declared order,
// deduplicating URLs within and across its own strategies.
func (d *Dispatcher) runProvider(ctx context.Context, searcher Searcher, q *model.Query, variants []model.Strategy) *providerResult {
	source := searcher.Source()
	pr := &providerResult{source: source}
	seenURL := make(map[string]struct{})

	for _, strategy := range variants {
		outcome := model.StrategyOutcome{Provider: source, Strategy: strategy.Name}

		req := model.SearchRequest{
			Keywords:   q.AllKeywords(),
			StartDate:  q.StartDate,
			EndDate:    q.EndDate,
			MaxResults: d.maxResults[source],
			Mode:       q.Mode,
			Strategy:   strategy,
		}

		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		start := time.Now()
		articles, err := searcher.Search(callCtx, req)
		cancel()
		outcome.Elapsed = time.Since(start).Seconds()
		pr.elapsed += outcome.Elapsed

		if err != nil {
			outcome.Error = err.Error()
			zap.L().Warn("dispatcher: strategy failed",
				zap.String("provider", string(source)),
				zap.String("strategy", strategy.Name),
				zap.Error(err),
			)
			pr.outcomes = append(pr.outcomes, outcome)
			continue
		}

		outcome.Retrieved = len(articles)

		// URL dedup within the strategy; articles without a URL are
		// always unique.
		inStrategy := make(map[string]struct{}, len(articles))
		afterWithin := articles[:0]
		for _, a := range articles {
			if a.URL != "" {
				if _, dup := inStrategy[a.URL]; dup {
					continue
				}
				inStrategy[a.URL] = struct{}{}
			}
			afterWithin = append(afterWithin, a)
		}
		outcome.AfterDedupWithinStrategy = len(afterWithin)

		// URL dedup across this provider's earlier strategies; the first
		// observed strategy wins and later duplicates count against the
		// later strategy.
		kept := 0
		for _, a := range afterWithin {
			if a.URL != "" {
				if _, dup := seenURL[a.URL]; dup {
					continue
				}
				seenURL[a.URL] = struct{}{}
			}
			pr.articles = append(pr.articles, a)
			kept++
		}
		outcome.AfterDedupCrossStrategy = kept

		pr.outcomes = append(pr.outcomes, outcome)
	}

	return pr
}

// merge combines provider results in canonical order, collapsing URLs that
// multiple providers returned (first observed provider wins) and tagging
// the survivor counts back onto each strategy outcome.
func (d *Dispatcher) merge(q *model.Query, results map[model.Source]*providerResult) *CollectResult {
	out := &CollectResult{
		ByProvider: make(map[model.Source]*model.ProviderStats),
	}

	seenURL := make(map[string]struct{})
	for _, source := range model.AllSources() {
		pr, ok := results[source]
		if !ok {
			continue
		}

		stats := &model.ProviderStats{Provider: source, Elapsed: pr.elapsed}
		crossProviderKept := make(map[string]int, len(pr.outcomes))

		for _, a := range pr.articles {
			if a.URL != "" {
				if _, dup := seenURL[a.URL]; dup {
					continue
				}
				seenURL[a.URL] = struct{}{}
			}
			out.Articles = append(out.Articles, a)
			crossProviderKept[a.Strategy]++
		}

		for i := range pr.outcomes {
			o := &pr.outcomes[i]
			o.AfterDedupCrossProvider = crossProviderKept[o.Strategy]
			stats.Retrieved += o.Retrieved
			stats.Strategies = append(stats.Strategies, o.Strategy)
			out.Outcomes = append(out.Outcomes, *o)
		}

		out.ByProvider[source] = stats
	}

	return out
}
