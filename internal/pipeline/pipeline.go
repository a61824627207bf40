// Package pipeline implements the ingestion and curation stages: dedup,
// date resolution, date filtering, relevance analysis, score filtering,
// content enhancement, and the orchestrator that sequences them.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/config"
	"github.com/ace26597/News-Agent/internal/cost"
	"github.com/ace26597/News-Agent/internal/metadata"
	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/provider"
)

// Pipeline orchestrates a full research run: collection fan-out, dedup,
// date cascade, relevance analysis, filtering, and enhancement. It owns
// every goroutine spawned for the fan-out and the parallel stages, and all
// RunStats mutation happens on its goroutine.
type Pipeline struct {
	cfg        *config.Config
	domains    config.DomainSets
	dispatcher *provider.Dispatcher
	resolver   *DateResolver
	analyzer   *Analyzer
	recorder   metadata.Recorder
	costCalc   *cost.Calculator

	// recording tracks the fire-and-forget run-record writes so callers
	// can acknowledge persistence before process exit.
	recording sync.WaitGroup
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	domains config.DomainSets,
	dispatcher *provider.Dispatcher,
	resolver *DateResolver,
	analyzer *Analyzer,
	recorder metadata.Recorder,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		domains:    domains,
		dispatcher: dispatcher,
		resolver:   resolver,
		analyzer:   analyzer,
		recorder:   recorder,
		costCalc:   cost.NewCalculator(cost.DefaultRates()),
	}
}

// Run executes the full pipeline for one query. Provider and per-article
// failures never fail the run; an invalid query, missing credentials, or an
// internal invariant violation does. On cancellation the articles that passed
// every completed stage are returned (none when collection itself was
// interrupted), along with stats whose remaining phases are marked skipped.
func (p *Pipeline) Run(ctx context.Context, q *model.Query) ([]model.Article, *model.RunStats, error) {
	log := zap.L().With(zap.Strings("keywords", q.AllKeywords()), zap.String("mode", string(q.Mode)))
	log.Info("pipeline: starting research run")

	stats := &model.RunStats{
		State:        model.StateInit,
		ByProvider:   make(map[model.Source]*model.ProviderStats),
		ArticleTypes: make(map[string]int),
	}
	runID := uuid.New().String()
	runStart := time.Now()

	if err := q.Validate(); err != nil {
		stats.State = model.StateFailed
		return nil, stats, err
	}
	if err := p.cfg.ValidateProviders(q.Providers); err != nil {
		stats.State = model.StateFailed
		return nil, stats, err
	}

	trackPhase := func(name string, fn func() error) {
		start := time.Now()
		err := fn()
		timing := model.PhaseTiming{Name: name, Elapsed: time.Since(start).Seconds()}
		if err != nil {
			timing.Error = err.Error()
			stats.Errors = append(stats.Errors, err.Error())
			log.Error("pipeline: phase failed", zap.String("phase", name), zap.Error(err))
		} else {
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Float64("elapsed_secs", timing.Elapsed),
			)
		}
		stats.Phases = append(stats.Phases, timing)
	}

	skipRemaining := func(names ...string) {
		for _, name := range names {
			stats.Phases = append(stats.Phases, model.PhaseTiming{Name: name, Skipped: true})
		}
	}

	finish := func(articles []model.Article, state model.RunState, err error) ([]model.Article, *model.RunStats, error) {
		stats.State = state
		stats.EstimatedUSD = p.estimateCost(stats.Usage)
		p.record(q, runID, stats, time.Since(runStart).Seconds())
		return articles, stats, err
	}

	// ===== Collection (C1 + C2) =====
	stats.State = model.StateCollecting
	var collected *provider.CollectResult
	trackPhase("collect", func() error {
		strategies := provider.GenerateStrategies(q, p.domains)
		collected = p.dispatcher.Collect(ctx, q, strategies)
		stats.Strategies = collected.Outcomes
		for source, ps := range collected.ByProvider {
			stats.ByProvider[source] = ps
		}
		collected.Articles, stats.ModeFiltered = FilterByMode(collected.Articles, q.AllKeywords(), q.Mode)
		stats.Collected = len(collected.Articles)
		return nil
	})
	articles := collected.Articles
	if ctx.Err() != nil {
		skipRemaining("dedup", "resolve_dates", "filter_dates", "analyze", "filter_scores", "enhance")
		return finish(nil, model.StateCancelled, nil)
	}

	// ===== Dedup (C3) =====
	stats.State = model.StateDeduping
	trackPhase("dedup", func() error {
		result := Deduplicate(articles, p.cfg.Pipeline.SimilarityThreshold)
		articles = result.Kept
		stats.Unique = len(result.Kept)
		stats.DuplicatesRemoved = result.Removed
		stats.DuplicateGroups = result.DuplicateGroups
		p.attributeDedup(stats, articles)
		return nil
	})
	if ctx.Err() != nil {
		skipRemaining("resolve_dates", "filter_dates", "analyze", "filter_scores", "enhance")
		return finish(articles, model.StateCancelled, nil)
	}

	// ===== Date resolution (C4) =====
	stats.State = model.StateResolvingDates
	trackPhase("resolve_dates", func() error {
		var dateStats DateStats
		articles, dateStats = p.resolver.ResolveDates(ctx, articles)
		stats.WithDates = dateStats.WithDates
		stats.WithoutDates = dateStats.WithoutDates
		stats.ModelExtracted = dateStats.ModelExtracted
		stats.Usage.Add(dateStats.Usage)
		return nil
	})
	if ctx.Err() != nil {
		skipRemaining("filter_dates", "analyze", "filter_scores", "enhance")
		return finish(articles, model.StateCancelled, nil)
	}

	// ===== Date window filter (C5) =====
	stats.State = model.StateFilteringDates
	trackPhase("filter_dates", func() error {
		var filterStats DateFilterStats
		articles, filterStats = FilterByDate(articles, q.StartDate, q.EndDate)
		stats.InRange = filterStats.InRange
		stats.OutOfRange = filterStats.OutOfRange
		stats.ModelRescued = filterStats.ModelRescued
		p.attributeInRange(stats, articles)
		return nil
	})
	if ctx.Err() != nil {
		skipRemaining("analyze", "filter_scores", "enhance")
		return finish(articles, model.StateCancelled, nil)
	}

	// ===== Relevance analysis (C6) =====
	stats.State = model.StateAnalyzing
	trackPhase("analyze", func() error {
		var relStats RelevanceStats
		articles, relStats = p.analyzer.AnalyzeRelevance(ctx, articles, q.AllKeywords(), q.Mode, q.AlertName)
		stats.Analyzed = relStats.Analyzed
		stats.AnalysisFails = relStats.Failed
		stats.Usage.Add(relStats.Usage)
		for _, a := range articles {
			if a.ArticleType != "" {
				stats.ArticleTypes[a.ArticleType]++
			}
		}
		return nil
	})
	if ctx.Err() != nil {
		skipRemaining("filter_scores", "enhance")
		return finish(articles, model.StateCancelled, nil)
	}

	// ===== Score filter (C7) =====
	stats.State = model.StateFilteringScores
	minScore := q.MinScore
	if minScore <= 0 {
		minScore = p.cfg.Pipeline.MinScore
	}
	trackPhase("filter_scores", func() error {
		var scoreStats ScoreFilterStats
		articles, scoreStats = FilterByScore(articles, minScore)
		stats.Kept = scoreStats.Kept
		stats.Filtered = scoreStats.Filtered
		stats.ScoreMin = scoreStats.ScoreMin
		stats.ScoreMax = scoreStats.ScoreMax
		stats.ScoreAvg = scoreStats.ScoreAvg
		stats.Band80Plus = scoreStats.Band80Plus
		stats.Band60to79 = scoreStats.Band60to79
		stats.Band40to59 = scoreStats.Band40to59
		stats.BandBelow = scoreStats.BandBelow
		p.attributeKept(stats, articles)
		return nil
	})
	if ctx.Err() != nil {
		skipRemaining("enhance")
		return finish(articles, model.StateCancelled, nil)
	}

	// ===== Content enhancement (C8) =====
	stats.State = model.StateEnhancing
	trackPhase("enhance", func() error {
		articles = EnhanceContent(articles, q.AllKeywords())
		return nil
	})

	// Final ordering: score desc, resolved date desc, source asc.
	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].RelevanceScore != articles[j].RelevanceScore {
			return articles[i].RelevanceScore > articles[j].RelevanceScore
		}
		if !articles[i].ResolvedDate.Equal(articles[j].ResolvedDate) {
			return articles[i].ResolvedDate.After(articles[j].ResolvedDate)
		}
		return articles[i].Source < articles[j].Source
	})

	if err := stats.CheckConsistency(); err != nil {
		log.Error("pipeline: counter invariant violated", zap.Error(err))
		arts, st, _ := finish(articles, model.StateFailed, nil)
		return arts, st, eris.Wrap(err, "pipeline: run failed")
	}

	log.Info("pipeline: run complete",
		zap.String("run_id", runID),
		zap.Int("collected", stats.Collected),
		zap.Int("unique", stats.Unique),
		zap.Int("in_range", stats.InRange),
		zap.Int("kept", stats.Kept),
		zap.Float64("estimated_cost_usd", p.estimateCost(stats.Usage)),
	)
	return finish(articles, model.StateDone, nil)
}

// Wait blocks until every fire-and-forget run-record write has been
// acknowledged. Call before process exit.
func (p *Pipeline) Wait() {
	p.recording.Wait()
}

// record hands the run record to the metadata recorder without blocking the
// caller's return.
func (p *Pipeline) record(q *model.Query, runID string, stats *model.RunStats, elapsed float64) {
	if p.recorder == nil {
		return
	}

	rec := &model.RunRecord{
		ID:              runID,
		Timestamp:       time.Now().UTC(),
		AlertName:       q.AlertName,
		AlertType:       q.AlertType,
		User:            q.User,
		PrimaryKeywords: q.PrimaryKeywords,
		AliasKeywords:   q.AliasKeywords,
		AllKeywords:     q.AllKeywords(),
		Mode:            q.Mode,
		StartDate:       q.StartDate,
		EndDate:         q.EndDate,
		Providers:       q.Providers,
		Stats:           *stats,
		Successful:      stats.State == model.StateDone,
		Elapsed:         elapsed,
	}

	p.recording.Add(1)
	go func() {
		defer p.recording.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := p.recorder.Record(ctx, rec); err != nil {
			zap.L().Warn("pipeline: failed to record run metadata",
				zap.String("run_id", rec.ID),
				zap.Error(err),
			)
		}
	}()
}

func (p *Pipeline) estimateCost(usage model.TokenUsage) float64 {
	modelName := p.cfg.LLM.OpenAI.MainModel
	if p.cfg.LLM.Backend == "anthropic" {
		modelName = p.cfg.LLM.Anthropic.MainModel
	}
	return p.costCalc.Chat(modelName, usage.InputTokens, usage.OutputTokens)
}

// strategyKey joins provider and strategy name; strategy names repeat
// across providers.
type strategyKey struct {
	provider model.Source
	strategy string
}

func outcomeIndex(stats *model.RunStats) map[strategyKey]*model.StrategyOutcome {
	idx := make(map[strategyKey]*model.StrategyOutcome, len(stats.Strategies))
	for i := range stats.Strategies {
		o := &stats.Strategies[i]
		idx[strategyKey{o.Provider, o.Strategy}] = o
	}
	return idx
}

// attributeDedup records per-provider and per-strategy survivor counts
// after title dedup. An article surviving every dedup tier is that
// strategy's unique contribution.
func (p *Pipeline) attributeDedup(stats *model.RunStats, articles []model.Article) {
	idx := outcomeIndex(stats)
	perProvider := make(map[model.Source]int)
	perStrategy := make(map[strategyKey]int)
	for _, a := range articles {
		perProvider[a.Source]++
		perStrategy[strategyKey{a.Source, a.Strategy}]++
	}
	for source, ps := range stats.ByProvider {
		ps.AfterDedup = perProvider[source]
		ps.UniqueContribution = perProvider[source]
		if ps.Retrieved > 0 {
			ps.DuplicateRate = float64(ps.Retrieved-ps.AfterDedup) / float64(ps.Retrieved) * 100
		}
	}
	for key, n := range perStrategy {
		if o, ok := idx[key]; ok {
			o.UniqueContribution = n
		}
	}
}

// attributeInRange records per-strategy counts surviving the date filter.
func (p *Pipeline) attributeInRange(stats *model.RunStats, articles []model.Article) {
	idx := outcomeIndex(stats)
	for _, a := range articles {
		if o, ok := idx[strategyKey{a.Source, a.Strategy}]; ok {
			o.InRange++
		}
	}
}

// attributeKept records final keeps, score bands, and average scores per
// strategy and per provider.
func (p *Pipeline) attributeKept(stats *model.RunStats, kept []model.Article) {
	idx := outcomeIndex(stats)
	scoreSums := make(map[strategyKey]int)
	providerSums := make(map[model.Source]int)
	providerCounts := make(map[model.Source]int)

	for _, a := range kept {
		key := strategyKey{a.Source, a.Strategy}
		o, ok := idx[key]
		if !ok {
			continue
		}
		o.FinalKept++
		scoreSums[key] += a.RelevanceScore
		providerSums[a.Source] += a.RelevanceScore
		providerCounts[a.Source]++

		switch {
		case a.RelevanceScore >= 80:
			o.ScoreHigh++
		case a.RelevanceScore >= 60:
			o.ScoreMedium++
		default:
			o.ScoreLow++
		}
	}

	for key, o := range idx {
		if o.FinalKept > 0 {
			o.AvgScore = float64(scoreSums[key]) / float64(o.FinalKept)
		}
	}
	for source, ps := range stats.ByProvider {
		ps.FinalKept = providerCounts[source]
		if providerCounts[source] > 0 {
			ps.AvgScore = float64(providerSums[source]) / float64(providerCounts[source])
		}
	}
}
