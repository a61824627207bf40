package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/config"
	"github.com/ace26597/News-Agent/internal/metadata"
	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/pipeline"
	"github.com/ace26597/News-Agent/internal/provider"
	"github.com/ace26597/News-Agent/pkg/exa"
	"github.com/ace26597/News-Agent/pkg/llm"
	"github.com/ace26597/News-Agent/pkg/newsapi"
	"github.com/ace26597/News-Agent/pkg/pubmed"
	"github.com/ace26597/News-Agent/pkg/tavily"
)

// pipelineEnv bundles the orchestrator with the resources commands must
// release on exit.
type pipelineEnv struct {
	pipeline *pipeline.Pipeline
	recorder metadata.Recorder
}

// Close flushes pending run-record writes and closes the sink.
func (env *pipelineEnv) Close() {
	env.pipeline.Wait()
	if err := env.recorder.Close(); err != nil {
		zap.L().Warn("close metadata recorder", zap.Error(err))
	}
}

// initPipeline wires provider clients, the LLM backend, and the metadata
// sink into an orchestrator from the loaded configuration.
func initPipeline() (*pipelineEnv, error) {
	domains, err := config.LoadDomainSets(cfg.Domains)
	if err != nil {
		return nil, eris.Wrap(err, "load domain sets")
	}

	recorder, err := metadata.Open(cfg.Metadata.Driver, cfg.Metadata.Path, cfg.Metadata.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open metadata recorder")
	}

	maxRetries := cfg.Pipeline.MaxRetries

	pubmedClient := pubmed.NewClient(cfg.PubMed.Email,
		pubmed.WithBaseURL(cfg.PubMed.BaseURL),
		pubmed.WithMinInterval(time.Duration(cfg.PubMed.MinIntervalMS)*time.Millisecond),
	)
	exaClient := exa.NewClient(cfg.Exa.Key, exa.WithBaseURL(cfg.Exa.BaseURL))
	tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	newsClient := newsapi.NewClient(cfg.NewsAPI.Key, newsapi.WithBaseURL(cfg.NewsAPI.BaseURL))

	searchers := []provider.Searcher{
		provider.NewPubMedSearcher(pubmedClient, maxRetries),
		provider.NewExaSearcher(exaClient, maxRetries),
		provider.NewTavilySearcher(tavilyClient, maxRetries),
		provider.NewNewsAPISearcher(newsClient, maxRetries, cfg.NewsAPI.MaxHistoryDays),
	}
	dispatcher := provider.NewDispatcher(searchers,
		time.Duration(cfg.Pipeline.ProviderTimeoutSecs)*time.Second,
		map[model.Source]int{
			model.SourcePubMed:  cfg.PubMed.MaxResults,
			model.SourceExa:     cfg.Exa.MaxResults,
			model.SourceTavily:  cfg.Tavily.MaxResults,
			model.SourceNewsAPI: cfg.NewsAPI.MaxResults,
		},
	)

	llmClient, mainModel, dateModel := initLLM()

	resolver := pipeline.NewDateResolver(llmClient, dateModel,
		time.Duration(cfg.Pipeline.DateTimeoutSecs)*time.Second,
		cfg.Pipeline.DateConcurrency,
	)
	analyzer := pipeline.NewAnalyzer(llmClient, mainModel,
		time.Duration(cfg.Pipeline.RelevanceTimeoutSecs)*time.Second,
		cfg.Pipeline.RelevanceConcurrency,
		time.Duration(cfg.Pipeline.RelevanceDelayMS)*time.Millisecond,
	)

	p := pipeline.New(cfg, domains, dispatcher, resolver, analyzer, recorder)
	return &pipelineEnv{pipeline: p, recorder: recorder}, nil
}

// initLLM selects the chat backend and the main/date model pair.
func initLLM() (llm.Client, string, string) {
	if cfg.LLM.Backend == "anthropic" {
		return llm.NewAnthropicClient(cfg.LLM.Anthropic.Key),
			cfg.LLM.Anthropic.MainModel, cfg.LLM.Anthropic.DateModel
	}
	return llm.NewOpenAIClient(cfg.LLM.OpenAI.Key, llm.WithBaseURL(cfg.LLM.OpenAI.BaseURL)),
		cfg.LLM.OpenAI.MainModel, cfg.LLM.OpenAI.DateModel
}
