package provider

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/resilience"
	"github.com/ace26597/News-Agent/pkg/tavily"
)

// tavilyExcludedDomains filters aggregation and forum noise from every
// Tavily strategy.
var tavilyExcludedDomains = []string{"wikipedia.org", "reddit.com"}

// TavilySearcher adapts the Tavily search endpoint. Strategy variants
// differ by domain set; results frequently lack dates.
type TavilySearcher struct {
	client      tavily.Client
	maxAttempts int
}

// NewTavilySearcher creates the Tavily adapter.
func NewTavilySearcher(client tavily.Client, maxAttempts int) *TavilySearcher {
	return &TavilySearcher{client: client, maxAttempts: maxAttempts}
}

// Source implements Searcher.
func (s *TavilySearcher) Source() model.Source { return model.SourceTavily }

// Search implements Searcher.
func (s *TavilySearcher) Search(ctx context.Context, req model.SearchRequest) ([]model.Article, error) {
	apiReq := tavily.SearchRequest{
		Query:          strings.Join(req.Keywords, " OR "),
		SearchDepth:    "advanced",
		IncludeDomains: req.Strategy.Domains,
		ExcludeDomains: tavilyExcludedDomains,
		MaxResults:     req.MaxResults,
		Days:           windowDays(req.StartDate, req.EndDate),
	}

	cfg := retryConfig(model.SourceTavily, req.Strategy.Name, s.maxAttempts)
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*tavily.SearchResponse, error) {
		r, searchErr := s.client.Search(ctx, apiReq)
		return r, classifyStatus(searchErr)
	})
	if err != nil {
		return nil, resilience.NewProviderError(model.SourceTavily, req.Strategy.Name, err)
	}

	articles := make([]model.Article, 0, len(resp.Results))
	for _, r := range resp.Results {
		articles = append(articles, model.Article{
			ID:       model.Fingerprint(r.URL, r.Title, model.SourceTavily),
			Title:    r.Title,
			Content:  clampContent(r.Content),
			URL:      r.URL,
			Source:   model.SourceTavily,
			Strategy: req.Strategy.Name,
			RawDate:  r.PublishedDate,
		})
	}

	zap.L().Debug("tavily: search complete",
		zap.String("strategy", req.Strategy.Name),
		zap.Int("articles", len(articles)),
	)
	return articles, nil
}
