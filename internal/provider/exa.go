package provider

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/resilience"
	"github.com/ace26597/News-Agent/pkg/exa"
)

// ExaSearcher adapts the Exa search-and-contents endpoint. Strategy variants
// differ by domain allow-list and keyword/neural mode; result dates come
// from provider metadata and are often missing.
type ExaSearcher struct {
	client      exa.Client
	maxAttempts int
}

// NewExaSearcher creates the Exa adapter.
func NewExaSearcher(client exa.Client, maxAttempts int) *ExaSearcher {
	return &ExaSearcher{client: client, maxAttempts: maxAttempts}
}

// Source implements Searcher.
func (s *ExaSearcher) Source() model.Source { return model.SourceExa }

// Search implements Searcher.
func (s *ExaSearcher) Search(ctx context.Context, req model.SearchRequest) ([]model.Article, error) {
	searchType := "keyword"
	if req.Strategy.Neural {
		searchType = "neural"
	}

	apiReq := exa.SearchRequest{
		Query:          strings.Join(req.Keywords, " OR "),
		Type:           searchType,
		IncludeDomains: req.Strategy.Domains,
		NumResults:     req.MaxResults,
		StartPublished: req.StartDate.Format("2006-01-02"),
		EndPublished:   req.EndDate.Format("2006-01-02"),
	}

	cfg := retryConfig(model.SourceExa, req.Strategy.Name, s.maxAttempts)
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*exa.SearchResponse, error) {
		r, searchErr := s.client.Search(ctx, apiReq)
		return r, classifyStatus(searchErr)
	})
	if err != nil {
		return nil, resilience.NewProviderError(model.SourceExa, req.Strategy.Name, err)
	}

	articles := make([]model.Article, 0, len(resp.Results))
	for _, r := range resp.Results {
		articles = append(articles, model.Article{
			ID:       model.Fingerprint(r.URL, r.Title, model.SourceExa),
			Title:    r.Title,
			Content:  clampContent(r.Text),
			URL:      r.URL,
			Source:   model.SourceExa,
			Strategy: req.Strategy.Name,
			Authors:  r.Author,
			RawDate:  r.PublishedDate,
		})
	}

	zap.L().Debug("exa: search complete",
		zap.String("strategy", req.Strategy.Name),
		zap.String("type", searchType),
		zap.Int("articles", len(articles)),
	)
	return articles, nil
}
