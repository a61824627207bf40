package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/resilience"
	"github.com/ace26597/News-Agent/pkg/newsapi"
)

// NewsAPISearcher adapts the NewsAPI everything endpoint. The primary
// strategy quotes each keyword as a phrase; the expanded variant drops the
// quoting to broaden matching, and dedup removes the overlap.
type NewsAPISearcher struct {
	client         newsapi.Client
	maxAttempts    int
	maxHistoryDays int
}

// NewNewsAPISearcher creates the NewsAPI adapter. maxHistoryDays clamps the
// window start to the plan's historical reach.
func NewNewsAPISearcher(client newsapi.Client, maxAttempts, maxHistoryDays int) *NewsAPISearcher {
	if maxHistoryDays <= 0 {
		maxHistoryDays = 30
	}
	return &NewsAPISearcher{client: client, maxAttempts: maxAttempts, maxHistoryDays: maxHistoryDays}
}

// Source implements Searcher.
func (s *NewsAPISearcher) Source() model.Source { return model.SourceNewsAPI }

// Search implements Searcher.
func (s *NewsAPISearcher) Search(ctx context.Context, req model.SearchRequest) ([]model.Article, error) {
	from := req.StartDate
	if earliest := time.Now().UTC().AddDate(0, 0, -s.maxHistoryDays); from.Before(earliest) {
		from = earliest
	}

	apiReq := newsapi.EverythingRequest{
		Query:    buildNewsQuery(req.Keywords, req.Strategy.Expanded),
		From:     from,
		To:       req.EndDate,
		PageSize: req.MaxResults,
	}

	cfg := retryConfig(model.SourceNewsAPI, req.Strategy.Name, s.maxAttempts)
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*newsapi.EverythingResponse, error) {
		r, searchErr := s.client.Everything(ctx, apiReq)
		return r, classifyStatus(searchErr)
	})
	if err != nil {
		return nil, resilience.NewProviderError(model.SourceNewsAPI, req.Strategy.Name, err)
	}

	articles := make([]model.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		articles = append(articles, model.Article{
			ID:       model.Fingerprint(a.URL, a.Title, model.SourceNewsAPI),
			Title:    a.Title,
			Content:  clampContent(joinContent(a.Description, a.Content)),
			URL:      a.URL,
			Source:   model.SourceNewsAPI,
			Strategy: req.Strategy.Name,
			Authors:  a.Author,
			RawDate:  a.PublishedAt,
		})
	}

	zap.L().Debug("newsapi: search complete",
		zap.String("strategy", req.Strategy.Name),
		zap.Int("total_results", resp.TotalResults),
		zap.Int("articles", len(articles)),
	)
	return articles, nil
}

func buildNewsQuery(keywords []string, expanded bool) string {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if expanded {
			parts = append(parts, kw)
		} else {
			parts = append(parts, fmt.Sprintf("%q", kw))
		}
	}
	return strings.Join(parts, " OR ")
}

// joinContent concatenates the provider's description and body when both
// exist.
func joinContent(description, content string) string {
	switch {
	case description == "":
		return content
	case content == "":
		return description
	default:
		return description + "\n\n" + content
	}
}
