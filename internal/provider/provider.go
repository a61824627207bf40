// Package provider contains the search adapters and the strategy
// dispatcher. Each provider implements a single capability: execute one
// strategy and normalize the response onto the common article record.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/resilience"
	"github.com/ace26597/News-Agent/pkg/exa"
	"github.com/ace26597/News-Agent/pkg/newsapi"
	"github.com/ace26597/News-Agent/pkg/pubmed"
	"github.com/ace26597/News-Agent/pkg/tavily"
)

// Searcher executes one strategy against one provider. Implementations are
// stateless beyond their configured credentials and safe to call
// concurrently across providers.
type Searcher interface {
	Source() model.Source
	Search(ctx context.Context, req model.SearchRequest) ([]model.Article, error)
}

// classifyStatus marks retryable provider responses as transient so the
// retry layer fires on 429/5xx but not on other 4xx.
func classifyStatus(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var pubmedErr *pubmed.APIError
	var exaErr *exa.APIError
	var tavilyErr *tavily.APIError
	var newsErr *newsapi.APIError
	switch {
	case errors.As(err, &pubmedErr):
		statusCode = pubmedErr.StatusCode
	case errors.As(err, &exaErr):
		statusCode = exaErr.StatusCode
	case errors.As(err, &tavilyErr):
		statusCode = tavilyErr.StatusCode
	case errors.As(err, &newsErr):
		statusCode = newsErr.StatusCode
	default:
		return err
	}

	if resilience.IsTransientHTTPStatus(statusCode) {
		return resilience.NewTransientError(err, statusCode)
	}
	return err
}

// retryConfig builds the shared provider retry policy.
func retryConfig(source model.Source, strategy string, maxAttempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: maxAttempts,
		Service:     string(source),
		Operation:   strategy,
	}
}

// clampContent bounds provider content fields so a pathological response
// cannot balloon the pipeline.
const maxContentLen = 50000

func clampContent(s string) string {
	if len(s) > maxContentLen {
		return s[:maxContentLen]
	}
	return s
}

// windowDays converts a date window to the whole-day count some providers
// take instead of explicit bounds.
func windowDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days
}
