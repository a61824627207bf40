package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/resilience"
	"github.com/ace26597/News-Agent/pkg/pubmed"
)

// PubMedSearcher adapts the two-step Entrez retrieval to the common search
// capability. PubMed records arrive with a structured publication date.
type PubMedSearcher struct {
	client      pubmed.Client
	maxAttempts int
}

// NewPubMedSearcher creates the PubMed adapter.
func NewPubMedSearcher(client pubmed.Client, maxAttempts int) *PubMedSearcher {
	return &PubMedSearcher{client: client, maxAttempts: maxAttempts}
}

// Source implements Searcher.
func (s *PubMedSearcher) Source() model.Source { return model.SourcePubMed }

// Search implements Searcher.
func (s *PubMedSearcher) Search(ctx context.Context, req model.SearchRequest) ([]model.Article, error) {
	term := buildPubMedTerm(req)

	cfg := retryConfig(model.SourcePubMed, req.Strategy.Name, s.maxAttempts)
	pmids, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]string, error) {
		ids, searchErr := s.client.Search(ctx, term, req.MaxResults)
		return ids, classifyStatus(searchErr)
	})
	if err != nil {
		return nil, resilience.NewProviderError(model.SourcePubMed, req.Strategy.Name, err)
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	records, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]pubmed.Record, error) {
		recs, fetchErr := s.client.Fetch(ctx, pmids)
		return recs, classifyStatus(fetchErr)
	})
	if err != nil {
		return nil, resilience.NewProviderError(model.SourcePubMed, req.Strategy.Name, err)
	}

	articles := make([]model.Article, 0, len(records))
	for _, rec := range records {
		url := "https://pubmed.ncbi.nlm.nih.gov/" + rec.PMID
		articles = append(articles, model.Article{
			ID:       model.Fingerprint(url, rec.Title, model.SourcePubMed),
			Title:    rec.Title,
			Content:  clampContent(rec.Abstract),
			URL:      url,
			Source:   model.SourcePubMed,
			Strategy: req.Strategy.Name,
			Authors:  formatAuthors(rec.Authors),
			RawDate:  pubDateString(rec.PubYear, rec.PubMonth, rec.PubDay),
		})
	}

	zap.L().Debug("pubmed: search complete",
		zap.String("strategy", req.Strategy.Name),
		zap.Int("pmids", len(pmids)),
		zap.Int("articles", len(articles)),
	)
	return articles, nil
}

// buildPubMedTerm builds the Entrez boolean query. Title-only mode narrows
// the field tag; other modes search title and abstract.
func buildPubMedTerm(req model.SearchRequest) string {
	field := "Title/Abstract"
	if req.Mode == model.ModeTitleOnly {
		field = "Title"
	}
	parts := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		parts = append(parts, fmt.Sprintf("%q[%s]", kw, field))
	}
	term := strings.Join(parts, " OR ")
	dateClause := fmt.Sprintf("(%q[Date - Publication] : %q[Date - Publication])",
		req.StartDate.Format("2006/01/02"), req.EndDate.Format("2006/01/02"))
	return fmt.Sprintf("(%s) AND %s", term, dateClause)
}

// formatAuthors renders "Fore Last; ..." for the first three authors with an
// et-al marker beyond that.
func formatAuthors(authors []pubmed.Author) string {
	var parts []string
	for i, a := range authors {
		if i >= 3 {
			break
		}
		name := strings.TrimSpace(a.ForeName + " " + a.LastName)
		if name != "" {
			parts = append(parts, name)
		}
	}
	out := strings.Join(parts, "; ")
	if len(authors) > 3 && out != "" {
		out += " et al."
	}
	return out
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// pubDateString normalizes Entrez Year/Month/Day components to YYYY-MM-DD.
// Missing day defaults to the first of the month; missing month to January.
// Returns "" when the year is absent or unparseable.
func pubDateString(year, month, day string) string {
	y, err := strconv.Atoi(year)
	if err != nil {
		return ""
	}

	m := time.January
	if month != "" {
		if n, numErr := strconv.Atoi(month); numErr == nil && n >= 1 && n <= 12 {
			m = time.Month(n)
		} else if named, ok := monthNames[strings.ToLower(month)[:min(len(month), 3)]]; ok {
			m = named
		}
	}

	d := 1
	if n, dayErr := strconv.Atoi(day); dayErr == nil && n >= 1 && n <= 31 {
		d = n
	}

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
