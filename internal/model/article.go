package model

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Source identifies the provider an article came from.
type Source string

const (
	SourcePubMed  Source = "pubmed"
	SourceExa     Source = "exa"
	SourceTavily  Source = "tavily"
	SourceNewsAPI Source = "newsapi"
)

// AllSources returns every known provider in canonical order.
func AllSources() []Source {
	return []Source{SourcePubMed, SourceExa, SourceTavily, SourceNewsAPI}
}

// ValidSource reports whether s names a known provider.
func ValidSource(s Source) bool {
	switch s {
	case SourcePubMed, SourceExa, SourceTavily, SourceNewsAPI:
		return true
	}
	return false
}

// DateOrigin records which resolver tier produced an article's resolved date.
type DateOrigin string

const (
	DateOriginMetadata DateOrigin = "metadata"
	DateOriginModel    DateOrigin = "model"
	DateOriginRegex    DateOrigin = "regex"
	DateOriginNone     DateOrigin = "none"
)

// Article is the unit of work flowing through the pipeline. It is created by
// a provider adapter, annotated by the date and relevance stages, and either
// discarded by a filter or emitted in the final result list. Each stage owns
// the slice it receives; articles are never shared across goroutines while
// being mutated.
type Article struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	URL      string `json:"url"`
	Source   Source `json:"source"`
	Strategy string `json:"strategy"`
	Authors  string `json:"authors,omitempty"`

	// HighlightedContent is the marked-up copy produced by the content
	// enhancer. Content itself is never mutated in place.
	HighlightedContent string `json:"highlighted_content,omitempty"`

	// RawDate is the provider-supplied date string, verbatim.
	RawDate string `json:"raw_date,omitempty"`
	// ResolvedDate is the year-month-day resolved by the date stage; the
	// zero value together with DateOriginNone marks an absent date.
	ResolvedDate time.Time  `json:"resolved_date,omitempty"`
	DateOrigin   DateOrigin `json:"date_origin"`

	RelevanceScore       int      `json:"relevance_score"`
	RelevanceReason      string   `json:"relevance_reason,omitempty"`
	ArticleType          string   `json:"article_type,omitempty"`
	MentionedKeywords    []string `json:"mentioned_keywords,omitempty"`
	PertinentKeywords    []string `json:"pertinent_keywords,omitempty"`
	ClinicalSignificance string   `json:"clinical_significance,omitempty"`
	RegulatoryImpact     string   `json:"regulatory_impact,omitempty"`
	MarketImpact         string   `json:"market_impact,omitempty"`
	Summary              string   `json:"summary,omitempty"`
}

// HasResolvedDate reports whether the date stage produced a date.
func (a *Article) HasResolvedDate() bool {
	return a.DateOrigin != DateOriginNone && a.DateOrigin != "" && !a.ResolvedDate.IsZero()
}

// Fingerprint derives the stable article id from the URL, falling back to
// title+source when the provider omitted a URL.
func Fingerprint(url, title string, source Source) string {
	h := sha1.New()
	if url != "" {
		h.Write([]byte(url))
	} else {
		h.Write([]byte(title))
		h.Write([]byte("|"))
		h.Write([]byte(source))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
