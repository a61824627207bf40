package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// SearchMode selects how keywords must appear in a result for it to count.
type SearchMode string

const (
	// ModeStandard keeps articles with any keyword in title or content.
	ModeStandard SearchMode = "standard"
	// ModeTitleOnly keeps articles with a keyword in the title.
	ModeTitleOnly SearchMode = "title"
	// ModeCooccurrence keeps articles with two or more distinct keywords
	// in the content.
	ModeCooccurrence SearchMode = "cooccurrence"
)

// ValidMode reports whether m is a known search mode.
func ValidMode(m SearchMode) bool {
	switch m {
	case ModeStandard, ModeTitleOnly, ModeCooccurrence:
		return true
	}
	return false
}

// Query is the caller's request to the orchestrator. It is immutable for the
// duration of a run.
type Query struct {
	PrimaryKeywords []string   `json:"primary_keywords"`
	AliasKeywords   []string   `json:"alias_keywords,omitempty"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	Mode            SearchMode `json:"mode"`
	Providers       []Source   `json:"providers"`

	// MinScore overrides the configured relevance threshold when > 0.
	MinScore int `json:"min_score,omitempty"`

	// Alert identity, carried through to the run record.
	AlertName string `json:"alert_name,omitempty"`
	AlertType string `json:"alert_type,omitempty"`
	User      string `json:"user,omitempty"`
}

var keywordFolder = cases.Fold()

// AllKeywords returns the union of primary and alias keywords, order
// preserved, duplicates collapsed case-insensitively.
func (q *Query) AllKeywords() []string {
	seen := make(map[string]struct{}, len(q.PrimaryKeywords)+len(q.AliasKeywords))
	var out []string
	for _, kw := range append(append([]string{}, q.PrimaryKeywords...), q.AliasKeywords...) {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		folded := keywordFolder.String(kw)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// Validate checks the query before any provider call is made.
func (q *Query) Validate() error {
	if len(q.AllKeywords()) == 0 {
		return eris.New("query: at least one keyword is required")
	}
	if q.StartDate.IsZero() || q.EndDate.IsZero() {
		return eris.New("query: start and end dates are required")
	}
	if q.EndDate.Before(q.StartDate) {
		return eris.New("query: start date must not be after end date")
	}
	if q.Mode == "" {
		q.Mode = ModeStandard
	}
	if !ValidMode(q.Mode) {
		return eris.Errorf("query: unknown search mode %q", q.Mode)
	}
	if len(q.Providers) == 0 {
		q.Providers = AllSources()
	}
	for _, p := range q.Providers {
		if !ValidSource(p) {
			return eris.Errorf("query: unknown provider %q", p)
		}
	}
	return nil
}

// SearchRequest is the normalized request handed to a provider adapter for a
// single strategy execution.
type SearchRequest struct {
	Keywords   []string
	StartDate  time.Time
	EndDate    time.Time
	MaxResults int
	Mode       SearchMode

	// Strategy tags every returned article and selects provider-specific
	// behavior (domain filter, neural vs keyword mode).
	Strategy Strategy
}

// Strategy is a named query variant executed against a single provider.
type Strategy struct {
	Name     string   `json:"name"`
	Provider Source   `json:"provider"`
	Domains  []string `json:"domains,omitempty"`
	// Neural selects the provider's semantic search mode where supported.
	Neural bool `json:"neural,omitempty"`
	// Expanded marks the broadened-keyword variant.
	Expanded bool `json:"expanded,omitempty"`
}
