package pipeline

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ace26597/News-Agent/internal/model"
)

// Highlight markers wrapped around keyword matches. Neutral so any renderer
// can map them to its own emphasis.
const (
	markerOpen  = "«" // «
	markerClose = "»" // »
)

var highlightFolder = cases.Fold()

// EnhanceContent produces the highlighted copy of each article's content,
// wrapping every whole-word match of the search, mentioned, and pertinent
// keywords. Content itself is never mutated; re-running the enhancer on its
// own output is a no-op.
func EnhanceContent(articles []model.Article, searchKeywords []string) []model.Article {
	for i := range articles {
		a := &articles[i]
		keywords := unionKeywords(searchKeywords, a.MentionedKeywords, a.PertinentKeywords)
		a.HighlightedContent = HighlightKeywords(a.Content, keywords)
	}
	return articles
}

// unionKeywords merges keyword lists, collapsing duplicates
// case-insensitively while preserving first-seen order.
func unionKeywords(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, kw := range list {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			folded := highlightFolder.String(kw)
			if _, ok := seen[folded]; ok {
				continue
			}
			seen[folded] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}

// HighlightKeywords wraps each case-insensitive whole-word keyword match in
// the neutral markers, preserving the original casing of the matched text.
// Matches already wrapped are left alone, making the operation idempotent.
func HighlightKeywords(text string, keywords []string) string {
	if text == "" || len(keywords) == 0 {
		return text
	}

	re := keywordPattern(keywords)
	if re == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]

		// Skip matches that are already wrapped.
		if strings.HasSuffix(text[:start], markerOpen) && strings.HasPrefix(text[end:], markerClose) {
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString(markerOpen)
		b.WriteString(text[start:end])
		b.WriteString(markerClose)
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// keywordPattern builds one case-insensitive alternation over all keywords.
// Word boundaries are applied where the keyword edge is a word character;
// longer keywords are tried first so phrases beat their own substrings.
func keywordPattern(keywords []string) *regexp.Regexp {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	var alts []string
	for _, kw := range sorted {
		quoted := regexp.QuoteMeta(kw)
		if isWordChar(kw[0]) {
			quoted = `\b` + quoted
		}
		if isWordChar(kw[len(kw)-1]) {
			quoted += `\b`
		}
		alts = append(alts, quoted)
	}
	if len(alts) == 0 {
		return nil
	}

	re, err := regexp.Compile(`(?i)(` + strings.Join(alts, "|") + `)`)
	if err != nil {
		return nil
	}
	return re
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
