package pipeline

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/ace26597/News-Agent/internal/model"
)

var modeFolder = cases.Fold()

// FilterByMode validates collected articles against the search mode:
// standard keeps articles with any keyword in title or content, title
// requires a keyword in the title, and cooccurrence requires two or more
// distinct keywords in the content. Returns the survivors and the dropped
// count. Input order is preserved.
func FilterByMode(articles []model.Article, keywords []string, mode model.SearchMode) ([]model.Article, int) {
	folded := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			folded = append(folded, modeFolder.String(kw))
		}
	}
	if len(folded) == 0 {
		return articles, 0
	}

	var kept []model.Article
	for _, a := range articles {
		if matchesMode(&a, folded, mode) {
			kept = append(kept, a)
		}
	}

	dropped := len(articles) - len(kept)
	if dropped > 0 {
		zap.L().Info("collect: mode filter dropped articles",
			zap.String("mode", string(mode)),
			zap.Int("dropped", dropped),
		)
	}
	return kept, dropped
}

func matchesMode(a *model.Article, foldedKeywords []string, mode model.SearchMode) bool {
	title := modeFolder.String(a.Title)
	content := modeFolder.String(a.Content)

	switch mode {
	case model.ModeTitleOnly:
		return containsAny(title, foldedKeywords)
	case model.ModeCooccurrence:
		distinct := 0
		for _, kw := range foldedKeywords {
			if strings.Contains(content, kw) {
				distinct++
				if distinct >= 2 {
					return true
				}
			}
		}
		return false
	default:
		return containsAny(title, foldedKeywords) || containsAny(content, foldedKeywords)
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
