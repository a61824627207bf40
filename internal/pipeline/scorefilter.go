package pipeline

import (
	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
)

// DefaultMinScore is the relevance threshold articles must meet to survive.
// Configurable; the source history drifted between 40 and 50, and 40 is the
// documented default.
const DefaultMinScore = 40

// ScoreFilterStats reports the threshold filter outcome and the score
// distribution over every analyzed article.
type ScoreFilterStats struct {
	Kept     int
	Filtered int

	ScoreMin int
	ScoreMax int
	ScoreAvg float64

	Band80Plus int
	Band60to79 int
	Band40to59 int
	BandBelow  int
}

// FilterByScore keeps articles with relevance_score >= minScore and emits
// the banded score histogram. Input order is preserved among retained
// articles.
func FilterByScore(articles []model.Article, minScore int) ([]model.Article, ScoreFilterStats) {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	var kept []model.Article
	stats := ScoreFilterStats{}

	sum := 0
	for i, a := range articles {
		score := a.RelevanceScore
		sum += score
		if i == 0 || score < stats.ScoreMin {
			stats.ScoreMin = score
		}
		if score > stats.ScoreMax {
			stats.ScoreMax = score
		}

		switch {
		case score >= 80:
			stats.Band80Plus++
		case score >= 60:
			stats.Band60to79++
		case score >= 40:
			stats.Band40to59++
		default:
			stats.BandBelow++
		}

		if score >= minScore {
			stats.Kept++
			kept = append(kept, a)
		} else {
			stats.Filtered++
		}
	}

	if len(articles) > 0 {
		stats.ScoreAvg = float64(sum) / float64(len(articles))
	}

	zap.L().Info("relevance: threshold filter complete",
		zap.Int("min_score", minScore),
		zap.Int("kept", stats.Kept),
		zap.Int("filtered", stats.Filtered),
		zap.Int("band_80_plus", stats.Band80Plus),
		zap.Int("band_60_79", stats.Band60to79),
		zap.Int("band_40_59", stats.Band40to59),
		zap.Int("band_below_40", stats.BandBelow),
	)
	return kept, stats
}
