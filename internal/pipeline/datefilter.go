package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
)

// DateFilterStats counts window-filter outcomes. ModelRescued counts kept
// articles whose date came from the model tier and would otherwise have been
// discarded as dateless.
type DateFilterStats struct {
	InRange      int
	OutOfRange   int
	NoDate       int
	ModelRescued int
}

// FilterByDate keeps only articles whose resolved date lies inside the
// inclusive window. Strict mode: no buffer or window expansion. Input order
// is preserved among retained articles.
func FilterByDate(articles []model.Article, start, end time.Time) ([]model.Article, DateFilterStats) {
	var kept []model.Article
	stats := DateFilterStats{}

	for _, a := range articles {
		if !a.HasResolvedDate() {
			stats.NoDate++
			continue
		}
		if a.ResolvedDate.Before(start) || a.ResolvedDate.After(end) {
			stats.OutOfRange++
			continue
		}

		stats.InRange++
		if a.DateOrigin == model.DateOriginModel {
			stats.ModelRescued++
			zap.L().Debug("dates: article rescued by model extraction",
				zap.String("title", truncateRunes(a.Title, 60)),
				zap.Time("resolved_date", a.ResolvedDate),
			)
		}
		kept = append(kept, a)
	}

	zap.L().Info("dates: window filter complete",
		zap.Int("in_range", stats.InRange),
		zap.Int("out_of_range", stats.OutOfRange),
		zap.Int("no_date", stats.NoDate),
		zap.Int("model_rescued", stats.ModelRescued),
	)
	return kept, stats
}
