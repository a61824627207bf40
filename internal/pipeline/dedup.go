package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/model"
)

// DefaultSimilarityThreshold is the title-similarity ratio at or above which
// two articles are considered the same story.
const DefaultSimilarityThreshold = 0.75

// TitleSimilarity computes the matching-character ratio between two
// lowercased titles: 2*LCS / (len(a)+len(b)), the same family of measure a
// standard sequence matcher produces. Returns 1 for two empty strings.
func TitleSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Longest common subsequence over two DP rows.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// DedupResult reports the outcome of near-duplicate grouping.
type DedupResult struct {
	Kept []model.Article
	// DuplicateGroups counts groups that actually collapsed two or more
	// articles.
	DuplicateGroups int
	Removed         int
}

// dedupGroup collects near-duplicate articles; the first member is the
// comparison representative.
type dedupGroup struct {
	members []int // indexes into the input slice
}

// Deduplicate groups near-duplicate titles and keeps one representative per
// group: the article with the longest content, then the most author
// metadata, then the longest URL. Articles with empty titles bypass
// grouping; identical URLs collapse regardless of title similarity. Output
// order is input order among retained articles. This pass cannot fail.
func Deduplicate(articles []model.Article, threshold float64) DedupResult {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if len(articles) == 0 {
		return DedupResult{}
	}

	var groups []*dedupGroup
	byURL := make(map[string]*dedupGroup)
	// keep marks input indexes that survive: empty-title passthroughs now,
	// group representatives after selection.
	keep := make([]bool, len(articles))

	for i, a := range articles {
		if a.Title == "" {
			keep[i] = true
			continue
		}

		if a.URL != "" {
			if g, ok := byURL[a.URL]; ok {
				g.members = append(g.members, i)
				continue
			}
		}

		var best *dedupGroup
		bestSim := 0.0
		for _, g := range groups {
			sim := TitleSimilarity(a.Title, articles[g.members[0]].Title)
			if sim > bestSim {
				bestSim = sim
				best = g
			}
		}

		if best != nil && bestSim >= threshold {
			best.members = append(best.members, i)
			if a.URL != "" {
				byURL[a.URL] = best
			}
		} else {
			g := &dedupGroup{members: []int{i}}
			groups = append(groups, g)
			if a.URL != "" {
				byURL[a.URL] = g
			}
		}
	}

	duplicateGroups := 0
	for _, g := range groups {
		winner := g.members[0]
		for _, idx := range g.members[1:] {
			if betterRepresentative(&articles[idx], &articles[winner]) {
				winner = idx
			}
		}
		keep[winner] = true

		if len(g.members) > 1 {
			duplicateGroups++
			zap.L().Debug("dedup: collapsed group",
				zap.Int("size", len(g.members)),
				zap.String("kept", articles[winner].Title),
			)
		}
	}

	var kept []model.Article
	for i, a := range articles {
		if keep[i] {
			kept = append(kept, a)
		}
	}

	removed := len(articles) - len(kept)
	if removed > 0 {
		zap.L().Info("dedup: complete",
			zap.Int("input", len(articles)),
			zap.Int("unique", len(kept)),
			zap.Int("removed", removed),
			zap.Int("duplicate_groups", duplicateGroups),
		)
	}

	return DedupResult{Kept: kept, DuplicateGroups: duplicateGroups, Removed: removed}
}

// betterRepresentative reports whether a should replace b as a group's kept
// article.
func betterRepresentative(a, b *model.Article) bool {
	if len(a.Content) != len(b.Content) {
		return len(a.Content) > len(b.Content)
	}
	if len(a.Authors) != len(b.Authors) {
		return len(a.Authors) > len(b.Authors)
	}
	return len(a.URL) > len(b.URL)
}
