package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/pkg/llm"
)

// dateFormats is the ordered list of metadata formats tried before falling
// back to the model tier.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"20060102",
}

// ParseDateString tries each known metadata format in order.
func ParseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

// dateOnly drops the time-of-day and zone, keeping year-month-day in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// validDate bounds accepted dates to [1990-01-01, now+30d]; anything
// outside is a parsing artifact, not a publication date.
func validDate(t time.Time) bool {
	floor := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	ceil := time.Now().UTC().AddDate(0, 0, 30)
	return !t.Before(floor) && !t.After(ceil)
}

const dateExtractionSystemPrompt = `You are a date extraction specialist. Your job is to find publication dates in medical and pharmaceutical articles.

Return ONLY the date in YYYY-MM-DD format. If no date is found, return exactly "none" (lowercase).
Do not include any other text, explanation, or formatting.`

const dateExtractionUserPrompt = `ARTICLE FOR DATE EXTRACTION:

URL: %s

Title: %s

Content (first 3000 characters):
%s

Metadata/Additional Info:
%s

TASK: Extract the publication date from this article.

INSTRUCTIONS:
1. Check URL first - often contains date (e.g., /2024/03/15/ or /20240315/)
2. Look for explicit dates in content (publication date, posted date, release date)
3. Check title and metadata for dates
4. Only return dates that are clearly publication dates
5. Format: YYYY-MM-DD (e.g., 2024-03-15)
6. If no date found: return exactly "none"

Return ONLY the date or "none".`

// DateResolver performs the three-tier date cascade: stored metadata, then
// a cheap model, then regex patterns over URL and text.
type DateResolver struct {
	llm         llm.Client
	model       string
	timeout     time.Duration
	concurrency int
}

// NewDateResolver creates a resolver. A nil client disables the model tier.
func NewDateResolver(client llm.Client, modelName string, timeout time.Duration, concurrency int) *DateResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &DateResolver{llm: client, model: modelName, timeout: timeout, concurrency: concurrency}
}

// DateStats counts resolver outcomes.
type DateStats struct {
	WithDates      int
	WithoutDates   int
	ModelExtracted int
	Usage          model.TokenUsage
}

// ResolveDates annotates every article with a resolved date and its origin,
// up to the configured number of articles concurrently with one in-flight
// model call per article. Per-article failures leave that article dateless;
// they never abort the stage.
func (r *DateResolver) ResolveDates(ctx context.Context, articles []model.Article) ([]model.Article, DateStats) {
	var mu sync.Mutex
	stats := DateStats{}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range articles {
		g.Go(func() error {
			a := &articles[i]
			usage := r.resolveOne(gCtx, a)

			mu.Lock()
			stats.Usage.Add(usage)
			if a.HasResolvedDate() {
				stats.WithDates++
				if a.DateOrigin == model.DateOriginModel {
					stats.ModelExtracted++
				}
			} else {
				stats.WithoutDates++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("dates: resolution complete",
		zap.Int("with_dates", stats.WithDates),
		zap.Int("without_dates", stats.WithoutDates),
		zap.Int("model_extracted", stats.ModelExtracted),
	)
	return articles, stats
}

// resolveOne runs the cascade for a single article, stopping at the first
// tier that produces a valid date.
func (r *DateResolver) resolveOne(ctx context.Context, a *model.Article) model.TokenUsage {
	a.DateOrigin = model.DateOriginNone

	// Tier 1: provider metadata.
	if a.RawDate != "" {
		if t, ok := ParseDateString(a.RawDate); ok && validDate(t) {
			a.ResolvedDate = t
			a.DateOrigin = model.DateOriginMetadata
			return model.TokenUsage{}
		}
	}

	// Tier 2: model-assisted extraction.
	var usage model.TokenUsage
	if r.llm != nil && ctx.Err() == nil {
		if t, u, ok := r.modelExtract(ctx, a); ok && validDate(t) {
			a.ResolvedDate = t
			a.DateOrigin = model.DateOriginModel
			return u
		} else if ok {
			// Valid parse but implausible date; fall through to regex.
			usage = u
		}
	}

	// Tier 3: regex patterns over URL, title, and content.
	if t, ok := regexExtractDate(a.URL, a.Title, a.Content); ok {
		a.ResolvedDate = t
		a.DateOrigin = model.DateOriginRegex
	}
	return usage
}

// modelExtract prompts the cheap model with the article context. The
// contract is exactly the ten-character YYYY-MM-DD string or the literal
// token "none".
func (r *DateResolver) modelExtract(ctx context.Context, a *model.Article) (time.Time, model.TokenUsage, bool) {
	metadata := "Source: " + string(a.Source)
	if a.Authors != "" {
		metadata += " | Authors: " + truncateRunes(a.Authors, 200)
	}

	prompt := fmt.Sprintf(dateExtractionUserPrompt,
		truncateRunes(a.URL, 200),
		truncateRunes(a.Title, 500),
		truncateRunes(a.Content, 3000),
		metadata,
	)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.llm.ChatCompletion(callCtx, llm.ChatRequest{
		Model:       r.model,
		System:      dateExtractionSystemPrompt,
		User:        prompt,
		Temperature: 0.0,
		MaxTokens:   50,
	})
	if err != nil {
		zap.L().Debug("dates: model extraction failed",
			zap.String("title", truncateRunes(a.Title, 60)),
			zap.Error(err),
		)
		return time.Time{}, model.TokenUsage{}, false
	}

	usage := model.TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}

	text := strings.ToLower(strings.TrimSpace(resp.Text))
	if text == "none" || text == "" {
		return time.Time{}, usage, false
	}
	t, err2 := time.Parse("2006-01-02", text)
	if err2 != nil {
		return time.Time{}, usage, false
	}
	return t, usage, true
}

// Patterns for the regex fallback: URL path forms, plain date forms, and
// spelled-out month forms. Every pattern is scanned; the order does not rank
// the matches.
var (
	reURLSlashDate = regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})/`)
	reURLCompact   = regexp.MustCompile(`/(\d{8})/`)
	reISODate      = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	reMonthDayYear = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})`)
	reDayMonthYear = regexp.MustCompile(`(?i)(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})`)
)

// regexExtractDate scans the URL plus a 2000-character window of title and
// content, returning the most recent valid date found.
func regexExtractDate(url, title, content string) (time.Time, bool) {
	text := url + " " + truncateRunes(title+" "+content, 2000)

	var candidates []time.Time

	addYMD := func(year, month, day string) {
		if t, err := time.Parse("2006-1-2", year+"-"+month+"-"+day); err == nil && validDate(t) {
			candidates = append(candidates, t)
		}
	}

	for _, m := range reURLSlashDate.FindAllStringSubmatch(text, -1) {
		addYMD(m[1], m[2], m[3])
	}
	for _, m := range reURLCompact.FindAllStringSubmatch(text, -1) {
		if t, err := time.Parse("20060102", m[1]); err == nil && validDate(t) {
			candidates = append(candidates, t)
		}
	}
	for _, m := range reISODate.FindAllStringSubmatch(text, -1) {
		addYMD(m[1], m[2], m[3])
	}
	for _, m := range reMonthDayYear.FindAllStringSubmatch(text, -1) {
		if t, err := time.Parse("January 2 2006", fmt.Sprintf("%s %s %s", canonicalMonth(m[1]), m[2], m[3])); err == nil && validDate(t) {
			candidates = append(candidates, t)
		}
	}
	for _, m := range reDayMonthYear.FindAllStringSubmatch(text, -1) {
		if t, err := time.Parse("2 January 2006", fmt.Sprintf("%s %s %s", m[1], canonicalMonth(m[2]), m[3])); err == nil && validDate(t) {
			candidates = append(candidates, t)
		}
	}

	if len(candidates) == 0 {
		return time.Time{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.After(best) {
			best = c
		}
	}
	return best, true
}

// canonicalMonth normalizes a case-insensitively matched month name to the
// capitalization time.Parse expects.
func canonicalMonth(m string) string {
	if m == "" {
		return m
	}
	return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
}

// truncateRunes bounds s to at most n runes.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
