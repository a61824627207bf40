package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/pkg/llm"
)

const relevanceSystemPrompt = `You are an expert pharmaceutical research analyst. Your job is to evaluate medical and pharmaceutical articles for relevance, quality, and significance based SOLELY on the content and context provided.

You MUST respond with ONLY valid JSON. No markdown, no code blocks, no extra text - just raw JSON.`

const relevanceUserPrompt = `ARTICLE DETAILS:
Title: %s
Source: %s
URL: %s
Date: %s
Content Preview: %s

SEARCH CONTEXT:
Keywords: %s
Search Type: %s
Domain: Pharmaceutical/Medical Research
%s
TASK: Analyze this article and provide a comprehensive relevance assessment.

OUTPUT FORMAT (raw JSON only, no markdown):
{
    "relevance_score": <number 0-100>,
    "relevance_reason": "<detailed explanation of why this score was assigned>",
    "article_type": "<research|news|press_release|company_page|clinical_trial|regulatory|other>",
    "mentioned_keywords": ["<exact keywords found in content>"],
    "pertinent_keywords": ["<additional relevant keywords/phrases from article content that are related to the search topic>"],
    "clinical_significance": "<clinical relevance explanation or 'None'>",
    "regulatory_impact": "<regulatory implications or 'None'>",
    "market_impact": "<market implications or 'None'>",
    "summary": "<2-3 sentence summary>"
}

SCORING GUIDELINES:
- 90-100: Perfect match, highly relevant research/clinical data, directly addresses keywords
- 80-89: Very relevant, important news or study results, strong keyword presence
- 70-79: Relevant, useful information, moderate keyword presence
- 60-69: Somewhat relevant, minor connection to keywords
- 50-59: Barely relevant, weak connection to keywords
- 0-49: Not relevant, no meaningful connection to keywords

EVALUATION CRITERIA:
1. Keyword Presence: How many search keywords appear in title and content? (Exact matches only)
2. Content Quality: Is this credible research, news, or promotional material?
3. Clinical Significance: Does it discuss clinical trials, efficacy, safety, or patient outcomes?
4. Regulatory Relevance: Are there FDA approvals, regulatory decisions, or guidelines?
5. Market Impact: Business implications, commercial developments, or market dynamics?
6. Source Credibility: Is it from a reputable source (PubMed, peer-reviewed, official news)?

Return ONLY the JSON object, nothing else.`

// Verdict is the model's structured relevance assessment for one article.
type Verdict struct {
	RelevanceScore       int      `json:"relevance_score"`
	RelevanceReason      string   `json:"relevance_reason"`
	ArticleType          string   `json:"article_type"`
	MentionedKeywords    []string `json:"mentioned_keywords"`
	PertinentKeywords    []string `json:"pertinent_keywords"`
	ClinicalSignificance string   `json:"clinical_significance"`
	RegulatoryImpact     string   `json:"regulatory_impact"`
	MarketImpact         string   `json:"market_impact"`
	Summary              string   `json:"summary"`
}

// Analyzer invokes the relevance model per article. Lost-by-error articles
// are far costlier than borderline false positives, so every failure path
// retains the article with a neutral score.
type Analyzer struct {
	llm         llm.Client
	model       string
	timeout     time.Duration
	concurrency int
	delay       time.Duration
}

// NewAnalyzer creates a relevance analyzer.
func NewAnalyzer(client llm.Client, modelName string, timeout time.Duration, concurrency int, delay time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Analyzer{llm: client, model: modelName, timeout: timeout, concurrency: concurrency, delay: delay}
}

// RelevanceStats counts analyzer outcomes. Failed counts articles retained
// with the neutral fallback.
type RelevanceStats struct {
	Analyzed int
	Failed   int
	Usage    model.TokenUsage
}

// AnalyzeRelevance annotates every article with the model's verdict, up to
// the configured number of articles in parallel with a small inter-call
// delay. Each call is independently cancellable; a per-article failure
// aborts only that article's analysis, never the stage.
func (an *Analyzer) AnalyzeRelevance(ctx context.Context, articles []model.Article, keywords []string, mode model.SearchMode, alertName string) ([]model.Article, RelevanceStats) {
	var mu sync.Mutex
	stats := RelevanceStats{}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(an.concurrency)

	for i := range articles {
		g.Go(func() error {
			if an.delay > 0 {
				timer := time.NewTimer(an.delay)
				select {
				case <-gCtx.Done():
					timer.Stop()
				case <-timer.C:
				}
			}

			a := &articles[i]
			verdict, usage, failed := an.analyzeOne(gCtx, a, keywords, mode, alertName)
			applyVerdict(a, verdict)

			mu.Lock()
			stats.Analyzed++
			if failed {
				stats.Failed++
			}
			stats.Usage.Add(usage)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("relevance: analysis complete",
		zap.Int("analyzed", stats.Analyzed),
		zap.Int("failed", stats.Failed),
	)
	return articles, stats
}

// analyzeOne runs one model call and parses its verdict. The returned bool
// reports whether the neutral fallback was used.
func (an *Analyzer) analyzeOne(ctx context.Context, a *model.Article, keywords []string, mode model.SearchMode, alertName string) (Verdict, model.TokenUsage, bool) {
	dateStr := "Unknown"
	if a.HasResolvedDate() {
		dateStr = a.ResolvedDate.Format("2006-01-02")
	}
	alertLine := ""
	if alertName != "" {
		alertLine = "Alert: " + alertName + "\n"
	}

	prompt := fmt.Sprintf(relevanceUserPrompt,
		a.Title,
		a.Source,
		a.URL,
		dateStr,
		truncateRunes(a.Content, 3000),
		strings.Join(keywords, ", "),
		mode,
		alertLine,
	)

	callCtx, cancel := context.WithTimeout(ctx, an.timeout)
	defer cancel()

	resp, err := an.llm.ChatCompletion(callCtx, llm.ChatRequest{
		Model:        an.model,
		System:       relevanceSystemPrompt,
		User:         prompt,
		Temperature:  0.1,
		MaxTokens:    2000,
		JSONResponse: true,
	})
	if err != nil {
		zap.L().Warn("relevance: model call failed, retaining with neutral score",
			zap.String("title", truncateRunes(a.Title, 60)),
			zap.Error(err),
		)
		return neutralVerdict(a, keywords, "analysis failed; retained"), model.TokenUsage{}, true
	}

	usage := model.TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}

	verdict, parseErr := ParseVerdict(resp.Text)
	if parseErr != nil {
		zap.L().Warn("relevance: unparseable model response, retaining with neutral score",
			zap.String("title", truncateRunes(a.Title, 60)),
			zap.String("response_prefix", truncateRunes(resp.Text, 200)),
			zap.Error(parseErr),
		)
		return neutralVerdict(a, keywords, "parse failure; retained"), usage, true
	}

	return verdict, usage, false
}

// ParseVerdict defensively parses the model output: a clean JSON object, a
// fenced JSON object, or the first balanced {...} substring.
func ParseVerdict(text string) (Verdict, error) {
	cleaned := CleanJSON(text)

	var v Verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return Verdict{}, err
	}

	// Clamp the score into [0, 100].
	if v.RelevanceScore < 0 {
		v.RelevanceScore = 0
	}
	if v.RelevanceScore > 100 {
		v.RelevanceScore = 100
	}
	if v.ArticleType == "" {
		v.ArticleType = "other"
	}
	return v, nil
}

// CleanJSON extracts a JSON object from text that may carry markdown code
// fences or surrounding prose.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "{") {
		return text
	}

	// Extract the first balanced {...} substring, respecting strings.
	start := strings.Index(text, "{")
	if start < 0 {
		return text
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

// neutralVerdict is the retain-on-failure record: score 50, the search
// keywords assumed mentioned, and the content prefix as summary.
func neutralVerdict(a *model.Article, keywords []string, reason string) Verdict {
	summary := truncateRunes(a.Content, 200)
	if summary == "" {
		summary = truncateRunes(a.Title, 200)
	}
	return Verdict{
		RelevanceScore:       50,
		RelevanceReason:      reason,
		ArticleType:          "unknown",
		MentionedKeywords:    keywords,
		ClinicalSignificance: "",
		RegulatoryImpact:     "",
		MarketImpact:         "",
		Summary:              summary,
	}
}

func applyVerdict(a *model.Article, v Verdict) {
	a.RelevanceScore = v.RelevanceScore
	a.RelevanceReason = v.RelevanceReason
	a.ArticleType = v.ArticleType
	a.MentionedKeywords = v.MentionedKeywords
	a.PertinentKeywords = v.PertinentKeywords
	a.ClinicalSignificance = v.ClinicalSignificance
	a.RegulatoryImpact = v.RegulatoryImpact
	a.MarketImpact = v.MarketImpact
	a.Summary = v.Summary
}
