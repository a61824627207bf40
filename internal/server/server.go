// Package server exposes the research pipeline over HTTP. It is a thin
// collaborator: parsing, session bookkeeping, and serialization live here;
// all pipeline semantics live in internal/pipeline.
package server

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ace26597/News-Agent/internal/config"
	"github.com/ace26597/News-Agent/internal/model"
	"github.com/ace26597/News-Agent/internal/pipeline"
	"github.com/ace26597/News-Agent/internal/session"
)

// Server wires the HTTP routes to the pipeline and the session store.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	sessions *session.Store
}

// New creates a Server.
func New(cfg *config.Config, p *pipeline.Pipeline, sessions *session.Store) *Server {
	return &Server{cfg: cfg, pipeline: p, sessions: sessions}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Get("/results/{sessionID}", s.handleResults)
		r.Get("/results/{sessionID}/csv", s.handleResultsCSV)
	})
	return r
}

// keywordList accepts either a JSON string of comma-joined keywords or a
// JSON array.
type keywordList []string

func (k *keywordList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*k = append(*k, part)
		}
	}
	return nil
}

// searchRequest is the POST /api/search body.
type searchRequest struct {
	Keywords      keywordList `json:"keywords"`
	AliasKeywords keywordList `json:"alias_keywords"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date"`
	SearchType    string      `json:"search_type"`
	SearchEngines []string    `json:"search_engines"`
	MinScore      int         `json:"min_score"`
	AlertName     string      `json:"alert_name"`
	User          string      `json:"user"`
}

// articleResponse is the per-article wire shape.
type articleResponse struct {
	Title                string   `json:"title"`
	URL                  string   `json:"url"`
	Source               string   `json:"source"`
	ResolvedDate         string   `json:"resolved_date,omitempty"`
	RelevanceScore       int      `json:"relevance_score"`
	RelevanceReason      string   `json:"relevance_reason,omitempty"`
	ArticleType          string   `json:"article_type,omitempty"`
	MentionedKeywords    []string `json:"mentioned_keywords,omitempty"`
	ClinicalSignificance string   `json:"clinical_significance,omitempty"`
	RegulatoryImpact     string   `json:"regulatory_impact,omitempty"`
	MarketImpact         string   `json:"market_impact,omitempty"`
	Summary              string   `json:"summary,omitempty"`
	HighlightedContent   string   `json:"highlighted_content,omitempty"`
}

type searchResponse struct {
	Success       bool              `json:"success"`
	Results       []articleResponse `json:"results"`
	WorkflowStats *model.RunStats   `json:"workflow_stats"`
	SessionID     string            `json:"session_id"`
	Error         string            `json:"error,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	q, err := req.toQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	articles, stats, runErr := s.pipeline.Run(r.Context(), q)

	sessionID := uuid.New().String()
	s.sessions.Put(&session.Result{
		SessionID: sessionID,
		Query:     *q,
		Articles:  articles,
		Stats:     *stats,
	})

	resp := searchResponse{
		Success:       runErr == nil && stats.State == model.StateDone,
		Results:       toArticleResponses(articles),
		WorkflowStats: stats,
		SessionID:     sessionID,
	}
	if runErr != nil {
		resp.Error = shortError(runErr)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	result, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Success:       true,
		Results:       toArticleResponses(result.Articles),
		WorkflowStats: &result.Stats,
		SessionID:     result.SessionID,
	})
}

func (s *Server) handleResultsCSV(w http.ResponseWriter, r *http.Request) {
	result, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="pharma_search_%s.csv"`, result.CreatedAt.Format("20060102_150405")))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Rank", "Title", "Summary", "Source", "Date", "URL", "Relevance Score"})
	for i, a := range result.Articles {
		date := ""
		if a.HasResolvedDate() {
			date = a.ResolvedDate.Format("2006-01-02")
		}
		_ = cw.Write([]string{
			fmt.Sprint(i + 1),
			a.Title,
			strings.ReplaceAll(a.Summary, "\n", " "),
			string(a.Source),
			date,
			a.URL,
			fmt.Sprint(a.RelevanceScore),
		})
	}
	cw.Flush()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"providers": map[string]bool{
			"pubmed":  s.cfg.PubMed.Email != "",
			"exa":     s.cfg.Exa.Key != "",
			"tavily":  s.cfg.Tavily.Key != "",
			"newsapi": s.cfg.NewsAPI.Key != "",
		},
		"sessions": s.sessions.Len(),
	})
}

func (r *searchRequest) toQuery() (*model.Query, error) {
	if len(r.Keywords) == 0 {
		return nil, fmt.Errorf("keywords are required")
	}

	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %s", r.StartDate)
	}
	end, err := time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date: %s", r.EndDate)
	}

	mode := model.SearchMode(r.SearchType)
	if r.SearchType == "" {
		mode = model.ModeStandard
	}

	var providers []model.Source
	for _, e := range r.SearchEngines {
		providers = append(providers, model.Source(strings.ToLower(e)))
	}

	q := &model.Query{
		PrimaryKeywords: r.Keywords,
		AliasKeywords:   r.AliasKeywords,
		StartDate:       start,
		EndDate:         end,
		Mode:            mode,
		Providers:       providers,
		MinScore:        r.MinScore,
		AlertName:       r.AlertName,
		AlertType:       "api",
		User:            r.User,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func toArticleResponses(articles []model.Article) []articleResponse {
	out := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		resp := articleResponse{
			Title:                a.Title,
			URL:                  a.URL,
			Source:               string(a.Source),
			RelevanceScore:       a.RelevanceScore,
			RelevanceReason:      a.RelevanceReason,
			ArticleType:          a.ArticleType,
			MentionedKeywords:    a.MentionedKeywords,
			ClinicalSignificance: a.ClinicalSignificance,
			RegulatoryImpact:     a.RegulatoryImpact,
			MarketImpact:         a.MarketImpact,
			Summary:              a.Summary,
			HighlightedContent:   a.HighlightedContent,
		}
		if a.HasResolvedDate() {
			resp.ResolvedDate = a.ResolvedDate.Format("2006-01-02")
		}
		out = append(out, resp)
	}
	return out
}

// shortError keeps credentials and internals out of user-visible errors.
func shortError(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ":"); idx > 0 {
		msg = msg[:idx] + ": " + strings.SplitN(msg[idx+1:], "\n", 2)[0]
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
