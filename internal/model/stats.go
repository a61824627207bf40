package model

import "time"

// RunState tracks the orchestrator's state machine.
type RunState string

const (
	StateInit            RunState = "init"
	StateCollecting      RunState = "collecting"
	StateDeduping        RunState = "deduping"
	StateResolvingDates  RunState = "resolving_dates"
	StateFilteringDates  RunState = "filtering_dates"
	StateAnalyzing       RunState = "analyzing"
	StateFilteringScores RunState = "filtering_scores"
	StateEnhancing       RunState = "enhancing"
	StateDone            RunState = "done"
	StateCancelled       RunState = "cancelled"
	StateFailed          RunState = "failed"
)

// TokenUsage accumulates model token consumption across a run.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates usage from another counter.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// StrategyOutcome records how a single strategy execution fared, verbatim,
// for the run record.
type StrategyOutcome struct {
	Provider  Source `json:"provider"`
	Strategy  string `json:"strategy"`
	Retrieved int    `json:"retrieved"`

	// Dedup attribution at increasing distance from the strategy.
	AfterDedupWithinStrategy int `json:"after_dedup_within_strategy"`
	AfterDedupCrossStrategy  int `json:"after_dedup_cross_strategy"`
	AfterDedupCrossProvider  int `json:"after_dedup_cross_provider"`

	InRange            int     `json:"in_range"`
	ScoreHigh          int     `json:"score_high"`   // >= 80
	ScoreMedium        int     `json:"score_medium"` // 60-79
	ScoreLow           int     `json:"score_low"`    // < 60
	FinalKept          int     `json:"final_kept"`
	UniqueContribution int     `json:"unique_contribution"`
	AvgScore           float64 `json:"avg_score"`
	Elapsed            float64 `json:"elapsed_seconds"`
	Error              string  `json:"error,omitempty"`
}

// ProviderStats aggregates the outcomes of every strategy run against one
// provider.
type ProviderStats struct {
	Provider           Source   `json:"provider"`
	Retrieved          int      `json:"retrieved"`
	AfterDedup         int      `json:"after_dedup"`
	Strategies         []string `json:"strategies"`
	UniqueContribution int      `json:"unique_contribution"`
	DuplicateRate      float64  `json:"duplicate_rate"`
	AvgScore           float64  `json:"avg_score"`
	FinalKept          int      `json:"final_kept"`
	Elapsed            float64  `json:"elapsed_seconds"`
}

// PhaseTiming records wall-clock seconds spent in one pipeline phase.
type PhaseTiming struct {
	Name    string  `json:"name"`
	Elapsed float64 `json:"elapsed_seconds"`
	Error   string  `json:"error,omitempty"`
	Skipped bool    `json:"skipped,omitempty"`
}

// RunStats carries every per-stage counter for a pipeline run. All mutation
// happens on the orchestrator goroutine.
type RunStats struct {
	State RunState `json:"state"`

	// Collection and dedup. Collected counts articles surviving the
	// search-mode validation; ModeFiltered counts the ones it dropped.
	Collected         int `json:"collected"`
	ModeFiltered      int `json:"mode_filtered"`
	Unique            int `json:"unique"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	DuplicateGroups   int `json:"duplicate_groups"`

	// Date resolution.
	WithDates      int `json:"with_dates"`
	WithoutDates   int `json:"without_dates"`
	ModelExtracted int `json:"model_extracted"`

	// Date filtering.
	InRange      int `json:"in_range"`
	OutOfRange   int `json:"out_of_range"`
	ModelRescued int `json:"model_rescued"`

	// Relevance.
	Analyzed      int     `json:"analyzed"`
	AnalysisFails int     `json:"analysis_failures"`
	Kept          int     `json:"kept"`
	Filtered      int     `json:"filtered"`
	ScoreMin      int     `json:"score_min"`
	ScoreMax      int     `json:"score_max"`
	ScoreAvg      float64 `json:"score_avg"`

	// Score histogram bands.
	Band80Plus int `json:"band_80_plus"`
	Band60to79 int `json:"band_60_79"`
	Band40to59 int `json:"band_40_59"`
	BandBelow  int `json:"band_below_40"`

	// Article-type breakdown from the relevance verdicts.
	ArticleTypes map[string]int `json:"article_types,omitempty"`

	ByProvider map[Source]*ProviderStats `json:"by_provider,omitempty"`
	Strategies []StrategyOutcome         `json:"strategies,omitempty"`
	Phases     []PhaseTiming             `json:"phases,omitempty"`

	Usage        TokenUsage `json:"usage"`
	EstimatedUSD float64    `json:"estimated_cost_usd"`

	Errors []string `json:"errors,omitempty"`
}

// CheckConsistency verifies the cross-stage counter invariants. A violation
// is an orchestrator bug, never a provider condition.
func (s *RunStats) CheckConsistency() error {
	if s.Collected != s.Unique+s.DuplicatesRemoved {
		return invariantErrorf("collected=%d != unique=%d + duplicates_removed=%d",
			s.Collected, s.Unique, s.DuplicatesRemoved)
	}
	if s.Analyzed != s.Kept+s.Filtered {
		return invariantErrorf("analyzed=%d != kept=%d + filtered=%d",
			s.Analyzed, s.Kept, s.Filtered)
	}
	return nil
}

// RunRecord is the single wide row appended to the metadata log after a run.
type RunRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AlertName string    `json:"alert_name"`
	AlertType string    `json:"alert_type"`
	User      string    `json:"user"`

	PrimaryKeywords []string   `json:"primary_keywords"`
	AliasKeywords   []string   `json:"alias_keywords"`
	AllKeywords     []string   `json:"all_keywords"`
	Mode            SearchMode `json:"mode"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	Providers       []Source   `json:"providers"`

	Stats RunStats `json:"stats"`

	Successful bool    `json:"successful"`
	Elapsed    float64 `json:"elapsed_seconds"`
}
