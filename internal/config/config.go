package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ace26597/News-Agent/internal/model"
)

// Config holds the full application configuration. It is loaded once at
// startup and treated as immutable for the lifetime of a run.
type Config struct {
	PubMed   PubMedConfig   `yaml:"pubmed" mapstructure:"pubmed"`
	Exa      ExaConfig      `yaml:"exa" mapstructure:"exa"`
	Tavily   TavilyConfig   `yaml:"tavily" mapstructure:"tavily"`
	NewsAPI  NewsAPIConfig  `yaml:"newsapi" mapstructure:"newsapi"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Domains  DomainsConfig  `yaml:"domains" mapstructure:"domains"`
	Metadata MetadataConfig `yaml:"metadata" mapstructure:"metadata"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PubMedConfig holds Entrez API settings. PubMed needs a contact email
// rather than a key.
type PubMedConfig struct {
	Email          string `yaml:"email" mapstructure:"email"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults     int    `yaml:"max_results" mapstructure:"max_results"`
	MinIntervalMS  int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	TimeoutSeconds int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ExaConfig holds Exa API settings.
type ExaConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// TavilyConfig holds Tavily API settings.
type TavilyConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
}

// NewsAPIConfig holds NewsAPI settings. MaxHistoryDays clamps the requested
// window to the plan's maximum historical reach.
type NewsAPIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults     int    `yaml:"max_results" mapstructure:"max_results"`
	MaxHistoryDays int    `yaml:"max_history_days" mapstructure:"max_history_days"`
}

// LLMConfig selects the chat-model backend and the models used by the
// relevance and date stages.
type LLMConfig struct {
	Backend   string          `yaml:"backend" mapstructure:"backend"` // "openai" or "anthropic"
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
}

// OpenAIConfig holds settings for the OpenAI-style chat backend.
type OpenAIConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	MainModel string `yaml:"main_model" mapstructure:"main_model"`
	DateModel string `yaml:"date_model" mapstructure:"date_model"`
}

// AnthropicConfig holds settings for the Anthropic SDK backend.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	MainModel string `yaml:"main_model" mapstructure:"main_model"`
	DateModel string `yaml:"date_model" mapstructure:"date_model"`
}

// PipelineConfig holds stage thresholds, timeouts, and concurrency limits.
type PipelineConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	// MinScore is the relevance threshold. The historical default drifted
	// between 40 and 50; 40 is the documented default here.
	MinScore             int `yaml:"min_score" mapstructure:"min_score"`
	DateConcurrency      int `yaml:"date_concurrency" mapstructure:"date_concurrency"`
	RelevanceConcurrency int `yaml:"relevance_concurrency" mapstructure:"relevance_concurrency"`
	RelevanceDelayMS     int `yaml:"relevance_delay_ms" mapstructure:"relevance_delay_ms"`
	ProviderTimeoutSecs  int `yaml:"provider_timeout_secs" mapstructure:"provider_timeout_secs"`
	DateTimeoutSecs      int `yaml:"date_timeout_secs" mapstructure:"date_timeout_secs"`
	RelevanceTimeoutSecs int `yaml:"relevance_timeout_secs" mapstructure:"relevance_timeout_secs"`
	MaxRetries           int `yaml:"max_retries" mapstructure:"max_retries"`
}

// DomainsConfig points at the curated domain allow-list file. The lists are
// configuration, not invariants; File overrides the built-in defaults.
type DomainsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// MetadataConfig configures the run-record sink.
type MetadataConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // csv, sqlite, or postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SessionConfig bounds the in-memory result store.
type SessionConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PHARMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.max_results", 50)
	v.SetDefault("pubmed.min_interval_ms", 340)
	v.SetDefault("exa.base_url", "https://api.exa.ai")
	v.SetDefault("exa.max_results", 25)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.max_results", 20)
	v.SetDefault("newsapi.base_url", "https://newsapi.org/v2")
	v.SetDefault("newsapi.max_results", 100)
	v.SetDefault("newsapi.max_history_days", 30)

	v.SetDefault("llm.backend", "openai")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai.main_model", "gpt-4o-mini")
	v.SetDefault("llm.openai.date_model", "gpt-3.5-turbo")
	v.SetDefault("llm.anthropic.main_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.anthropic.date_model", "claude-haiku-4-5-20251001")

	v.SetDefault("pipeline.similarity_threshold", 0.75)
	v.SetDefault("pipeline.min_score", 40)
	v.SetDefault("pipeline.date_concurrency", 8)
	v.SetDefault("pipeline.relevance_concurrency", 5)
	v.SetDefault("pipeline.relevance_delay_ms", 200)
	v.SetDefault("pipeline.provider_timeout_secs", 30)
	v.SetDefault("pipeline.date_timeout_secs", 10)
	v.SetDefault("pipeline.relevance_timeout_secs", 30)
	v.SetDefault("pipeline.max_retries", 3)

	v.SetDefault("metadata.driver", "csv")
	v.SetDefault("metadata.path", "alert_metadata.csv")

	v.SetDefault("session.max_entries", 50)
	v.SetDefault("session.ttl_minutes", 120)

	// Keys without a meaningful default still need registering, or
	// AutomaticEnv never reaches them during Unmarshal.
	v.SetDefault("pubmed.email", "")
	v.SetDefault("exa.key", "")
	v.SetDefault("tavily.key", "")
	v.SetDefault("newsapi.key", "")
	v.SetDefault("llm.openai.key", "")
	v.SetDefault("llm.anthropic.key", "")
	v.SetDefault("metadata.database_url", "")
	v.SetDefault("domains.file", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ValidateProviders checks that credentials exist for every enabled provider
// and for the selected LLM backend. A failure here is fatal at run start,
// before any provider call.
func (c *Config) ValidateProviders(providers []model.Source) error {
	var missing []string
	for _, p := range providers {
		switch p {
		case model.SourcePubMed:
			if c.PubMed.Email == "" {
				missing = append(missing, "pubmed.email")
			}
		case model.SourceExa:
			if c.Exa.Key == "" {
				missing = append(missing, "exa.key")
			}
		case model.SourceTavily:
			if c.Tavily.Key == "" {
				missing = append(missing, "tavily.key")
			}
		case model.SourceNewsAPI:
			if c.NewsAPI.Key == "" {
				missing = append(missing, "newsapi.key")
			}
		}
	}
	switch c.LLM.Backend {
	case "anthropic":
		if c.LLM.Anthropic.Key == "" {
			missing = append(missing, "llm.anthropic.key")
		}
	default:
		if c.LLM.OpenAI.Key == "" {
			missing = append(missing, "llm.openai.key")
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
