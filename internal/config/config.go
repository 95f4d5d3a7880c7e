package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Checkpoint CheckpointConfig `yaml:"checkpoint" mapstructure:"checkpoint"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CheckpointConfig configures the durable checkpoint store.
type CheckpointConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`
	ArtifactsDir string `yaml:"artifacts_dir" mapstructure:"artifacts_dir"`
}

// OpenRouterConfig holds OpenRouter API settings for discovery web search.
type OpenRouterConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	SearchModel string  `yaml:"search_model" mapstructure:"search_model"`
	MicroModel  string  `yaml:"micro_model" mapstructure:"micro_model"`
	Referer     string  `yaml:"referer" mapstructure:"referer"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// AnthropicConfig holds Anthropic API settings for validation, enrichment and
// trend synthesis.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ResearchConfig carries the tuning constants of the evidence pipeline. The
// values are empirically tuned; treat them as configuration, not fixed law.
type ResearchConfig struct {
	WindowDays int                   `yaml:"window_days" mapstructure:"window_days"`
	Scoring    ScoringConfig         `yaml:"scoring" mapstructure:"scoring"`
	Dedup      DedupConfig           `yaml:"dedup" mapstructure:"dedup"`
	Modes      map[string]ModeConfig `yaml:"modes" mapstructure:"modes"`
}

// ScoringConfig holds the evidence score weights and penalties.
type ScoringConfig struct {
	RecencyMaxDays    int     `yaml:"recency_max_days" mapstructure:"recency_max_days"`
	PostRelevance     float64 `yaml:"post_relevance" mapstructure:"post_relevance"`
	PostRecency       float64 `yaml:"post_recency" mapstructure:"post_recency"`
	PostEngagement    float64 `yaml:"post_engagement" mapstructure:"post_engagement"`
	WebRelevance      float64 `yaml:"web_relevance" mapstructure:"web_relevance"`
	WebRecency        float64 `yaml:"web_recency" mapstructure:"web_recency"`
	WebFlatPenalty    float64 `yaml:"web_flat_penalty" mapstructure:"web_flat_penalty"`
	WebHighConfBonus  float64 `yaml:"web_high_conf_bonus" mapstructure:"web_high_conf_bonus"`
	WebLowConfPenalty float64 `yaml:"web_low_conf_penalty" mapstructure:"web_low_conf_penalty"`
	EngagementDefault int     `yaml:"engagement_default" mapstructure:"engagement_default"`
	EngagementPenalty float64 `yaml:"engagement_penalty" mapstructure:"engagement_penalty"`
	PrimaryWeight     float64 `yaml:"primary_weight" mapstructure:"primary_weight"`
	LowConfPenalty    float64 `yaml:"low_conf_penalty" mapstructure:"low_conf_penalty"`
	MedConfPenalty    float64 `yaml:"med_conf_penalty" mapstructure:"med_conf_penalty"`
	StrongThreshold   int     `yaml:"strong_threshold" mapstructure:"strong_threshold"`
}

// DedupConfig configures near-duplicate consolidation.
type DedupConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	ShingleSize         int     `yaml:"shingle_size" mapstructure:"shingle_size"`
}

// ModeConfig configures one depth mode of the orchestrator.
type ModeConfig struct {
	Queries           int `yaml:"queries" mapstructure:"queries"`
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
	PerSourceLimit    int `yaml:"per_source_limit" mapstructure:"per_source_limit"`
	EarlyStopFloor    int `yaml:"early_stop_floor" mapstructure:"early_stop_floor"`
	EarlyStopTotal    int `yaml:"early_stop_total" mapstructure:"early_stop_total"`
	EarlyStopStrong   int `yaml:"early_stop_strong" mapstructure:"early_stop_strong"`
	MaxCandidates     int `yaml:"max_candidates" mapstructure:"max_candidates"`
	EnrichConcurrency int `yaml:"enrich_concurrency" mapstructure:"enrich_concurrency"`
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
	v.SetEnvPrefix("NICHESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("checkpoint.path", "nichescout.db")
	v.SetDefault("checkpoint.artifacts_dir", "artifacts")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.search_model", "openai/gpt-4o:online")
	v.SetDefault("openrouter.micro_model", "x-ai/grok-4.1-fast:online")
	v.SetDefault("openrouter.referer", "https://github.com/heyimsteve/nichescout")
	v.SetDefault("openrouter.rate_limit", 1.0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.max_attempts", 3)
	v.SetDefault("research.window_days", 30)
	v.SetDefault("research.scoring.recency_max_days", 30)
	v.SetDefault("research.scoring.post_relevance", 0.45)
	v.SetDefault("research.scoring.post_recency", 0.25)
	v.SetDefault("research.scoring.post_engagement", 0.30)
	v.SetDefault("research.scoring.web_relevance", 0.55)
	v.SetDefault("research.scoring.web_recency", 0.45)
	v.SetDefault("research.scoring.web_flat_penalty", 6)
	v.SetDefault("research.scoring.web_high_conf_bonus", 4)
	v.SetDefault("research.scoring.web_low_conf_penalty", 6)
	v.SetDefault("research.scoring.engagement_default", 35)
	v.SetDefault("research.scoring.engagement_penalty", 3)
	v.SetDefault("research.scoring.primary_weight", 0.55)
	v.SetDefault("research.scoring.low_conf_penalty", 5)
	v.SetDefault("research.scoring.med_conf_penalty", 2)
	v.SetDefault("research.scoring.strong_threshold", 60)
	v.SetDefault("research.dedup.similarity_threshold", 0.70)
	v.SetDefault("research.dedup.shingle_size", 3)
	v.SetDefault("research.modes.quick.queries", 3)
	v.SetDefault("research.modes.quick.concurrency", 2)
	v.SetDefault("research.modes.quick.per_source_limit", 8)
	v.SetDefault("research.modes.quick.early_stop_floor", 3)
	v.SetDefault("research.modes.quick.early_stop_total", 16)
	v.SetDefault("research.modes.quick.early_stop_strong", 4)
	v.SetDefault("research.modes.quick.max_candidates", 3)
	v.SetDefault("research.modes.quick.enrich_concurrency", 2)
	v.SetDefault("research.modes.default.queries", 5)
	v.SetDefault("research.modes.default.concurrency", 3)
	v.SetDefault("research.modes.default.per_source_limit", 12)
	v.SetDefault("research.modes.default.early_stop_floor", 3)
	v.SetDefault("research.modes.default.early_stop_total", 24)
	v.SetDefault("research.modes.default.early_stop_strong", 6)
	v.SetDefault("research.modes.default.max_candidates", 5)
	v.SetDefault("research.modes.default.enrich_concurrency", 3)
	v.SetDefault("research.modes.deep.queries", 8)
	v.SetDefault("research.modes.deep.concurrency", 4)
	v.SetDefault("research.modes.deep.per_source_limit", 24)
	v.SetDefault("research.modes.deep.early_stop_floor", 4)
	v.SetDefault("research.modes.deep.early_stop_total", 40)
	v.SetDefault("research.modes.deep.early_stop_strong", 10)
	v.SetDefault("research.modes.deep.max_candidates", 8)
	v.SetDefault("research.modes.deep.enrich_concurrency", 4)

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

// Mode returns the configuration for a depth mode, falling back to default.
func (c *ResearchConfig) Mode(name string) ModeConfig {
	if m, ok := c.Modes[name]; ok {
		return m
	}
	return c.Modes["default"]
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
