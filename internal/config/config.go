// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Events    EventsConfig    `yaml:"events" mapstructure:"events"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the cache/cost-log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// AnthropicConfig holds Anthropic API settings for the extraction engine.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina Reader/Search settings for the news side signal and
// scrape fallback.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FetchConfig configures the two-tier content fetcher.
type FetchConfig struct {
	MinContentChars  int  `yaml:"min_content_chars" mapstructure:"min_content_chars"`
	MaxRetries       int  `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffInitialMs int  `yaml:"backoff_initial_ms" mapstructure:"backoff_initial_ms"`
	RenderTimeoutSecs int `yaml:"render_timeout_secs" mapstructure:"render_timeout_secs"`
	RenderSettleSecs int  `yaml:"render_settle_secs" mapstructure:"render_settle_secs"`
	EnableRender     bool `yaml:"enable_render" mapstructure:"enable_render"`
	RateLimitMs      int  `yaml:"rate_limit_ms" mapstructure:"rate_limit_ms"`
}

// PipelineConfig configures orchestrator behavior. All toggles are injected
// at construction; nothing reads the environment at call time.
type PipelineConfig struct {
	CacheTTLDays        int  `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	BackupCacheTTLDays  int  `yaml:"backup_cache_ttl_days" mapstructure:"backup_cache_ttl_days"`
	DedupTTLHours       int  `yaml:"dedup_ttl_hours" mapstructure:"dedup_ttl_hours"`
	EnableDedup         bool `yaml:"enable_dedup" mapstructure:"enable_dedup"`
	EscalationThreshold int  `yaml:"escalation_threshold" mapstructure:"escalation_threshold"`
	ValidateTimeoutSecs int  `yaml:"validate_timeout_secs" mapstructure:"validate_timeout_secs"`
}

// BatchConfig configures batch enrichment.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	PauseSecs     int `yaml:"pause_secs" mapstructure:"pause_secs"`
}

// PricingConfig holds per-provider rates and the reference cost of the paid
// alternative used for savings accounting.
type PricingConfig struct {
	Anthropic          map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Jina               JinaPricing             `yaml:"jina" mapstructure:"jina"`
	ScrapeCallUSD      float64                 `yaml:"scrape_call_usd" mapstructure:"scrape_call_usd"`
	ReferenceLookupUSD float64                 `yaml:"reference_lookup_usd" mapstructure:"reference_lookup_usd"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// JinaPricing holds Jina Reader/Search pricing.
type JinaPricing struct {
	PerMTok       float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
	SearchCallUSD float64 `yaml:"search_call_usd" mapstructure:"search_call_usd"`
}

// EventsConfig configures the fire-and-forget notification sink.
type EventsConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "enrich.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("fetch.min_content_chars", 200)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_initial_ms", 2000)
	v.SetDefault("fetch.render_timeout_secs", 30)
	v.SetDefault("fetch.render_settle_secs", 2)
	v.SetDefault("fetch.enable_render", true)
	v.SetDefault("fetch.rate_limit_ms", 1000)
	v.SetDefault("pipeline.cache_ttl_days", 7)
	v.SetDefault("pipeline.backup_cache_ttl_days", 3)
	v.SetDefault("pipeline.dedup_ttl_hours", 24)
	v.SetDefault("pipeline.enable_dedup", true)
	v.SetDefault("pipeline.escalation_threshold", 30)
	v.SetDefault("pipeline.validate_timeout_secs", 5)
	v.SetDefault("batch.max_concurrent", 5)
	v.SetDefault("batch.pause_secs", 2)
	v.SetDefault("pricing.jina.per_mtok", 0.02)
	v.SetDefault("pricing.jina.search_call_usd", 0.005)
	v.SetDefault("pricing.scrape_call_usd", 0.001)
	v.SetDefault("pricing.reference_lookup_usd", 0.50)
	v.SetDefault("pricing.anthropic", map[string]any{
		"claude-haiku-4-5-20251001":  map[string]any{"input": 0.80, "output": 4.00},
		"claude-sonnet-4-5-20250929": map[string]any{"input": 3.00, "output": 15.00},
	})

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
