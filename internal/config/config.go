package config

// Package config handles configuration loading for newsimpact.
// It supports YAML config files with environment variable overrides.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for every environment override.
const EnvPrefix = "NEWSIMPACT"

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"`
	News     NewsConfig     `mapstructure:"news"     yaml:"news"`
	Output   OutputConfig   `mapstructure:"output"   yaml:"output"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig selects the model service and how it is called.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"            yaml:"provider"            validate:"oneof=openai anthropic gemini ollama"`
	Model             string        `mapstructure:"model"               yaml:"model"               validate:"required"`
	BaseURL           string        `mapstructure:"base_url"            yaml:"base_url"            validate:"omitempty,url"` // alternate endpoint
	OllamaURL         string        `mapstructure:"ollama_url"          yaml:"ollama_url"          validate:"omitempty,url"`
	OpenAIKey         string        `mapstructure:"openai_key"          yaml:"openai_key"`
	AnthropicKey      string        `mapstructure:"anthropic_key"       yaml:"anthropic_key"`
	GeminiKey         string        `mapstructure:"gemini_key"          yaml:"gemini_key"`
	Temperature       float64       `mapstructure:"temperature"         yaml:"temperature"         validate:"gte=0,lte=2"`
	MaxTokens         int           `mapstructure:"max_tokens"          yaml:"max_tokens"          validate:"gte=1"`
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"             validate:"gt=0"`
	MaxAttempts       int           `mapstructure:"max_attempts"        yaml:"max_attempts"        validate:"gte=1,lte=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"         yaml:"retry_delay"         validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"` // 0 = unlimited
}

// AnalysisConfig holds the analysis pipeline settings.
type AnalysisConfig struct {
	MaxConcurrency      int           `mapstructure:"max_concurrency"       yaml:"max_concurrency"       validate:"gte=1,lte=64"`
	CompletionDelay     time.Duration `mapstructure:"completion_delay"      yaml:"completion_delay"      validate:"gte=0"`
	ContentLimit        int           `mapstructure:"content_limit"         yaml:"content_limit"         validate:"gte=1"`
	SummaryLimit        int           `mapstructure:"summary_limit"         yaml:"summary_limit"         validate:"gte=1,lte=100"`
	HighImpactThreshold int           `mapstructure:"high_impact_threshold" yaml:"high_impact_threshold" validate:"gte=1,lte=10"`
	TopSectors          int           `mapstructure:"top_sectors"           yaml:"top_sectors"           validate:"gte=1"`
}

// CacheConfig controls the model result cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"   yaml:"enabled"`
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url"` // empty = in-memory
	TTL      time.Duration `mapstructure:"ttl"       yaml:"ttl"       validate:"gte=0"`
}

// FeedConfig is one RSS source.
type FeedConfig struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
	URL  string `mapstructure:"url"  yaml:"url"  validate:"required,url"`
}

// NewsConfig holds RSS ingestion settings.
type NewsConfig struct {
	Feeds         []FeedConfig `mapstructure:"feeds"           yaml:"feeds"           validate:"dive"`
	RatePerSecond float64      `mapstructure:"rate_per_second" yaml:"rate_per_second" validate:"gt=0"`
	MaxItems      int          `mapstructure:"max_items"       yaml:"max_items"       validate:"gte=1"`
}

// OutputConfig is where result files are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// ScheduleConfig holds the cron spec of the daily job.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron" yaml:"cron" validate:"required"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         validate:"gte=1,lte=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.newsimpact/config.yaml (home directory)
//  3. /etc/newsimpact/config.yaml (system)
//
// Environment variables override config file values.
// Format: NEWSIMPACT_<SECTION>_<KEY>, e.g., NEWSIMPACT_LLM_MODEL
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".newsimpact"))
	v.AddConfigPath("/etc/newsimpact")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks every section against its constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.openai_key", "")
	v.SetDefault("llm.anthropic_key", "")
	v.SetDefault("llm.gemini_key", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.requests_per_second", 0.0)

	// Analysis defaults
	v.SetDefault("analysis.max_concurrency", 5)
	v.SetDefault("analysis.completion_delay", 500*time.Millisecond)
	v.SetDefault("analysis.content_limit", 500)
	v.SetDefault("analysis.summary_limit", 100)
	v.SetDefault("analysis.high_impact_threshold", 7)
	v.SetDefault("analysis.top_sectors", 5)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", 24*time.Hour)

	// News defaults
	v.SetDefault("news.feeds", []map[string]string{})
	v.SetDefault("news.rate_per_second", 2.0)
	v.SetDefault("news.max_items", 100)

	v.SetDefault("output.dir", "./output")
	v.SetDefault("schedule.cron", "0 18 * * *") // after the A-share close

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvPrefix + "_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_ANTHROPIC_KEY"); key != "" {
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv(EnvPrefix + "_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
