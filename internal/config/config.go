// internal/config/config.go
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

//go:embed default.yaml
var defaultYAML []byte

// Platform ids understood by the provider registry
const (
	PlatformChatGPT    = "chatgpt"
	PlatformClaude     = "claude"
	PlatformGemini     = "gemini"
	PlatformPerplexity = "perplexity"
	PlatformGoogleAI   = "google_ai"
)

type PlatformConfig struct {
	Name              string        `yaml:"name"`
	Enabled           bool          `yaml:"enabled"`
	Model             string        `yaml:"model"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxTokens         int           `yaml:"max_tokens"`
	Transport         string        `yaml:"transport"` // perplexity only: api | brightdata
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Jitter     float64       `yaml:"jitter"`
}

type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

type VisibilityConfig struct {
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	ContextChars int           `yaml:"context_chars"`
	Retry        RetryConfig   `yaml:"retry"`
	Breaker      BreakerConfig `yaml:"breaker"`
}

type ExtractionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

type DiscoveryConfig struct {
	MaxCandidates     int               `yaml:"max_candidates"`
	MaxQueries        int               `yaml:"max_queries"`
	MaxCompetitors    int               `yaml:"max_competitors"`
	SearchProvider    string            `yaml:"search_provider"` // html | linkup
	SearchDelay       time.Duration     `yaml:"search_delay"`
	SearchTimeout     time.Duration     `yaml:"search_timeout"`
	ValidationTimeout time.Duration     `yaml:"validation_timeout"`
	ValidationRetries int               `yaml:"validation_retries"`
	FetchConcurrency  int               `yaml:"fetch_concurrency"`
	UserAgent         string            `yaml:"user_agent"`
	Thresholds        models.Thresholds `yaml:"thresholds"`
	ExcludedDomains   []string          `yaml:"excluded_domains"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

type Config struct {
	Port              string `yaml:"-"`
	Environment       string `yaml:"-"`
	LogLevel          string `yaml:"-"`
	InngestEventKey   string `yaml:"-"`
	InngestSigningKey string `yaml:"-"`
	SlackWebhookURL   string `yaml:"-"`

	OpenAIAPIKey         string `yaml:"-"`
	AnthropicAPIKey      string `yaml:"-"`
	GeminiAPIKey         string `yaml:"-"`
	PerplexityAPIKey     string `yaml:"-"`
	BrightDataAPIKey     string `yaml:"-"`
	BrightDataSERPAPIKey string `yaml:"-"`
	PerplexityDatasetID  string `yaml:"-"`
	LinkupAPIKey         string `yaml:"-"`

	Platforms  []PlatformConfig `yaml:"platforms"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Cache      CacheConfig      `yaml:"cache"`
}

// Load builds the configuration from the embedded defaults, an optional
// GEO_CONFIG_FILE overlay and the environment, in that order.
func Load() (*Config, error) {
	cfg, err := parse(defaultYAML)
	if err != nil {
		return nil, fmt.Errorf("invalid embedded defaults: %w", err)
	}

	if path := os.Getenv("GEO_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := overlay(cfg, data); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay merges a user file on top of cfg. Platforms are merged by name so a
// file only has to mention what it changes.
func overlay(cfg *Config, data []byte) error {
	base := make(map[string]PlatformConfig, len(cfg.Platforms))
	order := make([]string, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		base[p.Name] = p
		order = append(order, p.Name)
	}

	var file struct {
		Platforms []yaml.Node `yaml:"platforms"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	existing := cfg.Platforms
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	if len(file.Platforms) == 0 {
		cfg.Platforms = existing
		return nil
	}

	for _, node := range file.Platforms {
		var named struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&named); err != nil {
			return err
		}
		p, ok := base[named.Name]
		if !ok {
			order = append(order, named.Name)
		}
		if err := node.Decode(&p); err != nil {
			return err
		}
		base[named.Name] = p
	}

	cfg.Platforms = cfg.Platforms[:0]
	for _, name := range order {
		cfg.Platforms = append(cfg.Platforms, base[name])
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", "8000")
	cfg.Environment = getEnv("ENVIRONMENT", "development")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.InngestEventKey = os.Getenv("INNGEST_EVENT_KEY")
	cfg.InngestSigningKey = os.Getenv("INNGEST_SIGNING_KEY")
	cfg.SlackWebhookURL = os.Getenv("SLACK_WEBHOOK_URL")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.PerplexityAPIKey = os.Getenv("PERPLEXITY_API_KEY")
	cfg.BrightDataAPIKey = os.Getenv("BRIGHTDATA_API_KEY")
	cfg.BrightDataSERPAPIKey = os.Getenv("BRIGHTDATA_SERP_API_KEY")
	cfg.PerplexityDatasetID = getEnv("PERPLEXITY_DATASET_ID", "gd_m7dhdot1vw9a7gc1n")
	cfg.LinkupAPIKey = os.Getenv("LINKUP_API_KEY")

	if list := os.Getenv("GEO_PLATFORMS"); list != "" {
		enabled := make(map[string]bool)
		for _, name := range strings.Split(list, ",") {
			enabled[strings.TrimSpace(strings.ToLower(name))] = true
		}
		for i := range cfg.Platforms {
			cfg.Platforms[i].Enabled = enabled[cfg.Platforms[i].Name]
		}
	}

	if secs := getEnvInt("VISIBILITY_TIMEOUT_SECONDS", 0); secs > 0 {
		for i := range cfg.Platforms {
			cfg.Platforms[i].Timeout = time.Duration(secs) * time.Second
		}
	}
	if secs := getEnvInt("BATCH_TIMEOUT_SECONDS", 0); secs > 0 {
		cfg.Visibility.BatchTimeout = time.Duration(secs) * time.Second
	}
	cfg.Visibility.Retry.MaxRetries = getEnvInt("ANALYSIS_RETRY_COUNT", cfg.Visibility.Retry.MaxRetries)

	cfg.Extraction.Model = getEnv("EXTRACTION_MODEL", cfg.Extraction.Model)

	cfg.Discovery.SearchProvider = getEnv("SEARCH_PROVIDER", cfg.Discovery.SearchProvider)
	cfg.Discovery.MaxCompetitors = getEnvInt("MAX_COMPETITORS", cfg.Discovery.MaxCompetitors)
	cfg.Discovery.Thresholds.Direct = getEnvFloat("COMPETITOR_THRESHOLD_DIRECT", cfg.Discovery.Thresholds.Direct)
	cfg.Discovery.Thresholds.Indirect = getEnvFloat("COMPETITOR_THRESHOLD_INDIRECT", cfg.Discovery.Thresholds.Indirect)

	cfg.Cache.Enabled = getEnvBool("CACHE_ENABLED", cfg.Cache.Enabled)
	cfg.Cache.Dir = getEnv("CACHE_DIR", cfg.Cache.Dir)
	if hours := getEnvInt("CACHE_TTL_HOURS", 0); hours > 0 {
		cfg.Cache.TTL = time.Duration(hours) * time.Hour
	}
}

// EnabledPlatforms returns the enabled platform configs in declaration order
func (c *Config) EnabledPlatforms() []PlatformConfig {
	var out []PlatformConfig
	for _, p := range c.Platforms {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Platform looks up a platform config by name
func (c *Config) Platform(name string) (PlatformConfig, bool) {
	for _, p := range c.Platforms {
		if p.Name == name {
			return p, true
		}
	}
	return PlatformConfig{}, false
}

// Validate reports the configuration errors that must stop a run before any
// work is dispatched.
func (c *Config) Validate() error {
	enabled := c.EnabledPlatforms()
	if len(enabled) == 0 {
		return errors.New("no platforms enabled")
	}

	var errs []error
	for _, p := range enabled {
		if key := c.credentialFor(p); key == "" {
			errs = append(errs, fmt.Errorf("platform %s: missing credentials", p.Name))
		}
		if p.Concurrency <= 0 {
			errs = append(errs, fmt.Errorf("platform %s: concurrency must be positive", p.Name))
		}
	}
	if c.Extraction.Enabled && c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("extraction: OPENAI_API_KEY is required"))
	}
	t := c.Discovery.Thresholds
	if t.Indirect < 0 || t.Direct > 1 || t.Indirect > t.Direct {
		errs = append(errs, fmt.Errorf("discovery: invalid thresholds direct=%.2f indirect=%.2f", t.Direct, t.Indirect))
	}
	if c.Discovery.SearchProvider == "linkup" && c.LinkupAPIKey == "" {
		errs = append(errs, errors.New("discovery: LINKUP_API_KEY is required for the linkup search provider"))
	}
	return errors.Join(errs...)
}

func (c *Config) credentialFor(p PlatformConfig) string {
	switch p.Name {
	case PlatformChatGPT:
		return c.OpenAIAPIKey
	case PlatformClaude:
		return c.AnthropicAPIKey
	case PlatformGemini:
		return c.GeminiAPIKey
	case PlatformPerplexity:
		if p.Transport == "brightdata" {
			return c.BrightDataAPIKey
		}
		return c.PerplexityAPIKey
	case PlatformGoogleAI:
		return c.BrightDataSERPAPIKey
	}
	return "unknown"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
