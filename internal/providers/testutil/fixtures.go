package testutil

import (
	"time"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// SampleConfig returns a configuration with every platform enabled and
// short timeouts suitable for tests.
func SampleConfig() *config.Config {
	platform := func(name, model string) config.PlatformConfig {
		return config.PlatformConfig{
			Name:              name,
			Enabled:           true,
			Model:             model,
			Concurrency:       2,
			RequestsPerMinute: 6000,
			Timeout:           2 * time.Second,
			MaxTokens:         400,
		}
	}
	perplexity := platform(config.PlatformPerplexity, "sonar")
	perplexity.Transport = "api"

	return &config.Config{
		Environment:          "test",
		LogLevel:             "disabled",
		OpenAIAPIKey:         "test-openai-key",
		AnthropicAPIKey:      "test-anthropic-key",
		GeminiAPIKey:         "test-gemini-key",
		PerplexityAPIKey:     "test-perplexity-key",
		BrightDataAPIKey:     "test-api-key",
		BrightDataSERPAPIKey: "test-serp-key",
		PerplexityDatasetID:  "test-perplexity-id",
		Platforms: []config.PlatformConfig{
			platform(config.PlatformChatGPT, "gpt-4o"),
			platform(config.PlatformClaude, "claude-sonnet-4-20250514"),
			platform(config.PlatformGemini, "gemini-1.5-pro-002"),
			perplexity,
			platform(config.PlatformGoogleAI, ""),
		},
		Visibility: config.VisibilityConfig{
			BatchTimeout: 10 * time.Second,
			ContextChars: 100,
			Retry: config.RetryConfig{
				MaxRetries: 2,
				BaseDelay:  time.Millisecond,
				MaxDelay:   5 * time.Millisecond,
			},
			Breaker: config.BreakerConfig{MaxFailures: 5, Cooldown: time.Minute},
		},
		Extraction: config.ExtractionConfig{Enabled: true, Model: "gpt-4.1-mini"},
		Discovery: config.DiscoveryConfig{
			MaxCandidates:     20,
			MaxQueries:        4,
			MaxCompetitors:    5,
			SearchProvider:    "html",
			SearchDelay:       time.Millisecond,
			SearchTimeout:     2 * time.Second,
			ValidationTimeout: 2 * time.Second,
			ValidationRetries: 1,
			FetchConcurrency:  3,
			UserAgent:         "GEOBot-test/1.0",
			Thresholds:        models.Thresholds{Direct: 0.6, Indirect: 0.3},
		},
		Cache: config.CacheConfig{Enabled: false, Dir: "", TTL: time.Hour},
	}
}

func SampleBrand() models.BrandIdentity {
	return models.BrandIdentity{Name: "Adviso", Domain: "adviso.ca"}
}

// SampleLocation returns a test location
func SampleLocation() *models.Location {
	region := "Quebec"
	city := "Montreal"
	return &models.Location{
		Country: "CA",
		Region:  &region,
		City:    &city,
	}
}

func SampleQueries() []models.Query {
	return []models.Query{
		{Text: "What are the best digital marketing agencies in Montreal?", Priority: models.PriorityHigh, Classification: "non-branded"},
		{Text: "Which SEO agency should a Quebec retailer hire?", Priority: models.PriorityMedium, Classification: "comparison"},
		{Text: "Is Adviso a good agency?", Priority: models.PriorityLow, Classification: "branded"},
	}
}

func SampleProfile() models.SemanticProfile {
	return models.SemanticProfile{
		PrimaryIndustry: "marketing",
		SubIndustry:     "digital marketing agency",
		CompanyType:     "agency",
		TopOfferings:    []string{"seo", "paid search", "analytics"},
		Location:        SampleLocation(),
		Keywords:        []string{"marketing", "digital", "agency", "seo", "analytics", "montreal"},
	}
}

// SampleErrorResponse returns a mock error record from a BrightData snapshot
func SampleErrorResponse() string {
	return `[
		{
			"error": "Request timeout",
			"input": {
				"url": "https://www.perplexity.ai",
				"prompt": "What are the best digital marketing agencies in Montreal?",
				"country": "CA",
				"index": 1
			}
		}
	]`
}
