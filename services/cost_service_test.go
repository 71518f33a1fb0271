package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	s := NewCostService()
	tests := []struct {
		name      string
		provider  string
		model     string
		in, out   int
		websearch bool
		want      float64
	}{
		{"known model", "openai", "gpt-4o", 1_000_000, 1_000_000, false, 12.50},
		{"unknown model uses gpt-4.1", "openai", "gpt-unknown", 1_000_000, 0, false, 3.00},
		{"web search surcharge", "perplexity", "sonar", 1_000_000, 0, true, 1.008},
		{"claude alias for web search", "claude-sonnet", "claude-sonnet-4-20250514", 0, 0, true, 0.01},
		{"flat scraping request", "brightdata", "serp", 5000, 5000, false, 0.0015},
		{"flat scraping ignores web search", "perplexity", "perplexity-web", 0, 0, true, 0.0015},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.CalculateCost(tt.provider, tt.model, tt.in, tt.out, tt.websearch)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
