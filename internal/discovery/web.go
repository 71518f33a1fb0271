package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

const resultsPerQuery = 10

// WebDiscovery harvests candidates from a search provider, one query at a
// time with a fixed delay between queries.
type WebDiscovery struct {
	provider   SearchProvider
	exclusions *Exclusions
	delay      time.Duration
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewWebDiscovery(provider SearchProvider, exclusions *Exclusions, delay time.Duration, m *metrics.Metrics, logger zerolog.Logger) *WebDiscovery {
	if exclusions == nil {
		exclusions = NewExclusions()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &WebDiscovery{
		provider:   provider,
		exclusions: exclusions,
		delay:      delay,
		metrics:    m,
		logger:     logger.With().Str("component", "WebDiscovery").Logger(),
	}
}

// BuildQueries derives up to maxQueries distinct search queries from the
// profile's industry, offerings, company type and region.
func BuildQueries(profile models.SemanticProfile, maxQueries int) []string {
	industry := strings.ToLower(strings.TrimSpace(profile.SubIndustry))
	if industry == "" {
		industry = strings.ToLower(strings.TrimSpace(profile.PrimaryIndustry))
	}
	region := profile.Region()

	var candidates []string
	if industry != "" {
		candidates = append(candidates, fmt.Sprintf("top %s companies %s", industry, region))
	}
	for _, o := range profile.TopOfferings {
		if o = strings.ToLower(strings.TrimSpace(o)); o != "" {
			candidates = append(candidates, fmt.Sprintf("best %s providers %s", o, region))
		}
	}
	if primary := strings.ToLower(strings.TrimSpace(profile.PrimaryIndustry)); primary != "" {
		candidates = append(candidates, fmt.Sprintf("%s leaders %s", primary, region))
		if ct := strings.ToLower(strings.TrimSpace(profile.CompanyType)); ct != "" {
			candidates = append(candidates, fmt.Sprintf("%s %s %s", ct, primary, region))
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, q := range candidates {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if maxQueries > 0 && len(out) == maxQueries {
			break
		}
	}
	return out
}

// Discover runs the profile's queries and returns filtered candidate URLs in
// the order the provider ranked them, with the number of queries that failed
// or never ran. A failed query is skipped; a provider that fails every query
// yields an empty result, never an error.
func (w *WebDiscovery) Discover(ctx context.Context, profile models.SemanticProfile, ownDomain string, maxQueries, maxCandidates int) ([]string, int) {
	queries := BuildQueries(profile, maxQueries)
	if len(queries) == 0 || w.provider == nil {
		return []string{}, 0
	}

	// a non-positive delay gives an unlimited limiter
	limiter := rate.NewLimiter(rate.Every(w.delay), 1)

	var raw []string
	failed := 0
	for i, q := range queries {
		if err := limiter.Wait(ctx); err != nil {
			w.logger.Warn().Err(err).Msg("Search stopped before all queries ran")
			failed += len(queries) - i
			break
		}
		urls, err := w.provider.Search(ctx, q, resultsPerQuery)
		if err != nil {
			failed++
			w.metrics.SearchQueries.WithLabelValues(w.provider.Name(), "error").Inc()
			w.logger.Warn().Err(err).Str("query", q).Msg("Search query failed, skipping")
			continue
		}
		w.metrics.SearchQueries.WithLabelValues(w.provider.Name(), "ok").Inc()
		w.logger.Debug().Str("query", q).Int("results", len(urls)).Msg("Search query complete")
		raw = append(raw, urls...)
	}

	out := filterCandidates(raw, w.exclusions, ownDomain)
	if maxCandidates > 0 && len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	if out == nil {
		out = []string{}
	}
	return out, failed
}
