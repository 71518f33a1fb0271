// Package visibility fans queries out across the platform adapters and
// aggregates the results into a VisibilityReport.
package visibility

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers"
)

// AdapterSource resolves platform ids to adapters. An empty list means every
// available platform.
type AdapterSource interface {
	Adapters(names []string) ([]providers.PlatformAdapter, error)
}

type Orchestrator struct {
	source       AdapterSource
	probeTimeout time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

type Option func(*Orchestrator)

// WithProbeTimeout overrides every platform's per-call timeout
func WithProbeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.probeTimeout = d
	}
}

func New(source AdapterSource, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: source,
		logger: logger.With().Str("component", "VisibilityOrchestrator").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type task struct {
	query    int
	platform int
}

type outcome struct {
	task
	result *models.PlatformResult
}

// Run probes every (query, platform) pair. Each platform runs at most
// Concurrency() probes at once. When batchTimeout elapses outstanding probes
// are cancelled and every pair without a result is recorded as timed out.
// The only errors are configuration errors found before anything runs.
func (o *Orchestrator) Run(ctx context.Context, queries []models.Query, platforms []string, brand models.BrandIdentity, batchTimeout time.Duration) (*models.VisibilityReport, error) {
	if len(queries) == 0 {
		return nil, errors.New("no queries to probe")
	}
	adapters, err := o.source.Adapters(platforms)
	if err != nil {
		return nil, fmt.Errorf("resolving platforms: %w", err)
	}
	if len(adapters) == 0 {
		return nil, errors.New("no platforms configured")
	}

	report := &models.VisibilityReport{
		RunID:     uuid.New(),
		Brand:     brand,
		Platforms: make([]string, len(adapters)),
		Queries:   make([]models.QueryResults, len(queries)),
		StartedAt: o.now().UTC(),
	}
	for i, a := range adapters {
		report.Platforms[i] = a.Platform()
	}
	for i, q := range queries {
		report.Queries[i] = models.QueryResults{
			Query:           q,
			PlatformResults: make([]*models.PlatformResult, len(adapters)),
		}
	}

	o.logger.Info().
		Str("run_id", report.RunID.String()).
		Int("queries", len(queries)).
		Strs("platforms", report.Platforms).
		Dur("batch_timeout", batchTimeout).
		Msg("Starting visibility batch")

	batchCtx, cancel := ctx, context.CancelFunc(func() {})
	if batchTimeout > 0 {
		batchCtx, cancel = context.WithTimeout(ctx, batchTimeout)
	}
	defer cancel()

	// buffered for every task so a probe finishing after the collector has
	// moved on never blocks
	results := make(chan outcome, len(queries)*len(adapters))
	var wg sync.WaitGroup
	for pi, adapter := range adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.dispatch(batchCtx, &wg, adapter, pi, queries, brand, results)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		report.Queries[r.query].PlatformResults[r.platform] = r.result
	}

	timedOut := 0
	for qi := range report.Queries {
		for pi, res := range report.Queries[qi].PlatformResults {
			if res != nil {
				continue
			}
			timedOut++
			report.Queries[qi].PlatformResults[pi] = timeoutResult(report.Platforms[pi], queries[qi])
		}
	}

	report.Summary = Summarize(report.Platforms, report.Queries)
	report.CompletedAt = o.now().UTC()

	o.logger.Info().
		Str("run_id", report.RunID.String()).
		Float64("overall_visibility", report.Summary.OverallVisibility).
		Int("not_dispatched", timedOut).
		Dur("elapsed", report.CompletedAt.Sub(report.StartedAt)).
		Msg("Visibility batch complete")
	return report, nil
}

// dispatch runs one platform's share of the batch under its own semaphore
// so a slow platform cannot hold up the others.
func (o *Orchestrator) dispatch(ctx context.Context, wg *sync.WaitGroup, adapter providers.PlatformAdapter, pi int, queries []models.Query, brand models.BrandIdentity, results chan<- outcome) {
	sem := semaphore.NewWeighted(int64(max(adapter.Concurrency(), 1)))
	for qi, q := range queries {
		if err := sem.Acquire(ctx, 1); err != nil {
			o.logger.Warn().Str("platform", adapter.Platform()).Int("remaining", len(queries)-qi).Msg("Batch deadline reached before dispatch")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			res := adapter.Probe(ctx, q, brand, o.probeTimeout)
			o.logger.Debug().
				Str("platform", adapter.Platform()).
				Str("query", q.Text).
				Bool("mentioned", res.Mentioned).
				Int("attempts", res.Attempts).
				Msg("Probe finished")
			results <- outcome{task: task{query: qi, platform: pi}, result: res}
		}()
	}
}

func timeoutResult(platform string, q models.Query) *models.PlatformResult {
	return &models.PlatformResult{
		Platform:             platform,
		Query:                q,
		Sentiment:            models.SentimentNeutral,
		CompetitorsMentioned: []models.CompetitorMention{},
		Error:                models.ErrUpstreamTimeout.Ptr(),
		ErrorDetail:          "batch deadline reached before the probe completed",
	}
}
