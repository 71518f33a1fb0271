// workflows/maintenance_processor.go
package workflows

import (
	"context"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/cache"
	"github.com/AI-Template-SDK/senso-geo/internal/logging"
)

type MaintenanceProcessor struct {
	store  *cache.Store
	client inngestgo.Client
	logger zerolog.Logger
}

func NewMaintenanceProcessor(store *cache.Store, logger zerolog.Logger) *MaintenanceProcessor {
	return &MaintenanceProcessor{
		store:  store,
		logger: logging.Component(logger, "MaintenanceProcessor"),
	}
}

func (p *MaintenanceProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// WeeklyCacheCleanup removes expired cache entries and reports what is left
func (p *MaintenanceProcessor) WeeklyCacheCleanup() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "weekly-cache-cleanup",
			Name: "Clean Up Expired Analysis Cache",
		},
		inngestgo.CronTrigger("0 3 * * 0"), // Every Sunday at 3 AM UTC
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			removed, err := step.Run(ctx, "cleanup-expired", func(ctx context.Context) (int, error) {
				return p.store.CleanupExpired()
			})
			if err != nil {
				return nil, err
			}

			stats, err := step.Run(ctx, "cache-stats", func(ctx context.Context) (cache.Stats, error) {
				return p.store.Stats()
			})
			if err != nil {
				return nil, err
			}

			p.logger.Info().
				Int("removed", removed).
				Int("entries", stats.Entries).
				Int64("bytes", stats.Bytes).
				Msg("Cache cleanup complete")

			return map[string]interface{}{
				"removed": removed,
				"stats":   stats,
			}, nil
		},
	)

	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to create cache cleanup function")
	}

	return fn
}
