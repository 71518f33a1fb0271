// services/visibility_service.go
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/cache"
	"github.com/AI-Template-SDK/senso-geo/internal/logging"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/visibility"
)

type visibilityService struct {
	orchestrator *visibility.Orchestrator
	batchTimeout time.Duration
	store        *cache.Store
	logger       zerolog.Logger
}

// NewVisibilityService wraps the orchestrator. store may be nil to disable caching.
func NewVisibilityService(orchestrator *visibility.Orchestrator, batchTimeout time.Duration, store *cache.Store, logger zerolog.Logger) VisibilityService {
	return &visibilityService{
		orchestrator: orchestrator,
		batchTimeout: batchTimeout,
		store:        store,
		logger:       logging.Component(logger, "VisibilityService"),
	}
}

func (s *visibilityService) Probe(ctx context.Context, req ProbeRequest) (*models.VisibilityReport, error) {
	if err := validateRequest("probe", req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)
	if key != "" {
		var cached models.VisibilityReport
		if ok, err := s.store.Get(key, &cached); err != nil {
			s.logger.Warn().Err(err).Msg("Cache read failed")
		} else if ok {
			s.logger.Info().Str("run_id", cached.RunID.String()).Msg("Visibility report served from cache")
			return &cached, nil
		}
	}

	report, err := s.orchestrator.Run(ctx, req.Queries, req.Platforms, req.Brand, s.batchTimeout)
	if err != nil {
		return nil, err
	}

	switch {
	case key == "":
	case report.Partial():
		// failed probes are retried by the next identical request
		s.logger.Info().
			Str("run_id", report.RunID.String()).
			Interface("failed_by_platform", report.Summary.FailedByPlatform).
			Msg("Partial visibility report not cached")
	default:
		if err := s.store.Set(key, report); err != nil {
			s.logger.Warn().Err(err).Msg("Cache write failed")
		}
	}
	return report, nil
}

func (s *visibilityService) cacheKey(req ProbeRequest) string {
	if s.store == nil {
		return ""
	}
	key, err := cache.Key("visibility", req.Brand, req.Queries, req.Platforms)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to build cache key")
		return ""
	}
	return key
}
