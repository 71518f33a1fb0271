// services/discovery_service.go
package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/cache"
	"github.com/AI-Template-SDK/senso-geo/internal/discovery"
	"github.com/AI-Template-SDK/senso-geo/internal/logging"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

type discoveryService struct {
	pipeline *discovery.Pipeline
	store    *cache.Store
	logger   zerolog.Logger
}

// NewDiscoveryService wraps the pipeline. store may be nil to disable caching.
func NewDiscoveryService(pipeline *discovery.Pipeline, store *cache.Store, logger zerolog.Logger) DiscoveryService {
	return &discoveryService{
		pipeline: pipeline,
		store:    store,
		logger:   logging.Component(logger, "DiscoveryService"),
	}
}

func (s *discoveryService) Discover(ctx context.Context, req discovery.Request) (*models.DiscoveryResult, error) {
	if err := validateRequest("discovery", req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)
	if key != "" {
		var cached models.DiscoveryResult
		if ok, err := s.store.Get(key, &cached); err != nil {
			s.logger.Warn().Err(err).Msg("Cache read failed")
		} else if ok {
			s.logger.Info().Int("competitors", len(cached.Competitors)).Msg("Discovery result served from cache")
			return &cached, nil
		}
	}

	result, err := s.pipeline.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	switch {
	case key == "":
	case result.Partial():
		s.logger.Info().
			Int("failed_searches", result.FailedSearches).
			Int("transient_drops", result.TransientDrops).
			Msg("Partial discovery result not cached")
	default:
		if err := s.store.Set(key, result); err != nil {
			s.logger.Warn().Err(err).Msg("Cache write failed")
		}
	}
	return result, nil
}

func (s *discoveryService) cacheKey(req discovery.Request) string {
	if s.store == nil {
		return ""
	}
	key, err := cache.Key("discovery", req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to build cache key")
		return ""
	}
	return key
}
