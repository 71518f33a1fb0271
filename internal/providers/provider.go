package providers

import (
	"context"
	"time"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

// PlatformAdapter probes one AI-answer platform. Probe never returns an
// error: failures are recorded on the result so one platform cannot abort a
// batch. Probe must return promptly once ctx is done.
type PlatformAdapter interface {
	Platform() string
	Probe(ctx context.Context, query models.Query, brand models.BrandIdentity, timeout time.Duration) *models.PlatformResult
	// Concurrency is the number of probes the orchestrator may run at once
	Concurrency() int
	Close() error
}

// CompetitorExtractor pulls structured competitor mentions out of an answer.
// The returned cost is what the extraction call was billed, failed or not.
type CompetitorExtractor interface {
	ExtractCompetitors(ctx context.Context, answer string, brand models.BrandIdentity) ([]models.CompetitorMention, float64, error)
}
