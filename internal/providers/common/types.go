package common

import "context"

// BrightData API response structures (shared across all BrightData-based clients)

// TriggerResponse is returned when submitting a job to BrightData
type TriggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// ProgressResponse contains the status of a BrightData job
type ProgressResponse struct {
	Status             string `json:"status"`
	SnapshotID         string `json:"snapshot_id"`
	DatasetID          string `json:"dataset_id"`
	Records            *int   `json:"records,omitempty"`
	Errors             *int   `json:"errors,omitempty"`
	CollectionDuration *int   `json:"collection_duration,omitempty"`
}

// StatusResponse is used to check if response is a status object rather than results
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AIResponse is one answer returned by a platform
type AIResponse struct {
	Response     string
	Model        string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Citations    []string
}

// AnswerClient sends one prompt to one AI-answer provider. Implementations
// are built once per platform and reused by every probe.
type AnswerClient interface {
	Name() string
	Ask(ctx context.Context, prompt string) (*AIResponse, error)
	Close() error
}

// CostCalculator prices a call from its token usage
type CostCalculator interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int, websearch bool) float64
}

// FlatCost prices every call at the same amount. Used for scraping
// transports that do not report token usage.
type FlatCost float64

func (f FlatCost) CalculateCost(string, string, int, int, bool) float64 {
	return float64(f)
}
