package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

const (
	DefaultBrightDataBaseURL = "https://api.brightdata.com/datasets/v3"
	defaultPollInterval      = 10 * time.Second
	maxSnapshotAttempts      = 20
)

// BrightDataClient handles all HTTP interactions with the BrightData dataset API
type BrightDataClient struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       zerolog.Logger
}

type BrightDataOption func(*BrightDataClient)

func WithBaseURL(u string) BrightDataOption {
	return func(c *BrightDataClient) { c.baseURL = u }
}

// WithPollInterval sets the delay between progress checks and between
// snapshot fetches while the snapshot is still building.
func WithPollInterval(d time.Duration) BrightDataOption {
	return func(c *BrightDataClient) { c.pollInterval = d }
}

func WithHTTPClient(hc *http.Client) BrightDataOption {
	return func(c *BrightDataClient) { c.httpClient = hc }
}

func WithLogger(l zerolog.Logger) BrightDataOption {
	return func(c *BrightDataClient) { c.logger = l }
}

// NewBrightDataClient creates a new BrightData API client. Requests are
// bounded by the caller's context, not by a client timeout.
func NewBrightDataClient(apiKey string, opts ...BrightDataOption) *BrightDataClient {
	c := &BrightDataClient{
		apiKey:       apiKey,
		baseURL:      DefaultBrightDataBaseURL,
		pollInterval: defaultPollInterval,
		httpClient:   &http.Client{},
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitBatchJob submits a batch job to BrightData and returns its snapshot id
func (c *BrightDataClient) SubmitBatchJob(ctx context.Context, payload interface{}, datasetID string) (string, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/trigger?dataset_id=%s&include_errors=true", c.baseURL, datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", StatusError("brightdata", resp.StatusCode, fmt.Errorf("trigger failed: %s", body))
	}

	var triggerResp TriggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&triggerResp); err != nil {
		return "", NewUpstreamError("brightdata", models.ErrUpstreamError, fmt.Errorf("failed to decode trigger response: %w", err))
	}
	if triggerResp.SnapshotID == "" {
		return "", NewUpstreamError("brightdata", models.ErrUpstreamError, fmt.Errorf("trigger response has no snapshot id"))
	}
	return triggerResp.SnapshotID, nil
}

// CheckProgress checks the progress of a BrightData job
func (c *BrightDataClient) CheckProgress(ctx context.Context, snapshotID string) (*ProgressResponse, error) {
	url := fmt.Sprintf("%s/progress/%s", c.baseURL, snapshotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check progress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, StatusError("brightdata", resp.StatusCode, nil)
	}

	var progressResp ProgressResponse
	if err := json.NewDecoder(resp.Body).Decode(&progressResp); err != nil {
		return nil, fmt.Errorf("failed to decode progress response: %w", err)
	}
	return &progressResp, nil
}

// PollUntilComplete polls until the snapshot is ready. Transient progress
// errors are logged and polled again; the context bounds the wait.
func (c *BrightDataClient) PollUntilComplete(ctx context.Context, snapshotID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	pollCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pollCount++
			status, err := c.CheckProgress(ctx, snapshotID)
			if err != nil {
				c.logger.Warn().Err(err).Int("poll", pollCount).Str("snapshot_id", snapshotID).Msg("Progress check failed, retrying")
				continue
			}

			c.logger.Debug().Str("status", status.Status).Int("poll", pollCount).Str("snapshot_id", snapshotID).Msg("Batch job status")

			switch status.Status {
			case "ready":
				return nil
			case "failed":
				return NewUpstreamError("brightdata", models.ErrUpstreamError, fmt.Errorf("batch job failed for snapshot %s", snapshotID))
			}
		}
	}
}

// GetBatchResults retrieves the raw results of a completed job, waiting
// while the snapshot is still building.
func (c *BrightDataClient) GetBatchResults(ctx context.Context, snapshotID string) ([]byte, error) {
	url := fmt.Sprintf("%s/snapshot/%s?format=json", c.baseURL, snapshotID)

	for attempt := 1; attempt <= maxSnapshotAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create results request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to get results: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			resp.Body.Close()
			return nil, StatusError("brightdata", resp.StatusCode, nil)
		}
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		isStatus, status, message := IsStatusResponse(bodyBytes)
		if !isStatus {
			return bodyBytes, nil
		}
		switch status {
		case "building":
			c.logger.Debug().Int("attempt", attempt).Str("snapshot_id", snapshotID).Msg("Snapshot still building")
			select {
			case <-time.After(c.pollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		case "failed":
			return nil, NewUpstreamError("brightdata", models.ErrUpstreamError, fmt.Errorf("snapshot failed: %s", message))
		default:
			c.logger.Warn().Str("status", status).Msg("Unknown snapshot status, decoding as results")
			return bodyBytes, nil
		}
	}

	return nil, NewUpstreamError("brightdata", models.ErrUpstreamError, fmt.Errorf("snapshot still building after %d attempts", maxSnapshotAttempts))
}
