package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type SlackPayload struct {
	Text string `json:"text"`
}

// SlackAlerter posts pipeline failures to an incoming webhook. A zero
// webhook URL turns every report into a no-op.
type SlackAlerter struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
	}
}

// ReportPipelineFailure reports a failed workflow with the brand and run it
// was working on.
func (a *SlackAlerter) ReportPipelineFailure(ctx context.Context, pipeline, brand, reason string, err error) error {
	if err == nil || a == nil || a.webhookURL == "" {
		return nil
	}
	if brand == "" {
		brand = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}

	message := fmt.Sprintf(
		":rotating_light: *GEO Pipeline Error*\n"+
			"*Time:* %s\n"+
			"*Pipeline:* %s\n"+
			"*Brand:* %s\n"+
			"*Reason:* %s\n"+
			"*Error:* ```%s```",
		a.now().UTC().Format(time.RFC3339),
		pipeline,
		brand,
		reason,
		err.Error(),
	)

	body, err := json.Marshal(SlackPayload{Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
