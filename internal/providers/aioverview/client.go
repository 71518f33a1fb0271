// Package aioverview probes Google AI Overviews through the BrightData SERP API.
package aioverview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

const (
	DefaultEndpoint = "https://api.brightdata.com/request"
	DefaultZone     = "serp_api1"
)

type Request struct {
	Zone   string `json:"zone"`
	URL    string `json:"url"`
	Format string `json:"format"`
}

type SERPResponse struct {
	General    General   `json:"general"`
	AIOverview *Overview `json:"ai_overview"`
	Organic    []Organic `json:"organic"`
}

type General struct {
	SearchEngine string `json:"search_engine"`
	Query        string `json:"query"`
	CountryCode  string `json:"country_code"`
}

type Overview struct {
	Texts      []Text      `json:"texts"`
	References []Reference `json:"references"`
}

type Text struct {
	Type    string `json:"type"`
	Snippet string `json:"snippet"`
	Title   string `json:"title,omitempty"`
	List    []Text `json:"list,omitempty"`
}

type Reference struct {
	Href   string `json:"href"`
	Title  string `json:"title"`
	Source string `json:"source"`
	Index  int    `json:"index"`
}

type Organic struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rank        int    `json:"rank"`
}

// Client fetches the AI Overview Google shows for a query. Google exposes
// no sampling control, so answers are whatever the SERP returns.
type Client struct {
	apiKey     string
	endpoint   string
	zone       string
	country    string
	language   string
	httpClient *http.Client
	costs      common.CostCalculator
	logger     zerolog.Logger
}

type Option func(*Client)

func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(apiKey string, location *models.Location, costs common.CostCalculator, opts ...Option) *Client {
	if costs == nil {
		costs = common.FlatCost(0.0015)
	}
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		zone:       DefaultZone,
		country:    common.MapLocationToCountry(location),
		language:   common.MapLocationToLanguage(location),
		httpClient: &http.Client{},
		costs:      costs,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return config.PlatformGoogleAI
}

// Ask returns the overview text and its references. A SERP without an
// overview is an empty answer, not an error.
func (c *Client) Ask(ctx context.Context, prompt string) (*common.AIResponse, error) {
	payload, err := json.Marshal(Request{Zone: c.zone, URL: c.searchURL(prompt), Format: "raw"})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, common.StatusError(config.PlatformGoogleAI, resp.StatusCode, fmt.Errorf("SERP request failed: %s", body))
	}

	var result SERPResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, common.NewUpstreamError(config.PlatformGoogleAI, models.ErrUpstreamError, fmt.Errorf("failed to parse response: %w", err))
	}

	out := &common.AIResponse{
		Model: "google-ai-overview",
		Cost:  c.costs.CalculateCost("brightdata", "serp", 0, 0, false),
	}
	if result.AIOverview == nil || len(result.AIOverview.Texts) == 0 {
		c.logger.Debug().Str("query", prompt).Msg("No AI Overview returned")
		return out, nil
	}

	out.Response = extractOverviewText(result.AIOverview)
	for _, ref := range result.AIOverview.References {
		if ref.Href != "" {
			out.Citations = append(out.Citations, ref.Href)
		}
	}
	return out, nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// searchURL asks for parsed JSON (brd_json=1) and raises the odds of an
// overview being generated (brd_ai_overview=2).
func (c *Client) searchURL(query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("gl", c.country)
	v.Set("hl", c.language)
	v.Set("brd_json", "1")
	v.Set("brd_ai_overview", "2")
	return "https://www.google.com/search?" + v.Encode()
}

func extractOverviewText(overview *Overview) string {
	var parts []string
	for _, text := range overview.Texts {
		if block := extractTextBlock(text); block != "" {
			parts = append(parts, block)
		}
	}
	return strings.Join(parts, "\n\n")
}

func extractTextBlock(text Text) string {
	if text.Type != "list" {
		return text.Snippet
	}
	var listParts []string
	if text.Title != "" {
		listParts = append(listParts, text.Title)
	}
	for _, item := range text.List {
		if item.Snippet != "" {
			listParts = append(listParts, "- "+item.Snippet)
		}
	}
	return strings.Join(listParts, "\n")
}
