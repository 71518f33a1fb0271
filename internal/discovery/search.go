package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

// SearchProvider returns result URLs for one web search query
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

const (
	DefaultGoogleURL     = "https://www.google.com/search"
	DefaultDuckDuckGoURL = "https://duckduckgo.com/html/"
	DefaultLinkupURL     = "https://api.linkup.so/v1"

	maxSearchBody = 2 << 20
)

var errBlocked = errors.New("search engine blocked the request")

// HTMLSearch scrapes Google result pages and falls back to DuckDuckGo's HTML
// endpoint when Google returns nothing or blocks the request.
type HTMLSearch struct {
	client    *http.Client
	userAgent string
	googleURL string
	duckURL   string
	logger    zerolog.Logger
}

type HTMLSearchOption func(*HTMLSearch)

func WithSearchHTTPClient(hc *http.Client) HTMLSearchOption {
	return func(s *HTMLSearch) {
		s.client = hc
	}
}

// WithEngineURLs points the scraper at other result pages
func WithEngineURLs(google, duck string) HTMLSearchOption {
	return func(s *HTMLSearch) {
		s.googleURL = google
		s.duckURL = duck
	}
}

func NewHTMLSearch(userAgent string, timeout time.Duration, logger zerolog.Logger, opts ...HTMLSearchOption) *HTMLSearch {
	s := &HTMLSearch{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		googleURL: DefaultGoogleURL,
		duckURL:   DefaultDuckDuckGoURL,
		logger:    logger.With().Str("component", "HTMLSearch").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTMLSearch) Name() string {
	return "html"
}

func (s *HTMLSearch) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	urls, googleErr := s.google(ctx, query, maxResults)
	if len(urls) > 0 {
		return urls, nil
	}
	if googleErr != nil {
		s.logger.Debug().Err(googleErr).Str("query", query).Msg("Google search failed, trying DuckDuckGo")
	}

	urls, duckErr := s.duckDuckGo(ctx, query, maxResults)
	if duckErr != nil && googleErr != nil {
		return nil, errors.Join(googleErr, duckErr)
	}
	return urls, nil
}

func (s *HTMLSearch) google(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("num", fmt.Sprint(maxResults))
	doc, err := s.fetch(ctx, s.googleURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		switch {
		case strings.HasPrefix(href, "/url?"):
			if u, err := url.Parse(href); err == nil {
				urls = append(urls, u.Query().Get("q"))
			}
		case strings.HasPrefix(href, "http"):
			urls = append(urls, href)
		}
	})
	return firstHTTP(urls, maxResults), nil
}

func (s *HTMLSearch) duckDuckGo(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	doc, err := s.fetch(ctx, s.duckURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var urls []string
	doc.Find("a.result__url").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && strings.HasPrefix(href, "http") {
			urls = append(urls, href)
		}
	})
	if len(urls) == 0 {
		// redirect links: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com
		doc.Find("a[href*='uddg=']").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			if strings.HasPrefix(href, "//") {
				href = "https:" + href
			}
			if u, err := url.Parse(href); err == nil {
				urls = append(urls, u.Query().Get("uddg"))
			}
		})
	}
	return firstHTTP(urls, maxResults), nil
}

func (s *HTMLSearch) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fr-CA,fr;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errBlocked
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, err
	}
	if bytes.Contains(bytes.ToLower(body), []byte("captcha")) {
		return nil, errBlocked
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func firstHTTP(urls []string, maxResults int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range urls {
		if !strings.HasPrefix(u, "http") || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if maxResults > 0 && len(out) == maxResults {
			break
		}
	}
	return out
}

// LinkupSearch queries the Linkup search API for raw results
type LinkupSearch struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type linkupRequest struct {
	Query         string `json:"q"`
	Depth         string `json:"depth"`
	OutputType    string `json:"outputType"`
	IncludeImages bool   `json:"includeImages"`
}

type linkupResponse struct {
	Results []linkupResult `json:"results"`
}

type linkupResult struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

func NewLinkupSearch(apiKey, baseURL string, timeout time.Duration) *LinkupSearch {
	if baseURL == "" {
		baseURL = DefaultLinkupURL
	}
	return &LinkupSearch{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *LinkupSearch) Name() string {
	return "linkup"
}

func (l *LinkupSearch) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	body, err := json.Marshal(linkupRequest{
		Query:      query,
		Depth:      "standard",
		OutputType: "searchResults",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, common.NewUpstreamError("linkup", common.Classify(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, common.StatusError("linkup", resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(msg))))
	}

	var lr linkupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, common.NewUpstreamError("linkup", models.ErrUpstreamError, fmt.Errorf("failed to decode response: %w", err))
	}

	urls := make([]string, 0, len(lr.Results))
	for _, r := range lr.Results {
		urls = append(urls, r.URL)
	}
	return firstHTTP(urls, maxResults), nil
}
