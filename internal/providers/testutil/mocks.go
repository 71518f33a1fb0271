package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
	"github.com/AI-Template-SDK/senso-geo/internal/providers/common"
)

// MockBrightDataServer creates a mock HTTP server for the BrightData dataset API
type MockBrightDataServer struct {
	Server     *httptest.Server
	SnapshotID string

	mu            sync.Mutex
	status        string
	results       []byte
	lastPayload   []map[string]any
	lastDatasetID string
}

func NewMockBrightDataServer() *MockBrightDataServer {
	mock := &MockBrightDataServer{
		SnapshotID: "test-snapshot-123",
		status:     "ready",
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/datasets/v3/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var payload []map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)

		mock.mu.Lock()
		mock.lastPayload = payload
		mock.lastDatasetID = r.URL.Query().Get("dataset_id")
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(common.TriggerResponse{SnapshotID: mock.SnapshotID})
	})

	mux.HandleFunc("/datasets/v3/progress/", func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		status := mock.status
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(common.ProgressResponse{Status: status, SnapshotID: mock.SnapshotID})
	})

	mux.HandleFunc("/datasets/v3/snapshot/", func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		results := mock.results
		mock.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if results == nil {
			results = []byte("[]")
		}
		w.Write(results)
	})

	mock.Server = httptest.NewServer(mux)
	return mock
}

// BaseURL is the dataset API root to pass to common.WithBaseURL
func (m *MockBrightDataServer) BaseURL() string {
	return m.Server.URL + "/datasets/v3"
}

func (m *MockBrightDataServer) Close() {
	m.Server.Close()
}

func (m *MockBrightDataServer) SetStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *MockBrightDataServer) SetResults(results []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
}

// LastPayload returns the decoded body of the most recent trigger call
func (m *MockBrightDataServer) LastPayload() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPayload
}

func (m *MockBrightDataServer) LastDatasetID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDatasetID
}

// FakeAnswerClient is a scripted common.AnswerClient. Responses are
// consumed in order; once exhausted the last one repeats.
type FakeAnswerClient struct {
	Platform  string
	Responses []FakeAnswer
	Delay     time.Duration

	mu      sync.Mutex
	calls   int
	prompts []string
	closed  bool
}

type FakeAnswer struct {
	Response *common.AIResponse
	Err      error
}

func (f *FakeAnswerClient) Name() string {
	return f.Platform
}

func (f *FakeAnswerClient) Ask(ctx context.Context, prompt string) (*common.AIResponse, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if len(f.Responses) == 0 {
		return &common.AIResponse{}, nil
	}
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	a := f.Responses[idx]
	return a.Response, a.Err
}

func (f *FakeAnswerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeAnswerClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeAnswerClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *FakeAnswerClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeAdapter satisfies the platform adapter contract with a per-query
// script. Queries listed in Block wait for the context to end, which is
// how tests simulate a probe outliving the batch deadline.
type FakeAdapter struct {
	Name    string
	Limit   int
	Mention map[string]bool
	Fail    map[string]models.ErrorKind
	Block   map[string]bool

	mu     sync.Mutex
	probes int
	closed bool
}

func (f *FakeAdapter) Platform() string {
	return f.Name
}

func (f *FakeAdapter) Concurrency() int {
	if f.Limit <= 0 {
		return 1
	}
	return f.Limit
}

func (f *FakeAdapter) Probe(ctx context.Context, q models.Query, brand models.BrandIdentity, timeout time.Duration) *models.PlatformResult {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()

	res := &models.PlatformResult{
		Platform:             f.Name,
		Query:                q,
		Sentiment:            models.SentimentNeutral,
		CompetitorsMentioned: []models.CompetitorMention{},
		Attempts:             1,
	}
	if f.Block[q.Text] {
		<-ctx.Done()
		res.Error = models.ErrUpstreamTimeout.Ptr()
		return res
	}
	if kind, ok := f.Fail[q.Text]; ok {
		res.Error = kind.Ptr()
		return res
	}
	if f.Mention[q.Text] {
		pos := 1
		res.Mentioned = true
		res.Position = &pos
		res.Sentiment = models.SentimentPositive
		res.ShareOfVoice = 1
		res.FullResponse = brand.Name + " is recommended."
		res.ContextSnippet = res.FullResponse
	}
	return res
}

func (f *FakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeAdapter) Probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func (f *FakeAdapter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// RewriteTransport sends every request to Target regardless of its host,
// keeping the original host in the Host header. It lets tests point code
// that builds real URLs (search engines, candidate homepages) at one
// httptest server.
type RewriteTransport struct {
	Target *url.URL
	Base   http.RoundTripper
}

func NewRewriteTransport(serverURL string) *RewriteTransport {
	u, _ := url.Parse(serverURL)
	return &RewriteTransport{Target: u, Base: http.DefaultTransport}
}

func (t *RewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Host = strings.ToLower(req.URL.Hostname())
	out.URL.Scheme = t.Target.Scheme
	out.URL.Host = t.Target.Host
	return t.Base.RoundTrip(out)
}
