package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inngest/inngestgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-geo/internal/metrics"
	"github.com/AI-Template-SDK/senso-geo/workflows"
)

type recordingSender struct {
	events []inngestgo.Event
	err    error
}

func (s *recordingSender) Send(ctx context.Context, evt any) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.events = append(s.events, evt.(inngestgo.Event))
	return "evt-1", nil
}

func newTestRouter(sender eventSender) http.Handler {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ProbesTotal.WithLabelValues("chatgpt", "mentioned").Inc()
	inngest := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return newRouter(inngest, reg, sender, zerolog.Nop())
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(&recordingSender{})

	for _, path := range []string{"/", "/health"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/inngest", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&recordingSender{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `geo_probes_total{outcome="mentioned",platform="chatgpt"} 1`)
}

const analysisBody = `{
	"brand": {"name": "Adviso", "domain": "adviso.ca"},
	"queries": [{"text": "best seo agency in montreal"}],
	"profile": {"primary_industry": "marketing"}
}`

func TestAnalysisEndpointQueuesEvent(t *testing.T) {
	sender := &recordingSender{}
	h := newTestRouter(sender)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(analysisBody)))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "evt-1", resp["event_id"])

	require.Len(t, sender.events, 1)
	assert.Equal(t, workflows.EventAnalysisRun, sender.events[0].Name)
	assert.Equal(t, "api", sender.events[0].Data["triggered_by"])
}

func TestAnalysisEndpointRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"no queries", `{"brand": {"name": "Adviso", "domain": "adviso.ca"}, "profile": {"primary_industry": "marketing"}}`},
		{"no profile", `{"brand": {"name": "Adviso", "domain": "adviso.ca"}, "queries": [{"text": "q"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			rec := httptest.NewRecorder()
			newTestRouter(sender).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, sender.events)
		})
	}
}

func TestAnalysisEndpointSendFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&recordingSender{err: errors.New("inngest down")}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(analysisBody)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
