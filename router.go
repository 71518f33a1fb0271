// router.go
package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inngest/inngestgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/AI-Template-SDK/senso-geo/services"
	"github.com/AI-Template-SDK/senso-geo/workflows"
)

// eventSender is the part of the Inngest client the HTTP surface needs
type eventSender interface {
	Send(ctx context.Context, evt any) (string, error)
}

func newRouter(inngest http.Handler, gatherer prometheus.Gatherer, events eventSender, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/api/inngest", inngest)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Root endpoint for ALB health check
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"service": "senso-geo", "status": "running"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Queues a full analysis run; the result is produced by the workflow
	r.Post("/api/analysis", func(w http.ResponseWriter, r *http.Request) {
		var req services.AnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := req.Validate(); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		id, err := events.Send(r.Context(), inngestgo.Event{
			Name: workflows.EventAnalysisRun,
			Data: map[string]any{
				"brand":           req.Brand,
				"queries":         req.Queries,
				"platforms":       req.Platforms,
				"profile":         req.Profile,
				"content_signals": req.Signals,
				"pages_html":      req.Pages,
				"thresholds":      req.Thresholds,
				"triggered_by":    "api",
			},
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to send analysis event")
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to queue analysis"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "event_id": id})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
