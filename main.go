// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AI-Template-SDK/senso-geo/internal/app"
	"github.com/AI-Template-SDK/senso-geo/internal/config"
	"github.com/AI-Template-SDK/senso-geo/internal/logging"
	"github.com/AI-Template-SDK/senso-geo/workflows"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			log.Printf("Note: No .env or dev.env file loaded: %v", err)
		} else {
			log.Printf("Loaded dev.env file for local development")
		}
	} else {
		log.Printf("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Environment)

	logger.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.Port).
		Str("openai_key", logging.MaskAPIKey(cfg.OpenAIAPIKey)).
		Str("anthropic_key", logging.MaskAPIKey(cfg.AnthropicAPIKey)).
		Msg("Configuration loaded")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		logger.Info().Msg("Running in development mode - signing key verification disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.Build(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build services")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close platform clients")
		}
	}()
	logger.Info().Strs("platforms", a.Registry.Platforms()).Msg("Services initialized")

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "senso-geo",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Inngest client")
	}

	alerts := workflows.NewSlackAlerter(cfg.SlackWebhookURL)

	analysisProcessor := workflows.NewAnalysisProcessor(a.Visibility, a.Discovery, a.Analysis, alerts, logger)
	analysisProcessor.SetClient(client)
	analysisProcessor.RunAnalysis()
	analysisProcessor.DiscoverCompetitors()

	if a.Cache != nil {
		maintenanceProcessor := workflows.NewMaintenanceProcessor(a.Cache, logger)
		maintenanceProcessor.SetClient(client)
		maintenanceProcessor.WeeklyCacheCleanup()
	}
	logger.Info().Msg("All processors initialized and functions registered")

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(client.Serve(), reg, client, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting Senso GEO service")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
