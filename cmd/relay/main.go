package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ai-gateway/chat-relay/internal/catalog"
	"github.com/ai-gateway/chat-relay/internal/chat"
	"github.com/ai-gateway/chat-relay/internal/config"
	"github.com/ai-gateway/chat-relay/internal/metrics"
	"github.com/ai-gateway/chat-relay/internal/observability"
	"github.com/ai-gateway/chat-relay/internal/routing"
	"github.com/ai-gateway/chat-relay/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, logger)
	stop()
	if err != nil {
		logger.Error("relay stopped", "err", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup, such as flushing
// spans, always happens.
func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("credentials",
		"openai", cfg.Credential("openai") != "",
		"groq", cfg.Credential("groq") != "",
		"gemini", cfg.Credential("gemini") != "")

	registry := routing.Default()
	route, err := registry.Resolve(cfg)
	if err != nil {
		return fmt.Errorf("resolve provider: %w", err)
	}
	models, err := catalog.Load(cfg.ModelsPath)
	if err != nil {
		return fmt.Errorf("load model catalog: %w", err)
	}
	if !models.Known(string(route.Provider), route.Model) {
		logger.Warn("model not in catalog", "provider", route.Provider, "model", route.Model)
	}

	tp, err := observability.Setup(ctx, cfg.TelemetryURL)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("tracer shutdown failed", "err", err)
			}
		}()
	}

	usage := metrics.NewUsage()
	relay := chat.NewRelay(route.Client, chat.WithUsage(usage), chat.WithLogger(logger))
	opts := []server.Option{
		server.WithUsage(usage),
		server.WithCatalog(models),
		server.WithLogger(logger),
	}
	if embedder, err := registry.Embedder(cfg); err == nil {
		opts = append(opts, server.WithEmbedder(embedder))
	} else {
		logger.Info("embeddings disabled", "reason", err)
	}

	return server.New(cfg, relay, opts...).Start(ctx)
}
