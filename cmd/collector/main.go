package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/catastroguard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/catastroguard/internal/adapter/kafka"
	"github.com/couchcryptid/catastroguard/internal/adapter/upstream"
	"github.com/couchcryptid/catastroguard/internal/collector"
	"github.com/couchcryptid/catastroguard/internal/config"
	"github.com/couchcryptid/catastroguard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := upstream.NewClient(cfg, metrics, logger)
	publisher := kafkaadapter.NewPublisher(cfg)
	c := collector.New(client, publisher, cfg.CollectInterval, nil, logger)

	if !client.HasNewsKey() {
		logger.Warn("NEWS_API_KEY not set, news feed disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, c, nil, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := c.Run(ctx); err != nil {
		logger.Error("collector error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka publisher close error", "error", err)
	}

	logger.Info("shutdown complete")
}
