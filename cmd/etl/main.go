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
	"github.com/couchcryptid/catastroguard/internal/config"
	"github.com/couchcryptid/catastroguard/internal/domain"
	"github.com/couchcryptid/catastroguard/internal/observability"
	"github.com/couchcryptid/catastroguard/internal/pipeline"
	"github.com/couchcryptid/catastroguard/internal/store"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	classifier, err := domain.NewClassifier(domain.DefaultCorpus())
	if err != nil {
		logger.Error("failed to fit risk classifier", "error", err)
		os.Exit(1)
	}
	logger.Info("risk classifier ready", "vocabulary", classifier.VocabularySize())

	snapshot := store.NewMemory()
	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(classifier, logger)

	p := pipeline.New(reader, transformer, pipeline.FanOut{writer, snapshot}, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, snapshot, classifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
