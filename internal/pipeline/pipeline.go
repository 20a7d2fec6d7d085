package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/catastroguard/internal/domain"
	"github.com/couchcryptid/catastroguard/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// unknownFeed labels documents that carry no usable feed header.
	unknownFeed = "unknown"
)

// BatchExtractor reads up to batchSize raw feed documents from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer normalizes one raw feed document into a refresh.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Refresh, error)
}

// BatchLoader writes multiple refreshes to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, refreshes []domain.Refresh) error
}

// Pipeline consumes raw feed documents, turns each into a Refresh and hands
// the refreshes to the loader. Offsets are committed only after a successful
// load, so a loader outage replays the documents instead of dropping them.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a refresh of either feed has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any feed documents yet")
	}
	return nil
}

// Run consumes feed documents until the context is cancelled. Extract and
// load failures are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	delay := initialBackoff
	for ctx.Err() == nil {
		err := p.step(ctx)
		switch {
		case ctx.Err() != nil:
		case err != nil:
			p.logger.Error("pipeline step failed", "error", err, "retry_in", delay)
			if retry.SleepWithContext(ctx, delay) {
				delay = retry.NextBackoff(delay, maxBackoff)
			}
		default:
			delay = initialBackoff
		}
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// step extracts one batch, refreshes every decodable document and loads the
// result. A non-nil error makes Run back off before the next step; documents
// of a failed load stay uncommitted.
func (p *Pipeline) step(ctx context.Context) error {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("extract batch: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))

	refreshes, sources := p.refresh(ctx, batch)
	if len(refreshes) == 0 {
		return nil
	}

	if err := p.loader.LoadBatch(ctx, refreshes); err != nil {
		return fmt.Errorf("load %d refreshes: %w", len(refreshes), err)
	}

	p.metrics.MessagesProduced.Add(float64(len(refreshes)))
	p.recordLoaded(refreshes)
	for _, raw := range sources {
		p.commitOffset(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

// refresh transforms each raw document. Documents that cannot be turned into
// a refresh are committed right away so they do not block the partition.
// The returned sources are the raw documents behind each refresh, in order.
func (p *Pipeline) refresh(ctx context.Context, batch []domain.RawEvent) ([]domain.Refresh, []domain.RawEvent) {
	refreshes := make([]domain.Refresh, 0, len(batch))
	sources := make([]domain.RawEvent, 0, len(batch))

	for _, raw := range batch {
		r, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			feed := feedLabel(raw)
			p.logger.Warn("skipping feed document",
				"feed", feed,
				"key", string(raw.Key),
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.WithLabelValues(feed).Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		refreshes = append(refreshes, r)
		sources = append(sources, raw)
	}
	return refreshes, sources
}

// recordLoaded updates the per-feed record and risk metrics and logs one
// summary line per feed present in the loaded batch.
func (p *Pipeline) recordLoaded(refreshes []domain.Refresh) {
	records := make(map[domain.Feed]int, 2)
	for _, r := range refreshes {
		records[r.Feed] += r.Len()
		p.metrics.RecordsNormalized.WithLabelValues(string(r.Feed)).Add(float64(r.Len()))
		for _, a := range r.Alerts {
			p.metrics.RiskPredictions.WithLabelValues(a.Risk.Label.String()).Inc()
		}
		p.logger.Debug("refresh loaded", "feed", r.Feed, "refresh_id", r.RefreshID, "records", r.Len())
	}
	for _, feed := range []domain.Feed{domain.FeedAlerts, domain.FeedNews} {
		if n, ok := records[feed]; ok {
			p.logger.Info("feed refreshed", "feed", feed, "records", n)
		}
	}
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"feed", feedLabel(raw), "topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// feedLabel returns the feed a raw document claims to belong to, for logs
// and metric labels.
func feedLabel(raw domain.RawEvent) string {
	switch feed := domain.Feed(raw.Headers[domain.HeaderFeed]); feed {
	case domain.FeedAlerts, domain.FeedNews:
		return string(feed)
	default:
		return unknownFeed
	}
}
