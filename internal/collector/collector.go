// Package collector periodically fetches upstream feed documents and
// publishes them, unmodified, to the source topic.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/catastroguard/internal/domain"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves one raw upstream document per feed.
type Fetcher interface {
	Fetch(ctx context.Context, feed domain.Feed) ([]byte, error)
	HasNewsKey() bool
}

// Publisher forwards a raw document tagged with its feed.
type Publisher interface {
	Publish(ctx context.Context, feed domain.Feed, doc []byte) error
}

// Collector polls every feed on a fixed interval.
type Collector struct {
	fetcher   Fetcher
	publisher Publisher
	clock     clockwork.Clock
	interval  time.Duration
	logger    *slog.Logger
	ready     atomic.Bool
}

// New creates a Collector. A nil clock uses real time.
func New(f Fetcher, p Publisher, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Collector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Collector{
		fetcher:   f,
		publisher: p,
		clock:     clock,
		interval:  interval,
		logger:    logger,
	}
}

// CheckReadiness returns nil once an alerts document has been published.
func (c *Collector) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("collector has not published an alerts document yet")
	}
	return nil
}

// Run collects once immediately and then on every tick until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("collector started", "interval", c.interval)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.CollectOnce(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("collection incomplete", "error", err)
		}

		select {
		case <-ctx.Done():
			c.logger.Info("collector stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// CollectOnce fetches and publishes every enabled feed concurrently. A failed
// feed does not stop the others; all failures are returned joined.
func (c *Collector) CollectOnce(ctx context.Context) error {
	feeds := []domain.Feed{domain.FeedAlerts}
	if c.fetcher.HasNewsKey() {
		feeds = append(feeds, domain.FeedNews)
	} else {
		c.logger.Debug("news api key not set, skipping news feed")
	}

	// Not errgroup.WithContext: a failed feed must not cancel the fetches of
	// the others, and every failure is reported rather than only the first.
	var g errgroup.Group
	errs := make([]error, len(feeds))
	for i, feed := range feeds {
		g.Go(func() error {
			errs[i] = c.collect(ctx, feed)
			if errs[i] != nil {
				c.logger.Error("collect feed failed", "feed", feed, "error", errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (c *Collector) collect(ctx context.Context, feed domain.Feed) error {
	doc, err := c.fetcher.Fetch(ctx, feed)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", feed, err)
	}
	if err := c.publisher.Publish(ctx, feed, doc); err != nil {
		return fmt.Errorf("publish %s: %w", feed, err)
	}
	c.logger.Info("feed document published", "feed", feed, "bytes", len(doc))
	if feed == domain.FeedAlerts {
		c.ready.Store(true)
	}
	return nil
}
