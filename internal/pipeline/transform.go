package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/catastroguard/internal/domain"
	"github.com/google/uuid"
)

// FeedTransformer implements Transformer by normalizing a feed document and
// classifying the risk of every alert it contains.
type FeedTransformer struct {
	risker domain.Risker
	logger *slog.Logger
}

// NewTransformer creates a FeedTransformer that scores alerts with risker.
func NewTransformer(risker domain.Risker, logger *slog.Logger) *FeedTransformer {
	return &FeedTransformer{
		risker: risker,
		logger: logger,
	}
}

func (t *FeedTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Refresh, error) {
	doc, err := domain.DecodeDocument(raw.Value)
	if err != nil {
		return domain.Refresh{}, err
	}

	feed, err := resolveFeed(raw, doc)
	if err != nil {
		return domain.Refresh{}, err
	}

	refresh := domain.Refresh{
		RefreshID:  uuid.NewString(),
		Feed:       feed,
		ReceivedAt: raw.Timestamp,
	}

	switch feed {
	case domain.FeedAlerts:
		refresh.Alerts = domain.ClassifyAlerts(domain.NormalizeAlerts(doc), t.risker)
	case domain.FeedNews:
		refresh.News = domain.IdentifyNews(domain.NormalizeNews(doc))
	}

	if refresh.Len() == 0 {
		t.logger.Warn("feed document has no records", "feed", feed, "offset", raw.Offset)
	}
	return refresh, nil
}

// resolveFeed prefers the feed header set by the collector and falls back to
// the document's container key.
func resolveFeed(raw domain.RawEvent, doc map[string]any) (domain.Feed, error) {
	if h, ok := raw.Headers[domain.HeaderFeed]; ok {
		switch feed := domain.Feed(h); feed {
		case domain.FeedAlerts, domain.FeedNews:
			return feed, nil
		default:
			return "", fmt.Errorf("resolve feed: unknown feed header %q", h)
		}
	}
	if feed, ok := domain.DetectFeed(doc); ok {
		return feed, nil
	}
	return "", errors.New("resolve feed: document has neither features nor articles")
}
