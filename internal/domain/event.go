package domain

import (
	"context"
	"errors"
	"time"
)

// Feed identifies which upstream schema a raw document follows.
type Feed string

const (
	FeedAlerts Feed = "alerts"
	FeedNews   Feed = "news"
)

// HeaderFeed is the message header carrying the Feed of a raw document.
const HeaderFeed = "feed"

// MaxDocumentBytes bounds one raw upstream document end to end: the collector
// refuses larger responses and the source topic producer and consumer are
// sized for it. The broker's message.max.bytes (or the topic's
// max.message.bytes) must be at least MaxMessageBytes.
const MaxDocumentBytes = 10 << 20

// MaxMessageBytes is MaxDocumentBytes plus room for the key, headers and
// record framing of a source topic message.
const MaxMessageBytes = MaxDocumentBytes + 64<<10

// ErrDocumentTooLarge reports a raw document over MaxDocumentBytes.
var ErrDocumentTooLarge = errors.New("document too large")

// RawEvent represents an unprocessed message from the source topic. Value holds
// one complete upstream document.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// NormalizedAlert is the flat form of one NWS alert feature.
type NormalizedAlert struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Area        string `json:"area"`
	Event       string `json:"event"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// NormalizedNewsItem is the flat form of one NewsAPI article.
type NormalizedNewsItem struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
	URL         string `json:"url"`
	Content     string `json:"content"`
}

// ClassifiedAlert is a normalized alert with its predicted risk.
type ClassifiedAlert struct {
	ID string `json:"id"`
	NormalizedAlert
	Risk        Classification `json:"risk"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// NewsRecord is a normalized news item with its stable ID.
type NewsRecord struct {
	ID string `json:"id"`
	NormalizedNewsItem
	ProcessedAt time.Time `json:"processed_at"`
}

// Refresh is the result of normalizing one upstream document. Only the slice
// matching Feed is populated.
type Refresh struct {
	RefreshID  string
	Feed       Feed
	ReceivedAt time.Time
	Alerts     []ClassifiedAlert
	News       []NewsRecord
}

// Len returns the number of records carried by the refresh.
func (r Refresh) Len() int {
	if r.Feed == FeedNews {
		return len(r.News)
	}
	return len(r.Alerts)
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
