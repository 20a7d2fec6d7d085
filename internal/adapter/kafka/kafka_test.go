package kafka

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/catastroguard/internal/config"
	"github.com/couchcryptid/catastroguard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("alerts"),
		Value:     []byte(`{"features":[]}`),
		Topic:     "raw-disaster-feeds",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: domain.HeaderFeed, Value: []byte("alerts")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("alerts"), raw.Key)
	assert.JSONEq(t, `{"features":[]}`, string(raw.Value))
	assert.Equal(t, "raw-disaster-feeds", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "alerts", raw.Headers[domain.HeaderFeed])
	assert.Nil(t, raw.Commit)
}

func TestToMessage_SortsHeaders(t *testing.T) {
	now := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	refresh := domain.Refresh{
		RefreshID: "r-1",
		Feed:      domain.FeedAlerts,
		Alerts: []domain.ClassifiedAlert{{
			ID:              "alert-0011223344556677",
			NormalizedAlert: domain.NormalizedAlert{Title: "Flash Flood Warning"},
			Risk:            domain.Classification{Label: domain.RiskSevere},
			ProcessedAt:     now,
		}},
	}

	events, err := domain.SerializeRefresh(refresh)
	require.NoError(t, err)
	require.Len(t, events, 1)

	msg := toMessage(events[0])

	assert.Equal(t, []byte("alert-0011223344556677"), msg.Key)
	assert.Contains(t, string(msg.Value), `"title":"Flash Flood Warning"`)
	require.Len(t, msg.Headers, 4)

	keys := make([]string, 0, len(msg.Headers))
	for _, h := range msg.Headers {
		keys = append(keys, h.Key)
	}
	assert.Equal(t, []string{"feed", "processed_at", "refresh_id", "risk"}, keys)
	assert.Equal(t, []byte("alerts"), msg.Headers[0].Value)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
	assert.Equal(t, []byte("r-1"), msg.Headers[2].Value)
	assert.Equal(t, []byte("Severe"), msg.Headers[3].Value)
}

func TestRawMessage(t *testing.T) {
	at := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	msg := rawMessage(domain.FeedNews, []byte(`{"articles":[]}`), at)

	assert.Equal(t, []byte("news"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, domain.HeaderFeed, msg.Headers[0].Key)
	assert.Equal(t, []byte("news"), msg.Headers[0].Value)

	// Round trip through the consumer mapping keeps the feed header.
	raw := mapMessageToRawEvent(msg)
	assert.Equal(t, "news", raw.Headers[domain.HeaderFeed])
}

func testKafkaConfig() *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{"127.0.0.1:1"},
		KafkaSourceTopic:   "raw-disaster-feeds",
		KafkaGroupID:       "catastroguard-test",
		BatchFlushInterval: 100 * time.Millisecond,
	}
}

func TestPublisher_SizedForMaxDocument(t *testing.T) {
	p := NewPublisher(testKafkaConfig())
	defer p.Close()

	assert.GreaterOrEqual(t, p.writer.BatchBytes, int64(domain.MaxMessageBytes))

	// A document past kafka-go's 1 MiB default still reaches the broker
	// round trip, which fails here only because nothing is listening.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := p.Publish(ctx, domain.FeedAlerts, bytes.Repeat([]byte("a"), 2<<20))
	require.Error(t, err)
	var tooLarge kafkago.MessageTooLargeError
	assert.False(t, errors.As(err, &tooLarge), "unexpected %v", err)
	assert.NotErrorIs(t, err, domain.ErrDocumentTooLarge)
}

func TestPublisher_RejectsOversizedDocument(t *testing.T) {
	p := NewPublisher(testKafkaConfig())
	defer p.Close()

	err := p.Publish(context.Background(), domain.FeedAlerts, make([]byte, domain.MaxDocumentBytes+1))
	require.ErrorIs(t, err, domain.ErrDocumentTooLarge)
	assert.Contains(t, err.Error(), "alerts document of")
}

func TestReader_SizedForMaxDocument(t *testing.T) {
	r := NewReader(testKafkaConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer r.Close()

	assert.GreaterOrEqual(t, r.reader.Config().MaxBytes, domain.MaxMessageBytes)
}

func TestWriter_LoadBatch_EmptyIsNoop(t *testing.T) {
	w := &Writer{writer: &kafkago.Writer{Addr: kafkago.TCP("127.0.0.1:1")}}

	// Refreshes without records produce no messages, so no broker is contacted.
	err := w.LoadBatch(context.Background(), []domain.Refresh{{Feed: domain.FeedNews}})
	require.NoError(t, err)
}

func TestWriter_LoadBatch_UnknownFeed(t *testing.T) {
	w := &Writer{writer: &kafkago.Writer{Addr: kafkago.TCP("127.0.0.1:1")}}

	err := w.LoadBatch(context.Background(), []domain.Refresh{{Feed: "weather"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown feed")
}
