package kafka

import (
	"context"
	"log/slog"
	"sort"

	"github.com/couchcryptid/catastroguard/internal/config"
	"github.com/couchcryptid/catastroguard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces normalized records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes every record of every refresh in a single
// WriteMessages call. Each record becomes one message keyed by its ID.
func (w *Writer) LoadBatch(ctx context.Context, refreshes []domain.Refresh) error {
	var msgs []kafkago.Message
	for _, r := range refreshes {
		events, err := domain.SerializeRefresh(r)
		if err != nil {
			return err
		}
		for _, ev := range events {
			msgs = append(msgs, toMessage(ev))
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	w.logger.Debug("publishing normalized records", "messages", len(msgs), "refreshes", len(refreshes))
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage converts a serialized record into a Kafka message. Headers are
// emitted in key order so messages are reproducible.
func toMessage(ev domain.OutputEvent) kafkago.Message {
	keys := make([]string, 0, len(ev.Headers))
	for k := range ev.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(ev.Headers[k])})
	}
	return kafkago.Message{Key: ev.Key, Value: ev.Value, Headers: headers}
}
