package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/catastroguard/internal/config"
	"github.com/couchcryptid/catastroguard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher writes raw upstream documents to the source topic, tagged with
// the feed header the pipeline uses to pick a normalizer.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a producer for the configured source topic. The
// writer accepts messages up to domain.MaxMessageBytes; kafka-go would
// otherwise reject anything over 1 MiB before it reaches the broker.
func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{writer: &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSourceTopic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 250 * time.Millisecond,
		BatchBytes:   domain.MaxMessageBytes,
		RequiredAcks: kafkago.RequireAll,
	}}
}

// Publish sends one raw document. Documents of the same feed share a key so
// they stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, feed domain.Feed, doc []byte) error {
	if len(doc) > domain.MaxDocumentBytes {
		return fmt.Errorf("%s document of %d bytes: %w", feed, len(doc), domain.ErrDocumentTooLarge)
	}
	return p.writer.WriteMessages(ctx, rawMessage(feed, doc, time.Now().UTC()))
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func rawMessage(feed domain.Feed, doc []byte, at time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(feed),
		Value: doc,
		Time:  at,
		Headers: []kafkago.Header{
			{Key: domain.HeaderFeed, Value: []byte(feed)},
		},
	}
}
