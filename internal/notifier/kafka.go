package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const flushTimeout = 5 * time.Second

// KafkaMirror produces every committed transition to a Kafka topic so the
// durable activity feed and downstream consumers get at-least-once delivery
// even across portal restarts. Records are keyed by application ID, which
// pins each application's events to one partition and preserves their commit
// order for consumers.
type KafkaMirror struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaMirror connects a producer to the given brokers. Returns nil when
// no brokers are configured (mirroring disabled).
func NewKafkaMirror(brokers []string, topic string, logger *slog.Logger) (*KafkaMirror, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	return &KafkaMirror{client: client, topic: topic, logger: logger}, nil
}

// Publish produces asynchronously. Delivery failures are logged, never
// surfaced: the in-process broker has already served live observers and the
// engine must not fail a committed transition over feed lag.
func (m *KafkaMirror) Publish(event TransitionEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("marshal transition event", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: m.topic,
		Key:   []byte(event.ApplicationID),
		Value: value,
	}
	m.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
		if err != nil {
			m.logger.Error("produce transition event",
				"error", err,
				"application_id", event.ApplicationID,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (m *KafkaMirror) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := m.client.Flush(ctx); err != nil {
		m.logger.Warn("flush kafka producer", "error", err)
	}
	m.client.Close()
}
