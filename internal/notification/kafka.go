package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaMirror drains the emitter's mirror channel and publishes each notice
// to a Kafka topic, keyed by courrier id so one courrier's notices stay
// ordered within a partition. Publish failures are logged and dropped; the
// in-process feed remains the source of truth.
type KafkaMirror struct {
	client *kgo.Client
	topic  string
	inbox  <-chan Notification
	logger *slog.Logger
}

func NewKafkaMirror(brokers []string, topic string, inbox <-chan Notification, logger *slog.Logger) (*KafkaMirror, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaMirror{client: client, topic: topic, inbox: inbox, logger: logger}, nil
}

func (m *KafkaMirror) Run(ctx context.Context) error {
	defer m.client.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-m.inbox:
			payload, err := json.Marshal(n)
			if err != nil {
				m.logger.ErrorContext(ctx, "marshal mirrored notification", slog.Any("error", err))
				continue
			}
			record := &kgo.Record{
				Key:   []byte(n.CourrierID.String()),
				Value: payload,
			}
			if err := m.client.ProduceSync(ctx, record).FirstErr(); err != nil {
				m.logger.ErrorContext(ctx, "publish mirrored notification",
					slog.String("courrier_id", n.CourrierID.String()),
					slog.Any("error", err))
			}
		}
	}
}
