package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes delivery requests to a topic consumed by the
// mailer. Produce errors are logged, never surfaced: registration must not
// fail because the mail pipeline is down.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaNotifier connects a producer to the given brokers.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaNotifier{client: client, topic: topic, logger: logger}, nil
}

func (n *KafkaNotifier) Send(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.ErrorContext(ctx, "marshal notification", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(msg.Target),
		Value: payload,
	}
	n.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			n.logger.Error("notification publish failed",
				"target", msg.Target,
				"error", err,
			)
		}
	})
}

// Close flushes and shuts down the producer.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
