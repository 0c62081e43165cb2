package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes each event as a JSON message on a Kafka topic, keyed by its scope.
type KafkaNotifier struct {
	Writer  MessageWriter
	Logger  *slog.Logger
	Timeout time.Duration
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter returns a kafka.Writer for the given brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

var _ Notifier = &KafkaNotifier{}

// kafkaEvent is the wire format of an Event.
type kafkaEvent struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Scope  string    `json:"scope"`
	Level  float64   `json:"level,omitempty"`
	Unit   string    `json:"unit,omitempty"`
	Power  bool      `json:"power"`
	Source string    `json:"source"`
}

func (k *KafkaNotifier) Notify(e Event) {
	body, err := json.Marshal(kafkaEvent{
		ID:     uuid.NewString(),
		Time:   e.Time,
		Kind:   e.Kind.String(),
		Scope:  e.Scope,
		Level:  e.Level,
		Unit:   e.Unit,
		Power:  e.Power,
		Source: e.Source,
	})
	if err != nil {
		k.Logger.Error("failed to encode event", "err", err)
		return
	}

	timeout := k.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err = k.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.Scope), Value: body, Time: e.Time}); err != nil {
		k.Logger.Error("failed to publish event", "err", err)
	}
}
