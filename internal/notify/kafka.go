package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/guttosm/escrowd/internal/domain/dto"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events keyed by trade id, so one trade's events keep
// their partition.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink needs at least one broker")
	}
	if topic == "" {
		return nil, errors.New("kafka sink needs a topic")
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Deliver(ctx context.Context, ev dto.TradeSettledEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(ev.Trade.ID),
		Value:   value,
		Headers: []kafka.Header{{Key: "event", Value: []byte(ev.Event)}},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
