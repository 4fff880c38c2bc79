package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/betpool/internal/domain/model"
	"github.com/okian/betpool/pkg/logger"
)

// Header keys set on every Kafka record.
const (
	HeaderType      = "type"
	HeaderMessageID = "message_id"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes messages to one topic, keyed by message key so all
// traffic for a question lands on one partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    logger.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log logger.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, ErrNoTopic
	}
	if log == nil {
		log = logger.Nop()
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return newKafkaPublisher(writer, topic, log), nil
}

func newKafkaPublisher(w messageWriter, topic string, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, m model.Message) error { //nolint:gocritic // hugeParam: matches the worker's by-value contract
	msg := kafka.Message{
		Key:   []byte(m.Key),
		Value: m.Payload,
		Time:  m.At,
		Headers: []kafka.Header{
			{Key: HeaderType, Value: []byte(m.Type)},
			{Key: HeaderMessageID, Value: []byte(m.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s to %s: %w", m.Type, p.topic, err)
	}

	p.log.Debug(ctx, "published to kafka",
		logger.String("topic", p.topic),
		logger.String("type", m.Type),
		logger.String("key", m.Key))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
