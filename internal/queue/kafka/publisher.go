// Package kafka provides Kafka-based implementations of the queue interfaces.
package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"queue-keeper/internal/config"
	"queue-keeper/internal/queue"
)

// Headers carried on every message this package writes.
const (
	headerRoutingKey = "routing_key"
	headerAttempt    = "attempt"
)

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a Kafka writer for topic.
func NewWriter(cfg *config.KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Use key-based partitioning
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// Publisher implements queue.Publisher using Kafka. The routing key is the
// message key, so every message of one routing key lands on one partition
// and keeps its order.
type Publisher struct {
	writer Writer
}

// NewPublisher creates a new Kafka publisher.
func NewPublisher(writer Writer) *Publisher {
	return &Publisher{
		writer: writer,
	}
}

// Publish sends a message to Kafka.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return p.write(ctx, routingKey, body, 0)
}

// write sends body with the given number of prior attempts recorded.
func (p *Publisher) write(ctx context.Context, routingKey string, body []byte, attempt int) error {
	msg := kafka.Message{
		Key:   []byte(routingKey),
		Value: body,
		Headers: []kafka.Header{
			{Key: headerRoutingKey, Value: []byte(routingKey)},
			{Key: headerAttempt, Value: []byte(strconv.Itoa(attempt))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

var _ queue.Publisher = (*Publisher)(nil)
