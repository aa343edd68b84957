// Package deadletter provides the sinks the poller hands messages to once it
// stops retrying them.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/queue"
)

// Envelope is the payload written to a dead-letter queue. It keeps the
// original body untouched next to the reason it was given up on.
type Envelope struct {
	MessageID      string          `json:"message_id"`
	RoutingKey     string          `json:"routing_key"`
	ReceiveCount   int             `json:"receive_count"`
	FailureKind    string          `json:"failure_kind"`
	Error          string          `json:"error"`
	Body           json.RawMessage `json:"body,omitempty"`
	RawBody        string          `json:"raw_body,omitempty"`
	DeadLetteredAt time.Time       `json:"dead_lettered_at"`
}

// NewEnvelope builds the envelope for msg. A body that is not valid JSON is
// kept as a string.
func NewEnvelope(msg *queue.Message, cause error) *Envelope {
	env := &Envelope{
		MessageID:      msg.ID,
		RoutingKey:     msg.RoutingKey,
		ReceiveCount:   msg.ReceiveCount,
		FailureKind:    domain.KindOf(cause).String(),
		DeadLetteredAt: time.Now().UTC(),
	}
	if cause != nil {
		env.Error = cause.Error()
	}

	if json.Valid(msg.Body) {
		env.Body = json.RawMessage(msg.Body)
	} else {
		env.RawBody = string(msg.Body)
	}
	return env
}

// PublisherSink writes envelopes to a dead-letter queue through a
// queue.Publisher. The original routing key is kept as the message group.
type PublisherSink struct {
	publisher queue.Publisher
	logger    *slog.Logger
}

// NewPublisherSink creates a sink publishing to publisher.
func NewPublisherSink(publisher queue.Publisher, logger *slog.Logger) *PublisherSink {
	return &PublisherSink{
		publisher: publisher,
		logger:    logger,
	}
}

// Send publishes msg wrapped in an Envelope.
func (s *PublisherSink) Send(ctx context.Context, msg *queue.Message, cause error) error {
	payload, err := json.Marshal(NewEnvelope(msg, cause))
	if err != nil {
		return fmt.Errorf("failed to serialize dead-letter envelope: %w", err)
	}

	routingKey := msg.RoutingKey
	if routingKey == "" {
		// FIFO queues need a group; unknown keys are grouped together
		routingKey = "unrouted"
	}

	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		return fmt.Errorf("failed to publish dead-letter message: %w", err)
	}

	s.logger.Debug("message dead-lettered", "messageID", msg.ID, "routingKey", msg.RoutingKey)
	return nil
}

// LogSink is a sink that only logs. It is used in memory mode, where there
// is no dead-letter queue to write to.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a new log-only sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{
		logger: logger,
	}
}

// Send logs the envelope that would have been published.
func (s *LogSink) Send(ctx context.Context, msg *queue.Message, cause error) error {
	env := NewEnvelope(msg, cause)

	s.logger.Warn("STUB: would dead-letter message",
		"messageID", env.MessageID,
		"routingKey", env.RoutingKey,
		"receiveCount", env.ReceiveCount,
		"failureKind", env.FailureKind,
		"error", env.Error,
	)
	return nil
}

var (
	_ queue.DeadLetterSink = (*PublisherSink)(nil)
	_ queue.DeadLetterSink = (*LogSink)(nil)
)
