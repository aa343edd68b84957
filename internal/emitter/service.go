// Package emitter publishes store lifecycle events onto the inbound queue.
// It is the producer side of the store synchronization pipeline, used for
// local testing and backfills.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/event"
	"queue-keeper/internal/metrics"
	"queue-keeper/internal/queue"
)

// ErrPublishFailed is returned when the queue rejects an event.
var ErrPublishFailed = errors.New("failed to publish event to queue")

// Service handles event emission logic. It is responsible for:
// - Serializing events in the wire format the decoder accepts
// - Rejecting events the consumer would not be able to decode
// - Publishing on the event's routing key so per-key order holds
type Service struct {
	publisher queue.Publisher
	logger    *slog.Logger
}

// NewService creates a new emitter service.
func NewService(publisher queue.Publisher, logger *slog.Logger) *Service {
	return &Service{
		publisher: publisher,
		logger:    logger,
	}
}

// Emit validates ev and publishes it.
func (s *Service) Emit(ctx context.Context, ev domain.StoreEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	routingKey := string(ev.RoutingKey())

	// the consumer must be able to read back whatever we send
	if _, err := event.Decode(payload, routingKey); err != nil {
		return err
	}

	publishStart := time.Now()
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Error("failed to publish event", "error", err, "storeID", ev.StoreID())
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(routingKey).Inc()

	s.logger.Info("store event published",
		"routingKey", routingKey,
		"storeID", ev.StoreID(),
		"latency", time.Since(publishStart),
	)

	return nil
}
