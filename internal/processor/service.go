// Package processor handles the store synchronization pipeline.
// It decodes messages taken off the queue into store events and applies
// them to the store repository.
package processor

import (
	"context"
	"log/slog"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/event"
	"queue-keeper/internal/metrics"
	"queue-keeper/internal/queue"
)

// Service processes store event messages. It is responsible for:
// - Decoding the body according to the routing key
// - Applying the decoded event to the store repository
// - Classifying failures so the poller can settle the message
type Service struct {
	applier *Applier
	logger  *slog.Logger
}

// NewService creates a new processor service.
func NewService(applier *Applier, logger *slog.Logger) *Service {
	return &Service{
		applier: applier,
		logger:  logger,
	}
}

// HandleMessage is the queue.Handler for store event messages. It returns
// nil when the message can be deleted and a *domain.Failure otherwise.
func (s *Service) HandleMessage(ctx context.Context, msg *queue.Message) error {
	ev, err := event.Decode(msg.Body, msg.RoutingKey)
	if err != nil {
		metrics.EventsAppliedTotal.WithLabelValues(labelRoutingKey(msg.RoutingKey), domain.KindDecode.String()).Inc()
		s.logger.Warn("failed to decode message",
			"messageID", msg.ID,
			"routingKey", msg.RoutingKey,
			"error", err,
		)
		return domain.NewFailure("decode message", err)
	}

	s.logger.Debug("processing store event",
		"messageID", msg.ID,
		"routingKey", msg.RoutingKey,
		"storeID", ev.StoreID(),
	)

	if err := s.applier.Apply(ctx, ev); err != nil {
		metrics.EventsAppliedTotal.WithLabelValues(msg.RoutingKey, domain.KindOf(err).String()).Inc()
		return err
	}

	metrics.EventsAppliedTotal.WithLabelValues(msg.RoutingKey, "success").Inc()
	return nil
}

// labelRoutingKey bounds the metric label set to known routing keys.
func labelRoutingKey(key string) string {
	if domain.RoutingKey(key).IsValid() {
		return key
	}
	return "unknown"
}
