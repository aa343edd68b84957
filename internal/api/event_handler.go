package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/emitter"
	"queue-keeper/internal/event"
)

// EventHandler puts store lifecycle events on the inbound queue over HTTP.
// It is only mounted in memory mode, where no external producer can reach
// the queue.
type EventHandler struct {
	emitter *emitter.Service
	logger  *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(emitter *emitter.Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		emitter: emitter,
		logger:  logger,
	}
}

// Publish handles POST /events/:routingKey
// The body is the event payload exactly as it would travel on the queue.
// Returns 202 Accepted; the poller applies the event asynchronously.
func (h *EventHandler) Publish(c *fiber.Ctx) error {
	routingKey := c.Params("routingKey")

	ev, err := event.Decode(c.Body(), routingKey)
	if err != nil {
		h.logger.Debug("rejected event", "error", err, "routingKey", routingKey)
		return BadRequest(c, err.Error())
	}

	if err := h.emitter.Emit(c.Context(), ev); err != nil {
		var de *domain.DecodeError
		if errors.As(err, &de) {
			return BadRequest(c, err.Error())
		}
		h.logger.Error("failed to publish event", "error", err, "storeID", ev.StoreID())
		return InternalError(c, "failed to publish event")
	}

	return Accepted(c, map[string]string{
		"status":     "accepted",
		"routingKey": routingKey,
		"storeId":    ev.StoreID(),
	})
}
