package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/store"
)

// ConfigEntry is a static lookup value as the API returns it.
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ConfigHandler serves the static lookup values clients build forms from.
type ConfigHandler struct {
	statics store.StaticRepository
	logger  *slog.Logger
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(statics store.StaticRepository, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{
		statics: statics,
		logger:  logger,
	}
}

// QueueTypes handles GET /config/queue-types
func (h *ConfigHandler) QueueTypes(c *fiber.Ctx) error {
	return h.list(c, domain.StaticTypeQueueType, "Static queue types not found")
}

// QueueStatuses handles GET /config/queue-status
func (h *ConfigHandler) QueueStatuses(c *fiber.Ctx) error {
	return h.list(c, domain.StaticTypeQueueStatus, "Static queue statuses not found")
}

func (h *ConfigHandler) list(c *fiber.Ctx, t domain.StaticType, notFound string) error {
	entries, err := h.statics.ListByType(c.Context(), t)
	if err != nil {
		h.logger.Error("failed to list static entries", "type", t, "error", err)
		return InternalError(c, "failed to list static entries")
	}
	if len(entries) == 0 {
		return NotFound(c, notFound)
	}

	out := make([]ConfigEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ConfigEntry{Key: e.Key, Value: e.Value})
	}
	return Success(c, out)
}
