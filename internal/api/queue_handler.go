package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/metrics"
	"queue-keeper/internal/store"
)

// QueueHandler handles HTTP requests for queue operations.
type QueueHandler struct {
	queues  store.QueueRepository
	statics store.StaticRepository
	logger  *slog.Logger
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(queues store.QueueRepository, statics store.StaticRepository, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		queues:  queues,
		statics: statics,
		logger:  logger,
	}
}

// Create handles POST /queue/create
// Creates a new queue for a store. New queues start Closed.
func (h *QueueHandler) Create(c *fiber.Ctx) error {
	defer h.observe(c, "create")

	var req domain.CreateQueueRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	// Validate the request
	if err := req.Validate(); err != nil {
		h.logger.Debug("validation failed", "error", err)
		return BadRequest(c, err.Error())
	}

	if err := h.checkStatic(c.Context(), req.QueueType, domain.StaticTypeQueueType); err != nil {
		return h.writeError(c, err, req.QueueType, req.StoreID)
	}

	// a concurrent create is still caught by the unique constraint
	if _, err := h.queues.GetByStoreAndType(c.Context(), req.StoreID, req.QueueType); err == nil {
		return BadRequest(c, alreadyExists(req.QueueType, req.StoreID))
	} else if !errors.Is(err, domain.ErrQueueNotFound) {
		h.logger.Error("failed to look up queue", "storeID", req.StoreID, "queueType", req.QueueType, "error", err)
		return InternalError(c, "failed to create queue")
	}

	// Generate ID and create the queue
	q := req.ToQueue(uuid.New().String())

	if err := h.queues.Create(c.Context(), q); err != nil {
		return h.writeError(c, err, req.QueueType, req.StoreID)
	}

	h.logger.Info("created queue", "id", q.ID, "displayID", q.DisplayID(), "storeID", q.StoreID, "queueType", q.QueueType)
	return Created(c, MessageResponse{
		Message:   "Store queue created successfully",
		StoreID:   q.StoreID,
		QueueType: q.QueueType,
	})
}

// ListByStore handles GET /queue/get/:storeId
// Returns all queues of a store.
func (h *QueueHandler) ListByStore(c *fiber.Ctx) error {
	defer h.observe(c, "list")

	storeID := c.Params("storeId")
	if storeID == "" {
		return BadRequest(c, "storeId is required")
	}

	queues, err := h.queues.ListByStore(c.Context(), storeID)
	if err != nil {
		h.logger.Error("failed to list queues", "storeID", storeID, "error", err)
		return InternalError(c, "failed to list queues")
	}
	if len(queues) == 0 {
		return NotFound(c, fmt.Sprintf("No queues found for store %s", storeID))
	}

	out := make([]*domain.QueueResponse, 0, len(queues))
	for _, q := range queues {
		out = append(out, q.ToResponse())
	}
	return Success(c, out)
}

// GetByID handles GET /queue/details/:queueId
// Returns a single queue by ID.
func (h *QueueHandler) GetByID(c *fiber.Ctx) error {
	defer h.observe(c, "get")

	id := c.Params("queueId")
	if id == "" {
		return BadRequest(c, "queueId is required")
	}

	q, err := h.queues.GetByID(c.Context(), id)
	if err != nil {
		return h.writeError(c, err, "", "")
	}

	return Success(c, q.ToResponse())
}

// UpdateDetails handles POST /queue/edit/details
// Changes type, description, capacity and waiting time.
func (h *QueueHandler) UpdateDetails(c *fiber.Ctx) error {
	defer h.observe(c, "edit_details")

	var req domain.UpdateQueueDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	// Validate the request
	if err := req.Validate(); err != nil {
		h.logger.Debug("validation failed", "error", err)
		return BadRequest(c, err.Error())
	}

	if err := h.checkStatic(c.Context(), req.QueueType, domain.StaticTypeQueueType); err != nil {
		return h.writeError(c, err, req.QueueType, "")
	}

	return h.update(c, req.ID, req.ApplyTo)
}

// UpdateStatus handles POST /queue/edit/status
// Opens or closes a queue.
func (h *QueueHandler) UpdateStatus(c *fiber.Ctx) error {
	defer h.observe(c, "edit_status")

	var req domain.UpdateQueueStatusRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	// Validate the request
	if err := req.Validate(); err != nil {
		h.logger.Debug("validation failed", "error", err)
		return BadRequest(c, err.Error())
	}

	if err := h.checkStatic(c.Context(), req.Status, domain.StaticTypeQueueStatus); err != nil {
		return h.writeError(c, err, "", "")
	}

	return h.update(c, req.ID, func(q *domain.Queue) {
		q.Status = req.Status
	})
}

// UpdateActiveStatus handles POST /queue/edit/active-status
// Activates or deactivates a queue.
func (h *QueueHandler) UpdateActiveStatus(c *fiber.Ctx) error {
	defer h.observe(c, "edit_active_status")

	var req domain.UpdateQueueActiveStatusRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	// Validate the request
	if err := req.Validate(); err != nil {
		h.logger.Debug("validation failed", "error", err)
		return BadRequest(c, err.Error())
	}

	return h.update(c, req.ID, func(q *domain.Queue) {
		q.Deactivated = *req.Deactivated
	})
}

// update fetches a queue, applies fn and persists it.
func (h *QueueHandler) update(c *fiber.Ctx, id string, fn func(q *domain.Queue)) error {
	// Fetch existing queue
	q, err := h.queues.GetByID(c.Context(), id)
	if err != nil {
		return h.writeError(c, err, "", "")
	}

	// Apply updates
	fn(q)

	// Persist changes
	if err := h.queues.Update(c.Context(), q); err != nil {
		return h.writeError(c, err, q.QueueType, q.StoreID)
	}

	h.logger.Info("updated queue", "id", q.ID, "displayID", q.DisplayID())
	return Success(c, q.ToResponse())
}

// checkStatic verifies key is a static entry of category t.
func (h *QueueHandler) checkStatic(ctx context.Context, key string, t domain.StaticType) error {
	unknown := domain.ErrUnknownQueueType
	if t == domain.StaticTypeQueueStatus {
		unknown = domain.ErrUnknownQueueStatus
	}

	entry, err := h.statics.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrStaticEntryNotFound) {
			return fmt.Errorf("%w: %s", unknown, key)
		}
		return err
	}
	if entry.Type != t {
		return fmt.Errorf("%w: %s", unknown, key)
	}
	return nil
}

// writeError maps repository and validation errors onto responses.
func (h *QueueHandler) writeError(c *fiber.Ctx, err error, queueType, storeID string) error {
	switch {
	case errors.Is(err, domain.ErrQueueNotFound):
		return NotFound(c, "Queue not found")
	case errors.Is(err, domain.ErrStoreNotFound):
		return NotFound(c, fmt.Sprintf("Store %s not found", storeID))
	case errors.Is(err, domain.ErrQueueAlreadyExists):
		return BadRequest(c, alreadyExists(queueType, storeID))
	case errors.Is(err, domain.ErrUnknownQueueType),
		errors.Is(err, domain.ErrUnknownQueueStatus):
		return BadRequest(c, err.Error())
	}

	h.logger.Error("queue operation failed", "path", c.Path(), "error", err)
	return InternalError(c, "failed to process queue request")
}

// observe counts the operation by the status of the response written.
func (h *QueueHandler) observe(c *fiber.Ctx, op string) {
	status := "success"
	if c.Response().StatusCode() >= fiber.StatusBadRequest {
		status = "failure"
	}
	metrics.QueueOperationsTotal.WithLabelValues(op, status).Inc()
}

func alreadyExists(queueType, storeID string) string {
	return fmt.Sprintf("%s queue already exists for store %s", queueType, storeID)
}
