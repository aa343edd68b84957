package domain

import (
	"errors"
	"fmt"
)

// Queue is a waiting line attached to a store. A store has at most one
// queue per queue type.
type Queue struct {
	// ID is the system-generated identifier.
	ID string `json:"id"`

	// SequenceNumber is assigned by storage on insert and drives the display id.
	SequenceNumber int64 `json:"qId"`

	// QueueType is a Queue_Type static key, e.g. "Virtual".
	QueueType string `json:"queueType"`

	// Description is optional free text.
	Description *string `json:"description"`

	// Status is a Queue_Status static key; new queues start Closed.
	Status string `json:"status"`

	// Capacity is the maximum number of waiting customers, 0 meaning unset.
	Capacity int `json:"capacity"`

	// WaitingTime is the estimated wait in minutes.
	WaitingTime int `json:"waitingTime"`

	// Deactivated hides the queue from customers without deleting it.
	Deactivated bool `json:"deactivated"`

	// StoreID references the owning store.
	StoreID string `json:"storeId"`
}

// Queue errors.
var (
	ErrQueueNotFound       = errors.New("queue not found")
	ErrQueueAlreadyExists  = errors.New("queue already exists for store")
	ErrEmptyQueueID        = errors.New("id is required")
	ErrEmptyQueueType      = errors.New("queueType is required")
	ErrEmptyQueueStatus    = errors.New("status is required")
	ErrEmptyStoreID        = errors.New("storeId is required")
	ErrNegativeCapacity    = errors.New("capacity must not be negative")
	ErrNegativeWaitingTime = errors.New("waitingTime must not be negative")
	ErrUnknownQueueType    = errors.New("unknown queue type")
	ErrUnknownQueueStatus  = errors.New("unknown queue status")
)

// DisplayID returns the human-facing queue code, e.g. "Q7".
func (q *Queue) DisplayID() string {
	return fmt.Sprintf("Q%d", q.SequenceNumber)
}

// QueueResponse is the API representation of a queue.
type QueueResponse struct {
	ID          string  `json:"id"`
	QID         int64   `json:"qId"`
	DisplayID   string  `json:"displayId"`
	QueueType   string  `json:"queueType"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Capacity    int     `json:"capacity"`
	WaitingTime int     `json:"waitingTime"`
	Deactivated bool    `json:"deactivated"`
	StoreID     string  `json:"storeId"`
}

// ToResponse converts a Queue to its API representation.
func (q *Queue) ToResponse() *QueueResponse {
	return &QueueResponse{
		ID:          q.ID,
		QID:         q.SequenceNumber,
		DisplayID:   q.DisplayID(),
		QueueType:   q.QueueType,
		Description: q.Description,
		Status:      q.Status,
		Capacity:    q.Capacity,
		WaitingTime: q.WaitingTime,
		Deactivated: q.Deactivated,
		StoreID:     q.StoreID,
	}
}

// CreateQueueRequest represents the input for creating a queue.
type CreateQueueRequest struct {
	QueueType   string  `json:"queueType"`
	Description *string `json:"description"`
	StoreID     string  `json:"storeId"`
}

// Validate checks the create request has required fields.
func (r *CreateQueueRequest) Validate() error {
	if r.QueueType == "" {
		return ErrEmptyQueueType
	}
	if r.StoreID == "" {
		return ErrEmptyStoreID
	}
	return nil
}

// ToQueue converts the request to a Queue with default status and capacity.
// The sequence number is left for storage to assign.
func (r *CreateQueueRequest) ToQueue(id string) *Queue {
	return &Queue{
		ID:          id,
		QueueType:   r.QueueType,
		Description: r.Description,
		Status:      QueueStatusClosed,
		StoreID:     r.StoreID,
	}
}

// UpdateQueueDetailsRequest edits the descriptive fields of a queue.
type UpdateQueueDetailsRequest struct {
	ID          string  `json:"id"`
	QueueType   string  `json:"queueType"`
	Description *string `json:"description"`
	Capacity    int     `json:"capacity"`
	WaitingTime int     `json:"waitingTime"`
}

// Validate checks the details request.
func (r *UpdateQueueDetailsRequest) Validate() error {
	if r.ID == "" {
		return ErrEmptyQueueID
	}
	if r.QueueType == "" {
		return ErrEmptyQueueType
	}
	if r.Capacity < 0 {
		return ErrNegativeCapacity
	}
	if r.WaitingTime < 0 {
		return ErrNegativeWaitingTime
	}
	return nil
}

// ApplyTo copies the request values onto q.
func (r *UpdateQueueDetailsRequest) ApplyTo(q *Queue) {
	q.QueueType = r.QueueType
	q.Description = r.Description
	q.Capacity = r.Capacity
	q.WaitingTime = r.WaitingTime
}

// UpdateQueueStatusRequest opens or closes a queue.
type UpdateQueueStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Validate checks the status request.
func (r *UpdateQueueStatusRequest) Validate() error {
	if r.ID == "" {
		return ErrEmptyQueueID
	}
	if r.Status == "" {
		return ErrEmptyQueueStatus
	}
	return nil
}

// UpdateQueueActiveStatusRequest activates or deactivates a queue.
type UpdateQueueActiveStatusRequest struct {
	ID          string `json:"id"`
	Deactivated *bool  `json:"deactivated"`
}

// ErrEmptyDeactivated is returned when the deactivated flag is missing.
var ErrEmptyDeactivated = errors.New("deactivated is required")

// Validate checks the active-status request.
func (r *UpdateQueueActiveStatusRequest) Validate() error {
	if r.ID == "" {
		return ErrEmptyQueueID
	}
	if r.Deactivated == nil {
		return ErrEmptyDeactivated
	}
	return nil
}
