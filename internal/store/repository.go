// Package store defines interfaces for data persistence.
// These abstractions allow swapping implementations (PostgreSQL, Redis, in-memory)
// without changing business logic.
package store

import (
	"context"

	"queue-keeper/internal/domain"
)

// StoreRepository persists stores mirrored from upstream lifecycle events.
// Every mutation runs in its own transaction.
type StoreRepository interface {
	// Create inserts a new store. Returns domain.ErrStoreAlreadyExists if the id is taken.
	Create(ctx context.Context, s *domain.Store) error

	// Rename overwrites the name and alias of an existing store.
	// Returns domain.ErrStoreNotFound if the store does not exist.
	Rename(ctx context.Context, id, name string, alias *string) error

	// Deactivate sets deactivated = true on an existing store.
	// Returns domain.ErrStoreNotFound if the store does not exist.
	Deactivate(ctx context.Context, id string) error

	// Delete removes a store and, by cascade, all of its queues.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a store by its upstream id.
	GetByID(ctx context.Context, id string) (*domain.Store, error)
}

// QueueRepository persists queues. The pair (store id, queue type) is unique.
type QueueRepository interface {
	// Create inserts a queue and assigns its sequence number.
	// Returns domain.ErrQueueAlreadyExists when the store already has a queue
	// of that type, domain.ErrStoreNotFound for an unknown store and
	// domain.ErrUnknownQueueType/ErrUnknownQueueStatus for bad static keys.
	Create(ctx context.Context, q *domain.Queue) error

	// Update overwrites the mutable fields of an existing queue.
	// Returns domain.ErrQueueNotFound if the queue does not exist.
	Update(ctx context.Context, q *domain.Queue) error

	// GetByID retrieves a queue by its id.
	GetByID(ctx context.Context, id string) (*domain.Queue, error)

	// GetByStoreAndType retrieves the queue of the given type for a store.
	GetByStoreAndType(ctx context.Context, storeID, queueType string) (*domain.Queue, error)

	// ListByStore retrieves all queues of a store ordered by sequence number.
	ListByStore(ctx context.Context, storeID string) ([]*domain.Queue, error)
}

// StaticRepository reads the static lookup table.
type StaticRepository interface {
	// ListByType retrieves all entries of a category ordered by key.
	ListByType(ctx context.Context, t domain.StaticType) ([]domain.StaticEntry, error)

	// Get retrieves a single entry. Returns domain.ErrStaticEntryNotFound if absent.
	Get(ctx context.Context, key string) (*domain.StaticEntry, error)

	// Seed inserts entries that do not exist yet; existing keys are left untouched.
	Seed(ctx context.Context, entries []domain.StaticEntry) error
}
