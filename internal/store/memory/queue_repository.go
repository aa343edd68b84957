package memory

import (
	"context"
	"sort"
	"sync"

	"queue-keeper/internal/domain"
)

// QueueRepository is an in-memory implementation of store.QueueRepository.
// It enforces the same foreign keys as the SQL schema: the store and both
// static keys must exist, and (store, type) is unique.
type QueueRepository struct {
	mu sync.RWMutex

	// queues stores all queues by their ID
	queues map[string]*domain.Queue

	// seq is the last assigned sequence number
	seq int64

	stores  *StoreRepository
	statics *StaticRepository
}

// NewQueueRepository creates a queue repository bound to the given store and
// static repositories. Deleting a store removes its queues.
func NewQueueRepository(stores *StoreRepository, statics *StaticRepository) *QueueRepository {
	r := &QueueRepository{
		queues:  make(map[string]*domain.Queue),
		stores:  stores,
		statics: statics,
	}

	stores.mu.Lock()
	stores.onDelete = r.deleteByStore
	stores.mu.Unlock()

	return r
}

// Create stores a new queue and assigns its sequence number.
func (r *QueueRepository) Create(ctx context.Context, q *domain.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkReferences(q); err != nil {
		return err
	}
	if r.findByStoreAndType(q.StoreID, q.QueueType, "") != nil {
		return domain.ErrQueueAlreadyExists
	}

	r.seq++
	q.SequenceNumber = r.seq
	r.queues[q.ID] = copyQueue(q)
	return nil
}

// Update overwrites the mutable fields of an existing queue.
func (r *QueueRepository) Update(ctx context.Context, q *domain.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.queues[q.ID]
	if !exists {
		return domain.ErrQueueNotFound
	}
	if err := r.checkReferences(q); err != nil {
		return err
	}
	if r.findByStoreAndType(existing.StoreID, q.QueueType, q.ID) != nil {
		return domain.ErrQueueAlreadyExists
	}

	updated := copyQueue(q)
	// id, sequence and store are immutable
	updated.SequenceNumber = existing.SequenceNumber
	updated.StoreID = existing.StoreID
	r.queues[q.ID] = updated
	return nil
}

// GetByID retrieves a queue by its ID.
func (r *QueueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, exists := r.queues[id]
	if !exists {
		return nil, domain.ErrQueueNotFound
	}
	return copyQueue(q), nil
}

// GetByStoreAndType retrieves the queue of a given type for a store.
func (r *QueueRepository) GetByStoreAndType(ctx context.Context, storeID, queueType string) (*domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := r.findByStoreAndType(storeID, queueType, "")
	if q == nil {
		return nil, domain.ErrQueueNotFound
	}
	return copyQueue(q), nil
}

// ListByStore retrieves all queues of a store ordered by sequence number.
func (r *QueueRepository) ListByStore(ctx context.Context, storeID string) ([]*domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.Queue
	for _, q := range r.queues {
		if q.StoreID == storeID {
			results = append(results, copyQueue(q))
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].SequenceNumber < results[j].SequenceNumber })
	return results, nil
}

// checkReferences mirrors the foreign keys of the queues table.
func (r *QueueRepository) checkReferences(q *domain.Queue) error {
	if !r.stores.exists(q.StoreID) {
		return domain.ErrStoreNotFound
	}
	if !r.statics.hasKey(q.QueueType) {
		return domain.ErrUnknownQueueType
	}
	if !r.statics.hasKey(q.Status) {
		return domain.ErrUnknownQueueStatus
	}
	return nil
}

// findByStoreAndType must be called with the lock held. skipID excludes a queue
// from the search so an update does not collide with itself.
func (r *QueueRepository) findByStoreAndType(storeID, queueType, skipID string) *domain.Queue {
	for id, q := range r.queues {
		if id != skipID && q.StoreID == storeID && q.QueueType == queueType {
			return q
		}
	}
	return nil
}

func (r *QueueRepository) deleteByStore(storeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, q := range r.queues {
		if q.StoreID == storeID {
			delete(r.queues, id)
		}
	}
}

func copyQueue(q *domain.Queue) *domain.Queue {
	c := *q
	c.Description = copyString(q.Description)
	return &c
}
