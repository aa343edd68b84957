// Package memory provides in-memory implementations of the store interfaces.
// They are used for development mode and tests and mirror the constraints
// the PostgreSQL schema enforces.
package memory

import (
	"context"
	"sync"

	"queue-keeper/internal/domain"
)

// StoreRepository is an in-memory implementation of store.StoreRepository.
type StoreRepository struct {
	mu sync.RWMutex

	// stores holds all stores by their upstream ID
	stores map[string]*domain.Store

	// onDelete is called after a store is removed; the queue repository uses
	// it to cascade.
	onDelete func(storeID string)
}

// NewStoreRepository creates a new in-memory store repository.
func NewStoreRepository() *StoreRepository {
	return &StoreRepository{
		stores: make(map[string]*domain.Store),
	}
}

// Create stores a new store.
func (r *StoreRepository) Create(ctx context.Context, s *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[s.ID]; exists {
		return domain.ErrStoreAlreadyExists
	}

	r.stores[s.ID] = copyStore(s)
	return nil
}

// Rename overwrites the name and alias of a store.
func (r *StoreRepository) Rename(ctx context.Context, id, name string, alias *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.stores[id]
	if !exists {
		return domain.ErrStoreNotFound
	}

	s.Name = name
	s.Alias = copyString(alias)
	return nil
}

// Deactivate marks a store deactivated.
func (r *StoreRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.stores[id]
	if !exists {
		return domain.ErrStoreNotFound
	}

	s.Deactivated = true
	return nil
}

// Delete removes a store and cascades to its queues.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, exists := r.stores[id]; !exists {
		r.mu.Unlock()
		return domain.ErrStoreNotFound
	}
	delete(r.stores, id)
	onDelete := r.onDelete
	r.mu.Unlock()

	if onDelete != nil {
		onDelete(id)
	}
	return nil
}

// GetByID retrieves a store by its ID.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.stores[id]
	if !exists {
		return nil, domain.ErrStoreNotFound
	}

	return copyStore(s), nil
}

// Len returns the number of stores. Useful for tests.
func (r *StoreRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.stores)
}

func (r *StoreRepository) exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.stores[id]
	return ok
}

func copyStore(s *domain.Store) *domain.Store {
	c := *s
	c.Alias = copyString(s.Alias)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
