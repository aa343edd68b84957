package memory

import (
	"context"
	"sort"
	"sync"

	"queue-keeper/internal/domain"
)

// StaticRepository is an in-memory implementation of store.StaticRepository.
type StaticRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.StaticEntry
}

// NewStaticRepository creates an empty static repository.
func NewStaticRepository() *StaticRepository {
	return &StaticRepository{
		entries: make(map[string]domain.StaticEntry),
	}
}

// ListByType retrieves all entries of a category ordered by key.
func (r *StaticRepository) ListByType(ctx context.Context, t domain.StaticType) ([]domain.StaticEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.StaticEntry
	for _, e := range r.entries {
		if e.Type == t {
			results = append(results, e)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

// Get retrieves a single entry by key.
func (r *StaticRepository) Get(ctx context.Context, key string) (*domain.StaticEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[key]
	if !exists {
		return nil, domain.ErrStaticEntryNotFound
	}
	return &e, nil
}

// Seed inserts entries whose keys are not present yet.
func (r *StaticRepository) Seed(ctx context.Context, entries []domain.StaticEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		if _, exists := r.entries[e.Key]; !exists {
			r.entries[e.Key] = e
		}
	}
	return nil
}

func (r *StaticRepository) hasKey(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[key]
	return ok
}
