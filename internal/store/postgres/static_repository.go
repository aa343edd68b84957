package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"queue-keeper/internal/domain"
)

// StaticRepository implements store.StaticRepository using PostgreSQL.
type StaticRepository struct {
	db *DB
}

// NewStaticRepository creates a new PostgreSQL-backed static repository.
func NewStaticRepository(db *DB) *StaticRepository {
	return &StaticRepository{db: db}
}

// ListByType retrieves all entries of a category ordered by key.
func (r *StaticRepository) ListByType(ctx context.Context, t domain.StaticType) ([]domain.StaticEntry, error) {
	query := `SELECT key, value, type FROM static WHERE type = $1 ORDER BY key`

	start := time.Now()
	rows, err := r.db.pool.Query(ctx, query, string(t))
	if err != nil {
		observe("list_static", start, err)
		return nil, fmt.Errorf("failed to list static entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StaticEntry, error) {
		var e domain.StaticEntry
		err := row.Scan(&e.Key, &e.Value, &e.Type)
		return e, err
	})
	observe("list_static", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan static entries: %w", err)
	}

	return entries, nil
}

// Get retrieves a single entry by key.
func (r *StaticRepository) Get(ctx context.Context, key string) (*domain.StaticEntry, error) {
	query := `SELECT key, value, type FROM static WHERE key = $1`

	start := time.Now()
	var e domain.StaticEntry
	err := r.db.pool.QueryRow(ctx, query, key).Scan(&e.Key, &e.Value, &e.Type)
	observe("get_static", start, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStaticEntryNotFound
		}
		return nil, fmt.Errorf("failed to get static entry: %w", err)
	}

	return &e, nil
}

// Seed inserts entries that do not exist yet in a single transaction.
func (r *StaticRepository) Seed(ctx context.Context, entries []domain.StaticEntry) error {
	query := `INSERT INTO static (key, value, type) VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`

	err := r.db.inTx(ctx, "seed_static", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, e := range entries {
			batch.Queue(query, e.Key, e.Value, string(e.Type))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to seed static entries: %w", err)
	}

	return nil
}
