package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"queue-keeper/internal/domain"
)

// StoreRepository implements store.StoreRepository using PostgreSQL.
type StoreRepository struct {
	db *DB
}

// NewStoreRepository creates a new PostgreSQL-backed store repository.
func NewStoreRepository(db *DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// Create stores a new store.
func (r *StoreRepository) Create(ctx context.Context, s *domain.Store) error {
	query := `
		INSERT INTO stores (id, s_id, name, alias, deactivated, company_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	err := r.db.inTx(ctx, "create_store", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			s.ID,
			s.DisplaySequence,
			s.Name,
			s.Alias,
			s.Deactivated,
			s.CompanyID,
		)
		return err
	})
	if err != nil {
		if err := translate(err); errors.Is(err, domain.ErrStoreAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to create store: %w", err)
	}

	return nil
}

// Rename overwrites the name and alias of an existing store.
func (r *StoreRepository) Rename(ctx context.Context, id, name string, alias *string) error {
	query := `UPDATE stores SET name = $2, alias = $3 WHERE id = $1`

	return r.updateOne(ctx, "rename_store", query, id, name, alias)
}

// Deactivate marks a store deactivated.
func (r *StoreRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE stores SET deactivated = TRUE WHERE id = $1`

	return r.updateOne(ctx, "deactivate_store", query, id)
}

// updateOne runs an UPDATE that must hit exactly one store.
func (r *StoreRepository) updateOne(ctx context.Context, op, query string, args ...interface{}) error {
	err := r.db.inTx(ctx, op, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return domain.ErrStoreNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrStoreNotFound) {
			return err
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

// Delete removes a store; its queues go with it through ON DELETE CASCADE.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	return r.updateOne(ctx, "delete_store", `DELETE FROM stores WHERE id = $1`, id)
}

// GetByID retrieves a store by its upstream ID.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	query := `
		SELECT id, s_id, name, alias, deactivated, company_id
		FROM stores
		WHERE id = $1
	`

	start := time.Now()
	var s domain.Store
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.DisplaySequence,
		&s.Name,
		&s.Alias,
		&s.Deactivated,
		&s.CompanyID,
	)
	observe("get_store", start, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return &s, nil
}
