package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"queue-keeper/internal/domain"
)

const queueColumns = `id, q_id, queue_type, description, status, capacity, waiting_time, deactivated, store_id`

// QueueRepository implements store.QueueRepository using PostgreSQL.
type QueueRepository struct {
	db *DB
}

// NewQueueRepository creates a new PostgreSQL-backed queue repository.
func NewQueueRepository(db *DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Create stores a new queue; the database assigns q_id.
func (r *QueueRepository) Create(ctx context.Context, q *domain.Queue) error {
	query := `
		INSERT INTO queues (
			id, queue_type, description, status, capacity, waiting_time, deactivated, store_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING q_id
	`

	err := r.db.inTx(ctx, "create_queue", func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			q.ID,
			q.QueueType,
			q.Description,
			q.Status,
			q.Capacity,
			q.WaitingTime,
			q.Deactivated,
			q.StoreID,
		).Scan(&q.SequenceNumber)
	})
	if err != nil {
		return wrapQueueError("create", err)
	}

	return nil
}

// Update modifies an existing queue. The store and sequence number are immutable.
func (r *QueueRepository) Update(ctx context.Context, q *domain.Queue) error {
	query := `
		UPDATE queues SET
			queue_type = $2,
			description = $3,
			status = $4,
			capacity = $5,
			waiting_time = $6,
			deactivated = $7
		WHERE id = $1
	`

	err := r.db.inTx(ctx, "update_queue", func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query,
			q.ID,
			q.QueueType,
			q.Description,
			q.Status,
			q.Capacity,
			q.WaitingTime,
			q.Deactivated,
		)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return domain.ErrQueueNotFound
		}
		return nil
	})
	if err != nil {
		return wrapQueueError("update", err)
	}

	return nil
}

// GetByID retrieves a queue by its ID.
func (r *QueueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByStoreAndType retrieves the queue of a given type for a store.
func (r *QueueRepository) GetByStoreAndType(ctx context.Context, storeID, queueType string) (*domain.Queue, error) {
	return r.getOne(ctx, "store_id = $1 AND queue_type = $2", storeID, queueType)
}

// getOne retrieves a single queue matching the given condition.
func (r *QueueRepository) getOne(ctx context.Context, condition string, args ...interface{}) (*domain.Queue, error) {
	query := fmt.Sprintf(`SELECT %s FROM queues WHERE %s`, queueColumns, condition)

	start := time.Now()
	q, err := scanQueue(r.db.pool.QueryRow(ctx, query, args...))
	observe("get_queue", start, err)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQueueNotFound
		}
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	return q, nil
}

// ListByStore retrieves all queues of a store ordered by sequence number.
func (r *QueueRepository) ListByStore(ctx context.Context, storeID string) ([]*domain.Queue, error) {
	query := fmt.Sprintf(`SELECT %s FROM queues WHERE store_id = $1 ORDER BY q_id`, queueColumns)

	start := time.Now()
	rows, err := r.db.pool.Query(ctx, query, storeID)
	if err != nil {
		observe("list_queues", start, err)
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	defer rows.Close()

	var queues []*domain.Queue

	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			observe("list_queues", start, err)
			return nil, fmt.Errorf("failed to scan queue: %w", err)
		}
		queues = append(queues, q)
	}

	err = rows.Err()
	observe("list_queues", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating queues: %w", err)
	}

	return queues, nil
}

// scanQueue scans a single row into a Queue. pgx.Rows satisfies pgx.Row.
func scanQueue(row pgx.Row) (*domain.Queue, error) {
	var q domain.Queue

	err := row.Scan(
		&q.ID,
		&q.SequenceNumber,
		&q.QueueType,
		&q.Description,
		&q.Status,
		&q.Capacity,
		&q.WaitingTime,
		&q.Deactivated,
		&q.StoreID,
	)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// wrapQueueError keeps domain errors matchable and wraps everything else.
func wrapQueueError(op string, err error) error {
	err = translate(err)
	switch {
	case errors.Is(err, domain.ErrQueueNotFound),
		errors.Is(err, domain.ErrQueueAlreadyExists),
		errors.Is(err, domain.ErrStoreNotFound),
		errors.Is(err, domain.ErrUnknownQueueType),
		errors.Is(err, domain.ErrUnknownQueueStatus):
		return err
	}
	return fmt.Errorf("failed to %s queue: %w", op, err)
}
