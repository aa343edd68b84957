// Package postgres provides PostgreSQL-based implementations of the store interfaces.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"queue-keeper/internal/config"
	"queue-keeper/internal/domain"
	"queue-keeper/internal/metrics"
)

// PostgreSQL error codes the repositories translate into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Constraint names declared in the schema below.
const (
	constraintStoresPK      = "stores_pkey"
	constraintQueueUnique   = "queues_queue_type_store_id_key"
	constraintQueueStoreFK  = "queues_store_id_fkey"
	constraintQueueTypeFK   = "queues_queue_type_fkey"
	constraintQueueStatusFK = "queues_status_fkey"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, cfg *config.PostgresConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxOpenConns
	poolConfig.MinConns = cfg.MaxIdleConns
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// RunMigrations creates the required database tables.
func (db *DB) RunMigrations(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS static (
			key VARCHAR(50) PRIMARY KEY,
			value VARCHAR(100) NOT NULL,
			type VARCHAR(100) NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_static_type ON static(type);

		CREATE TABLE IF NOT EXISTS stores (
			id VARCHAR(255) CONSTRAINT stores_pkey PRIMARY KEY,
			s_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			alias TEXT,
			deactivated BOOLEAN NOT NULL DEFAULT FALSE,
			company_id VARCHAR(255) NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_stores_s_id ON stores(s_id);

		CREATE TABLE IF NOT EXISTS queues (
			id VARCHAR(36) PRIMARY KEY,
			q_id BIGINT GENERATED ALWAYS AS IDENTITY CONSTRAINT queues_q_id_key UNIQUE,
			queue_type VARCHAR(50) NOT NULL CONSTRAINT queues_queue_type_fkey REFERENCES static(key),
			description TEXT,
			status VARCHAR(50) NOT NULL DEFAULT 'Closed' CONSTRAINT queues_status_fkey REFERENCES static(key),
			capacity INTEGER NOT NULL DEFAULT 0 CHECK (capacity >= 0),
			waiting_time INTEGER NOT NULL DEFAULT 0 CHECK (waiting_time >= 0),
			deactivated BOOLEAN NOT NULL DEFAULT FALSE,
			store_id VARCHAR(255) NOT NULL CONSTRAINT queues_store_id_fkey REFERENCES stores(id) ON DELETE CASCADE,
			CONSTRAINT queues_queue_type_store_id_key UNIQUE (queue_type, store_id)
		);

		CREATE INDEX IF NOT EXISTS idx_queues_store ON queues(store_id);
	`

	_, err := db.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// inTx runs fn in its own transaction. The transaction is rolled back when
// fn returns an error and the connection is always returned to the pool.
func (db *DB) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, db.pool, fn)
	observe(op, start, err)
	return err
}

// observe records latency and outcome of a storage operation.
func observe(op string, start time.Time, err error) {
	metrics.StorageOperationLatency.WithLabelValues("postgres", op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.StorageOperationsTotal.WithLabelValues("postgres", op, status).Inc()
}

// translate maps constraint violations onto domain errors. Anything else is
// returned unchanged.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintStoresPK:
			return domain.ErrStoreAlreadyExists
		case constraintQueueUnique:
			return domain.ErrQueueAlreadyExists
		}
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintQueueStoreFK:
			return domain.ErrStoreNotFound
		case constraintQueueTypeFK:
			return domain.ErrUnknownQueueType
		case constraintQueueStatusFK:
			return domain.ErrUnknownQueueStatus
		}
	}
	return err
}
