package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDB holds the primary pool and, when configured, a read replica
// pool for list queries.
type PostgresDB struct {
	Pool     *pgxpool.Pool
	ReadPool *pgxpool.Pool
}

// NewPostgresDB creates a new PostgreSQL connection pool. An empty readURL,
// or one equal to databaseURL, makes reads share the primary pool.
func NewPostgresDB(ctx context.Context, databaseURL, readURL string) (*PostgresDB, error) {
	pool, err := newPool(ctx, databaseURL, 10)
	if err != nil {
		return nil, err
	}

	db := &PostgresDB{Pool: pool}
	if readURL == "" || readURL == databaseURL {
		return db, nil
	}

	readPool, err := newPool(ctx, readURL, 20)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("read replica: %w", err)
	}
	db.ReadPool = readPool
	return db, nil
}

func newPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Configure connection pool for Cloud Run
	config.MaxConns = maxConns
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute
	config.ConnConfig.ConnectTimeout = time.Second * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// GetReadPool returns the replica pool, or the primary pool without one
func (db *PostgresDB) GetReadPool() *pgxpool.Pool {
	if db.ReadPool != nil {
		return db.ReadPool
	}
	return db.Pool
}

// Close closes the database connection pools
func (db *PostgresDB) Close() {
	if db.ReadPool != nil {
		db.ReadPool.Close()
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks the database connection
func (db *PostgresDB) Health(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return err
	}
	if db.ReadPool != nil {
		return db.ReadPool.Ping(ctx)
	}
	return nil
}
