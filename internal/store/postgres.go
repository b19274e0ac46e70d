package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresBlob keeps collections in a single key/value table.
type PostgresBlob struct {
	db *sql.DB
}

// NewPostgres opens a Postgres connection via pgx and ensures the
// blobs table exists.
func NewPostgres(connString string) (*PostgresBlob, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS blobs (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, err
	}
	return &PostgresBlob{db: db}, nil
}

// Get returns the value stored under key, if any.
func (p *PostgresBlob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := p.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = $1`, key)
	var val []byte
	if err := row.Scan(&val); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Set upserts value under key.
func (p *PostgresBlob) Set(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO blobs (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

// Healthy verifies database connectivity.
func (p *PostgresBlob) Healthy(ctx context.Context) bool {
	if p == nil || p.db == nil {
		return false
	}
	return p.db.PingContext(ctx) == nil
}

// Close closes the underlying connection pool.
func (p *PostgresBlob) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
