// Package pgstore is the Postgres objectstore backend (pgx pool, bytea blobs).
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sheetmerge/internal/objectstore"
)

func init() {
	objectstore.Register("postgres", func(ctx context.Context, cfg objectstore.Config) (objectstore.Store, error) {
		return New(ctx, cfg.DSN)
	})
}

const createSQL = `CREATE TABLE IF NOT EXISTS objects (
	bucket       text        NOT NULL,
	object_key   text        NOT NULL,
	body         bytea       NOT NULL,
	content_type text        NOT NULL DEFAULT '',
	updated_at   timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (bucket, object_key)
)`

const getSQL = `SELECT body FROM objects WHERE bucket = $1 AND object_key = $2`

const putSQL = `INSERT INTO objects (bucket, object_key, body, content_type, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (bucket, object_key) DO UPDATE SET
	body = EXCLUDED.body,
	content_type = EXCLUDED.content_type,
	updated_at = EXCLUDED.updated_at`

// Store keeps objects in a Postgres table.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool and ensures the objects table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgstore: dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: pool: %w", err)
	}
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: create objects table: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, getSQL, bucket, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", objectstore.ErrNotFound, bucket, key)
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore get %s/%s: %w", bucket, key, err)
	}
	return body, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if body == nil {
		body = []byte{}
	}
	if _, err := s.pool.Exec(ctx, putSQL, bucket, key, body, contentType); err != nil {
		return fmt.Errorf("pgstore put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
