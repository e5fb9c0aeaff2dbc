// Package sqlstore is an objectstore backend that keeps objects as blobs in a
// single "objects" table reached through database/sql. It serves the "sqlite"
// (modernc.org/sqlite) and "mssql" (go-mssqldb) kinds; the two differ only in
// DDL, placeholders and upsert syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"sheetmerge/internal/objectstore"
)

func init() {
	objectstore.Register("sqlite", func(ctx context.Context, cfg objectstore.Config) (objectstore.Store, error) {
		return Open(ctx, SQLite, cfg.DSN)
	})
	objectstore.Register("mssql", func(ctx context.Context, cfg objectstore.Config) (objectstore.Store, error) {
		return Open(ctx, SQLServer, cfg.DSN)
	})
}

// Dialect holds the per-database SQL.
type Dialect struct {
	Driver    string
	CreateSQL string
	GetSQL    string // args: bucket, key
	PutSQL    string // args: bucket, key, body, content_type, updated_at

	// Stamp converts the write time into the driver's preferred value.
	Stamp func(time.Time) any
}

// SQLite stores timestamps as RFC3339Nano text; SQLite has no native
// timestamp type and text round-trips exactly.
var SQLite = Dialect{
	Driver: "sqlite",
	CreateSQL: `CREATE TABLE IF NOT EXISTS objects (
	bucket       TEXT NOT NULL,
	object_key   TEXT NOT NULL,
	body         BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (bucket, object_key)
)`,
	GetSQL: `SELECT body FROM objects WHERE bucket = ? AND object_key = ?`,
	PutSQL: `INSERT INTO objects (bucket, object_key, body, content_type, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (bucket, object_key) DO UPDATE SET
	body = excluded.body,
	content_type = excluded.content_type,
	updated_at = excluded.updated_at`,
	Stamp: func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

// SQLServer keys fit the 900-byte clustered index limit (2 x NVARCHAR).
var SQLServer = Dialect{
	Driver: "sqlserver",
	CreateSQL: `IF OBJECT_ID(N'dbo.objects', N'U') IS NULL
CREATE TABLE dbo.objects (
	bucket       NVARCHAR(200)  NOT NULL,
	object_key   NVARCHAR(250)  NOT NULL,
	body         VARBINARY(MAX) NOT NULL,
	content_type NVARCHAR(255)  NOT NULL DEFAULT N'',
	updated_at   DATETIME2      NOT NULL,
	CONSTRAINT PK_objects PRIMARY KEY (bucket, object_key)
)`,
	GetSQL: `SELECT body FROM dbo.objects WHERE bucket = @p1 AND object_key = @p2`,
	PutSQL: `MERGE dbo.objects WITH (HOLDLOCK) AS t
USING (SELECT @p1 AS bucket, @p2 AS object_key) AS s
	ON t.bucket = s.bucket AND t.object_key = s.object_key
WHEN MATCHED THEN
	UPDATE SET body = @p3, content_type = @p4, updated_at = @p5
WHEN NOT MATCHED THEN
	INSERT (bucket, object_key, body, content_type, updated_at)
	VALUES (@p1, @p2, @p3, @p4, @p5);`,
	Stamp: func(t time.Time) any { return t.UTC() },
}

// Store is a database/sql-backed objectstore.Store.
type Store struct {
	db  *sql.DB
	d   Dialect
	now func() time.Time
}

// Open connects, pings and ensures the objects table exists.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore(%s): dsn is required", d.Driver)
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore(%s): open: %w", d.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore(%s): ping: %w", d.Driver, err)
	}
	if _, err := db.ExecContext(ctx, d.CreateSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore(%s): create objects table: %w", d.Driver, err)
	}
	return &Store{db: db, d: d, now: time.Now}, nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.d.GetSQL, bucket, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", objectstore.ErrNotFound, bucket, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore get %s/%s: %w", bucket, key, err)
	}
	return body, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if body == nil {
		body = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, s.d.PutSQL, bucket, key, body, contentType, s.d.Stamp(s.now())); err != nil {
		return fmt.Errorf("sqlstore put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
