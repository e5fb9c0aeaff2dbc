package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sheetmerge/internal/objectstore"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "objects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_PutGetOverwrite(t *testing.T) {
	t.Parallel()

	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "in", "pivot.xlsx", []byte{0x50, 0x4b, 0x03, 0x04}, "application/octet-stream"))
	b, err := s.Get(ctx, "in", "pivot.xlsx")
	require.NoError(t, err)
	require.Equal(t, []byte{0x50, 0x4b, 0x03, 0x04}, b)

	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, s.Put(ctx, "in", "pivot.xlsx", []byte("v2"), "text/plain"))

	b, err = s.Get(ctx, "in", "pivot.xlsx")
	require.NoError(t, err)
	require.Equal(t, "v2", string(b))

	var ct, ts string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT content_type, updated_at FROM objects WHERE bucket = ? AND object_key = ?`, "in", "pivot.xlsx").Scan(&ct, &ts))
	require.Equal(t, "text/plain", ct)
	require.Equal(t, "2024-05-01T12:00:00Z", ts)
}

func TestSQLite_EmptyBodyAndMissing(t *testing.T) {
	t.Parallel()

	s := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "out", "empty.csv", nil, ""))
	b, err := s.Get(ctx, "out", "empty.csv")
	require.NoError(t, err)
	require.Empty(t, b)

	_, err = s.Get(ctx, "out", "absent.csv")
	require.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "objects.db")
	ctx := context.Background()

	s1, err := Open(ctx, SQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, s1.Put(ctx, "b", "k", []byte("kept"), ""))
	require.NoError(t, s1.Close())

	s2, err := objectstore.New(ctx, objectstore.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer s2.Close()

	b, err := s2.Get(ctx, "b", "k")
	require.NoError(t, err)
	require.Equal(t, "kept", string(b))
}

func TestOpen_RequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), SQLServer, "")
	require.ErrorContains(t, err, "dsn is required")
}
