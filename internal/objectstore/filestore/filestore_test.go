package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sheetmerge/internal/objectstore"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "out", "eu/2024/report.csv", []byte("UID\n1\n"), "text/csv"))

	b, err := s.Get(ctx, "out", "eu/2024/report.csv")
	require.NoError(t, err)
	require.Equal(t, "UID\n1\n", string(b))

	onDisk, err := os.ReadFile(filepath.Join(root, "out", "eu", "2024", "report.csv"))
	require.NoError(t, err)
	require.Equal(t, b, onDisk)

	require.NoError(t, s.Put(ctx, "out", "eu/2024/report.csv", []byte("UID\n2\n"), "text/csv"))
	b, err = s.Get(ctx, "out", "eu/2024/report.csv")
	require.NoError(t, err)
	require.Equal(t, "UID\n2\n", string(b))
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "in", "missing.xlsx")
	require.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"../../etc/passwd", "../x"} {
		require.Error(t, s.Put(ctx, "b", key, []byte("x"), ""), key)
	}
	_, err = s.Get(ctx, "", "k")
	require.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	_, err = New(f)
	require.ErrorContains(t, err, "not a directory")
}

func TestRegisteredAsFile(t *testing.T) {
	t.Parallel()

	s, err := objectstore.New(context.Background(), objectstore.Config{Kind: "file", Root: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
