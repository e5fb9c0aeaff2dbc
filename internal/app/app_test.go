package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sheetmerge/internal/config"
	"sheetmerge/internal/metrics"
	_ "sheetmerge/internal/objectstore/filestore"
	"sheetmerge/internal/sheet/sheettest"
)

func fileSettings(t *testing.T) config.Settings {
	t.Helper()
	s, err := config.LoadSettings("")
	require.NoError(t, err)
	s.Store.Kind = "file"
	s.Store.Root = t.TempDir()
	return s
}

func seed(t *testing.T, rt *Runtime) config.Event {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, rt.Store.Put(ctx, "exports", "pivot.xlsx", sheettest.MustXLSX(sheettest.Sheet{
		Name: "Pivot Table Data",
		Rows: [][]any{{"UID", "Price"}, {1, 10}, {2, 20}},
	}), ""))
	require.NoError(t, rt.Store.Put(ctx, "exports", "report.xlsx", sheettest.MustXLSX(sheettest.Sheet{
		Name: "Product Details",
		Rows: [][]any{{"UID", "Cost"}, {1, 5}},
	}), ""))
	return config.Event{
		InputBucket:   "exports",
		PivotKey:      "pivot.xlsx",
		ReportKey:     "report.xlsx",
		OutputBucket:  "merged",
		OutputFileKey: "out/report.xlsx",
	}
}

// Tests here are not parallel: New installs a process-wide metrics backend.

func TestNew_FileStoreRoundTrip(t *testing.T) {
	s := fileSettings(t)
	rt, err := New(context.Background(), s, nil)
	require.NoError(t, err)

	ev := seed(t, rt)
	resp := rt.Handler.Handle(context.Background(), ev)
	require.Equal(t, 200, resp.StatusCode, resp.Body)

	got, err := rt.Store.Get(context.Background(), "merged", "out/report.csv")
	require.NoError(t, err)
	require.Equal(t, "UID,Price_pivot,Cost_report\n1,10,5\n2,20,\n", string(got))
	require.FileExists(t, filepath.Join(s.Store.Root, "merged", "out", "report.csv"))

	require.NoError(t, rt.Flush())
	require.NoError(t, rt.Close())
}

type gateway struct {
	mu     sync.Mutex
	pushes int
	body   []byte
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes++
	g.body, _ = io.ReadAll(r.Body)
}

func TestNew_PushgatewayReceivesRunMetrics(t *testing.T) {
	gw := &gateway{}
	srv := httptest.NewServer(gw)
	defer srv.Close()

	s := fileSettings(t)
	s.Metrics.Backend = "pushgateway"
	s.Metrics.PushgatewayURL = srv.URL

	rt, err := New(context.Background(), s, nil)
	require.NoError(t, err)

	ev := seed(t, rt)
	require.Equal(t, 200, rt.Handler.Handle(context.Background(), ev).StatusCode)
	require.NoError(t, rt.Close())

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Equal(t, 1, gw.pushes)
	require.Contains(t, string(gw.body), metrics.StepTotal)
	require.Contains(t, string(gw.body), metrics.RowsTotal)
}

func TestNew_Errors(t *testing.T) {
	s := fileSettings(t)
	s.Store.Root = ""
	_, err := New(context.Background(), s, nil)
	require.ErrorContains(t, err, "invalid settings: store.root is required")

	s = fileSettings(t)
	s.Store.Root = filepath.Join(s.Store.Root, "missing")
	_, err = New(context.Background(), s, nil)
	require.ErrorContains(t, err, "open store")

	s = fileSettings(t)
	s.Store.Kind = "sqlite"
	s.Store.DSN = filepath.Join(t.TempDir(), "objects.db")
	_, err = New(context.Background(), s, nil)
	require.ErrorContains(t, err, "unsupported store kind", "sqlite is not registered by this test binary")
}
