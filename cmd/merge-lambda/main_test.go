package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sheetmerge/internal/config"
	"sheetmerge/internal/merge"
	"sheetmerge/internal/sheet/sheettest"
)

type countingFlusher struct {
	n   int
	err error
}

func (c *countingFlusher) Flush() error {
	c.n++
	return c.err
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	require.Empty(t, requestID(context.Background()))
	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-42"})
	require.Equal(t, "req-42", requestID(ctx))
}

// Not parallel: configures the runtime through environment variables.
func TestNewHandler_InvokeFlushesEveryTime(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SHEETMERGE_CONFIG", "")
	t.Setenv("SHEETMERGE__STORE__KIND", "file")
	t.Setenv("SHEETMERGE__STORE__ROOT", root)
	t.Setenv("SHEETMERGE__LOG__LEVEL", "error")

	h, cleanup, err := newHandler(context.Background())
	require.NoError(t, err)
	defer cleanup()

	fl := &countingFlusher{err: errors.New("intake down")}
	h.metrics = fl
	h.log = zap.NewNop()

	store := h.h.Merger.Store
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "in", "p.xlsx", sheettest.MustXLSX(sheettest.Sheet{
		Name: "Pivot Table Data", Rows: [][]any{{"UID", "A"}, {"x", "1"}},
	}), ""))
	require.NoError(t, store.Put(ctx, "in", "r.xlsx", sheettest.MustXLSX(sheettest.Sheet{
		Name: "Product Details", Rows: [][]any{{"UID", "B"}, {"x", "2"}},
	}), ""))

	ev := config.Event{InputBucket: "in", PivotKey: "p.xlsx", ReportKey: "r.xlsx", OutputBucket: "out", OutputFileKey: "m.xlsx"}
	lctx := lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{AwsRequestID: "req-1"})

	resp, err := h.invoke(lctx, ev)
	require.NoError(t, err)
	require.Equal(t, merge.NewResponse(200, merge.SuccessMessage), resp)

	got, err := store.Get(ctx, "out", "m.csv")
	require.NoError(t, err)
	require.Equal(t, "UID,A_pivot,B_report\nx,1,2\n", string(got))

	ev.PivotKey = "missing.xlsx"
	resp, err = h.invoke(lctx, ev)
	require.NoError(t, err, "failures are reported in the response, not as invocation errors")
	require.Equal(t, 500, resp.StatusCode)

	require.Equal(t, 2, fl.n)
}

func TestNewHandler_InvalidSettings(t *testing.T) {
	t.Setenv("SHEETMERGE_CONFIG", "")
	t.Setenv("SHEETMERGE__STORE__KIND", "carrier-pigeon")

	_, _, err := newHandler(context.Background())
	require.ErrorContains(t, err, "store.kind")
}
