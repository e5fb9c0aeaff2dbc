package merge

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sheetmerge/internal/config"
)

// SuccessMessage is the body text of a successful Response.
const SuccessMessage = "Merge successful and file uploaded."

// Response is the invocation result. Body is a JSON-encoded string.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// NewResponse builds a Response whose body is msg encoded as a JSON string.
// HTML characters are left unescaped so sheet names like "Product & Pricing"
// read the same in the body as in logs.
func NewResponse(status int, msg string) Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(msg) // encoding a string cannot fail
	return Response{StatusCode: status, Body: string(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))}
}

// Handler adapts a Merger to the Event -> Response contract shared by the CLI
// and the Lambda binary. It is the single place a run error becomes a 500.
type Handler struct {
	Merger *Merger
	Logger *zap.Logger

	// RunID returns the id attached to logs; defaults to a random UUID.
	RunID func(ctx context.Context) string
}

// Handle runs ev and never returns an error; failures are reported in the Response.
func (h *Handler) Handle(ctx context.Context, ev config.Event) Response {
	resp, _, _ := h.HandleWithSummary(ctx, ev)
	return resp
}

// HandleWithSummary is Handle that also returns the run Summary and error.
func (h *Handler) HandleWithSummary(ctx context.Context, ev config.Event) (Response, Summary, error) {
	runID := ""
	if h.RunID != nil {
		runID = h.RunID(ctx)
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	log := h.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "merge"), zap.String("run_id", runID))

	m := *h.Merger
	m.Logger = log

	log.Info("merge started",
		zap.String("input_bucket", ev.InputBucket),
		zap.String("pivot_key", ev.PivotKey),
		zap.String("report_key", ev.ReportKey),
	)

	sum, err := m.Run(ctx, ev)
	sum.RunID = runID
	if err != nil {
		log.Error("merge failed", append(sum.Fields(), zap.Error(err))...)
		return NewResponse(500, "Error: "+err.Error()), sum, err
	}

	log.Info("merge completed", sum.Fields()...)
	return NewResponse(200, SuccessMessage), sum, nil
}
