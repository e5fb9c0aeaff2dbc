// Command merge-lambda serves merge events on AWS Lambda.
//
// Settings come from SHEETMERGE__* environment variables (and the YAML file
// named by SHEETMERGE_CONFIG, if set). The store client and metrics backend
// are built once per container; metrics are flushed after every invocation
// because a frozen container may never reach shutdown.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"sheetmerge/internal/app"
	"sheetmerge/internal/config"
	"sheetmerge/internal/logging"
	"sheetmerge/internal/merge"

	_ "sheetmerge/internal/objectstore/all"
)

// flusher is the part of app.Runtime the handler needs after each invocation.
type flusher interface {
	Flush() error
}

type handler struct {
	h       *merge.Handler
	metrics flusher
	log     *zap.Logger
}

// requestID uses the Lambda request id as the run id so logs join up with
// the platform's START/END lines.
func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		return lc.AwsRequestID
	}
	return ""
}

func (h *handler) invoke(ctx context.Context, ev config.Event) (merge.Response, error) {
	resp := h.h.Handle(ctx, ev)
	if err := h.metrics.Flush(); err != nil {
		h.log.Warn("metrics flush", zap.String("component", "metrics"), zap.Error(err))
	}
	return resp, nil
}

func newHandler(ctx context.Context) (*handler, func(), error) {
	s, err := config.LoadSettings(os.Getenv("SHEETMERGE_CONFIG"))
	if err != nil {
		return nil, nil, err
	}
	// CloudWatch wants one JSON object per line.
	s.Log.JSON = true

	log, err := logging.New(s.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	rt, err := app.New(ctx, s, log)
	if err != nil {
		return nil, nil, err
	}
	rt.Handler.RunID = requestID

	cleanup := func() {
		if err := rt.Close(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
		_ = log.Sync()
	}
	return &handler{h: rt.Handler, metrics: rt, log: log}, cleanup, nil
}

func main() {
	ctx := context.Background()
	h, cleanup, err := newHandler(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge-lambda: %v\n", err)
		os.Exit(1)
	}
	lambda.StartWithOptions(h.invoke, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(cleanup))
}
