// Package app builds the per-process runtime shared by the sheetmerge CLI and
// the Lambda binary: object store, metrics backend and merge handler.
//
// Binaries must blank-import sheetmerge/internal/objectstore/all (or the
// specific backends they need) so the configured store kind is registered.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sheetmerge/internal/config"
	"sheetmerge/internal/merge"
	"sheetmerge/internal/metrics"
	"sheetmerge/internal/metrics/datadog"
	"sheetmerge/internal/metrics/prompush"
	"sheetmerge/internal/objectstore"
)

// Runtime holds what a binary builds once per process.
type Runtime struct {
	Settings config.Settings
	Logger   *zap.Logger
	Store    objectstore.Store
	Handler  *merge.Handler

	closeMetrics func() error
}

// New validates s and builds the runtime. The caller owns Close.
func New(ctx context.Context, s config.Settings, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := config.IssuesError(config.ValidateSettings(s)); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	store, err := objectstore.New(ctx, s.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debug("store ready", zap.String("component", "store"), zap.String("kind", s.Store.Kind))

	rt := &Runtime{
		Settings: s,
		Logger:   log,
		Store:    store,
		Handler: &merge.Handler{
			Merger: &merge.Merger{
				Store:         store,
				PivotLayouts:  s.Layouts.Pivot,
				ReportLayouts: s.Layouts.Report,
			},
			Logger: log,
		},
	}
	rt.closeMetrics = setupMetrics(ctx, s.Metrics, log.With(zap.String("component", "metrics")))
	return rt, nil
}

// setupMetrics installs the configured backend and returns its shutdown func.
// A backend that fails to start is logged and replaced by the nop backend;
// metrics never fail a merge.
func setupMetrics(ctx context.Context, m config.Metrics, log *zap.Logger) func() error {
	switch m.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			log.Warn("pushgateway backend init failed; using nop", zap.Error(err))
			return func() error { return nil }
		}
		log.Info("metrics enabled", zap.String("backend", m.Backend), zap.String("url", m.PushgatewayURL), zap.String("job", m.Job))
		metrics.SetBackend(b)
		return func() error {
			defer metrics.SetBackend(nil)
			return b.Close()
		}

	case "datadog":
		tags := datadog.ParseTagsCSV(m.Tags)
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    m.Job,
			Tags:       tags,
			FlushEvery: m.FlushEvery,
		})
		if err != nil {
			log.Warn("datadog backend init failed; using nop", zap.Error(err))
			return func() error { return nil }
		}
		log.Info("metrics enabled", zap.String("backend", m.Backend), zap.String("job", m.Job), zap.Strings("tags", tags))
		metrics.SetBackend(b)
		return func() error {
			defer metrics.SetBackend(nil)
			// Close stops the flush loop, then flushes once more.
			return b.Close()
		}

	default:
		log.Debug("metrics disabled", zap.String("backend", m.Backend))
		return func() error { return nil }
	}
}

// Flush pushes buffered metrics without shutting the backend down. The Lambda
// binary calls it after every invocation since the process may be frozen.
func (r *Runtime) Flush() error {
	return metrics.Flush()
}

// Close shuts down metrics (final flush) and the store.
func (r *Runtime) Close() error {
	var errs []error
	if r.closeMetrics != nil {
		if err := r.closeMetrics(); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if err := r.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	return errors.Join(errs...)
}
