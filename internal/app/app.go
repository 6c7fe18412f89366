// Package app wires the ambient pieces shared by the pipeline commands:
// configuration, the run-scoped logger, metrics, and the optional sinks that
// run after a pipeline finishes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	httpadapter "github.com/couchcryptid/snowtistics-etl/internal/adapter/http"
	"github.com/couchcryptid/snowtistics-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/snowtistics-etl/internal/config"
	"github.com/couchcryptid/snowtistics-etl/internal/observability"
	"github.com/google/uuid"
)

// App carries the per-run dependencies of a pipeline command.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	RunID   string
}

// Setup loads configuration and builds the logger and metrics for one run.
// Every log line carries the pipeline name and a fresh run_id.
func Setup(pipelineName string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg, observability.NewLogger(cfg), observability.NewMetrics(), pipelineName), nil
}

// New assembles an App from already-built parts.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, pipelineName string) *App {
	runID := uuid.NewString()
	return &App{
		Config:  cfg,
		Logger:  logger.With("pipeline", pipelineName, "run_id", runID),
		Metrics: metrics,
		RunID:   runID,
	}
}

// ServeMetrics starts the health and metrics server when METRICS_ADDR is set.
// The returned func shuts it down within the configured shutdown timeout.
func (a *App) ServeMetrics(run httpadapter.RunTracker) (stop func()) {
	if a.Config.MetricsAddr == "" {
		return func() {}
	}

	srv := httpadapter.NewServer(a.Config.MetricsAddr, run, a.Logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("http server error", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.Logger.Error("http server shutdown error", "error", err)
		}
	}
}

// Finish exports the metrics textfile and uploads outputs, each only when
// configured. Both are attempted; the first error is returned.
func (a *App) Finish(ctx context.Context, outputs ...string) error {
	var errs []error

	if path := a.Config.MetricsTextfile; path != "" {
		if err := observability.WriteTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		} else {
			a.Logger.Info("metrics textfile written", "path", path)
		}
	}

	if a.Config.UploadEnabled() && len(outputs) > 0 {
		ctx, cancel := context.WithTimeout(ctx, a.Config.ShutdownTimeout)
		defer cancel()

		uploader, err := objectstore.NewUploader(a.Config, a.RunID, a.Logger)
		if err == nil {
			err = uploader.Upload(ctx, outputs...)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("upload outputs: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
