package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/snowtistics-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

const pipelineHistory = "history"

// HistoryResult holds the flattened tables of one run, in input order.
type HistoryResult struct {
	Events   []domain.EventRow
	Sources  []domain.SourceRow
	Coverage []domain.CoverageRow
	Summary  domain.RunSummary
}

// Flattener fetches historical bundles per CST location and flattens them
// into event, source, and coverage rows. Fetch failures are logged and the
// location contributes an empty bundle.
type Flattener struct {
	fetcher     domain.HistoryFetcher
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	startSeason int
	endSeason   int
	runState
}

// NewFlattener creates a history pipeline for the given season range.
func NewFlattener(fetcher domain.HistoryFetcher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, startSeason, endSeason int) *Flattener {
	return &Flattener{
		fetcher:     fetcher,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
		startSeason: startSeason,
		endSeason:   endSeason,
	}
}

// Run processes records in order. It only returns an error when ctx is
// cancelled; the partial result is returned alongside it.
func (f *Flattener) Run(ctx context.Context, records []domain.LocationIDRecord) (HistoryResult, error) {
	start := f.clock.Now()
	f.metrics.PipelineRunning.Set(1)
	defer func() {
		f.metrics.PipelineRunning.Set(0)
		f.metrics.RunDuration.WithLabelValues(pipelineHistory).Set(f.clock.Since(start).Seconds())
	}()

	f.reset(pipelineHistory, len(records))
	f.metrics.RowsRead.WithLabelValues(pipelineHistory).Add(float64(len(records)))
	f.logger.Info("history flattening started", "rows", len(records),
		"start_season", f.startSeason, "end_season", f.endSeason)

	var res HistoryResult
	for _, rec := range records {
		id, ok := domain.ParseLocationID(rec.Raw)
		if !ok {
			f.logger.Warn("skipping row with missing location_id", "line", rec.Line, "location_id", rec.Raw)
			f.metrics.RowsSkipped.WithLabelValues(pipelineHistory, "missing_location_id").Inc()
			f.update(func(s *domain.RunSummary) { s.RowsSkipped++ })
			continue
		}

		bundle, err := f.fetcher.FetchHistory(ctx, id, f.startSeason, f.endSeason)
		if err != nil {
			if ctx.Err() != nil {
				res.Summary = f.Status()
				return res, ctx.Err()
			}
			f.logger.Error("history fetch failed", "line", rec.Line, "location_id", id, "error", err)
			f.update(func(s *domain.RunSummary) { s.FetchFailures++ })
			bundle = domain.HistoricalBundle{}
		}

		events := domain.FlattenEvents(id, bundle)
		sources := domain.FlattenSources(id, bundle)
		res.Events = append(res.Events, events...)
		res.Sources = append(res.Sources, sources...)
		res.Coverage = append(res.Coverage, domain.FlattenCoverage(id, bundle))

		f.metrics.RowsWritten.WithLabelValues("events").Add(float64(len(events)))
		f.metrics.RowsWritten.WithLabelValues("sources").Add(float64(len(sources)))
		f.metrics.RowsWritten.WithLabelValues("coverage").Inc()
		f.update(func(s *domain.RunSummary) { s.RowsWritten += len(events) })
	}

	f.update(func(s *domain.RunSummary) { s.Done = true })
	res.Summary = f.Status()
	f.logger.Info("history flattening finished",
		"rows_read", res.Summary.RowsRead,
		"rows_skipped", res.Summary.RowsSkipped,
		"fetch_failures", res.Summary.FetchFailures,
		"events", len(res.Events),
		"sources", len(res.Sources),
		"coverage", len(res.Coverage),
	)
	return res, nil
}
