package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/snowtistics-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

const pipelineNameMatch = "namematch"

// Resolver enriches address records with their canonical CST location.
// A lookup error aborts the run; a record with no match is skipped.
type Resolver struct {
	resolver domain.LocationResolver
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	runState
}

// NewResolver creates a name-match pipeline over the given lookup.
func NewResolver(resolver domain.LocationResolver, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Resolver {
	return &Resolver{
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
	}
}

// Run resolves each record in order and writes one enriched row per match.
// On a lookup error, rows already written stay written and the error is returned.
func (r *Resolver) Run(ctx context.Context, records []domain.AddressRecord, out RowWriter) (domain.RunSummary, error) {
	start := r.clock.Now()
	r.metrics.PipelineRunning.Set(1)
	defer func() {
		r.metrics.PipelineRunning.Set(0)
		r.metrics.RunDuration.WithLabelValues(pipelineNameMatch).Set(r.clock.Since(start).Seconds())
	}()

	r.reset(pipelineNameMatch, len(records))
	r.metrics.RowsRead.WithLabelValues(pipelineNameMatch).Add(float64(len(records)))
	r.logger.Info("name-match started", "rows", len(records))

	for _, rec := range records {
		if err := r.resolveRecord(ctx, rec, out); err != nil {
			summary := r.Status()
			r.logger.Error("name-match aborted", "line", rec.Line, "error", err,
				"rows_written", summary.RowsWritten)
			return summary, err
		}
	}

	r.update(func(s *domain.RunSummary) { s.Done = true })
	summary := r.Status()
	r.logger.Info("name-match finished",
		"rows_read", summary.RowsRead,
		"rows_written", summary.RowsWritten,
		"fallback_hits", summary.FallbackHits,
		"rows_skipped", summary.RowsSkipped,
	)
	return summary, nil
}

func (r *Resolver) resolveRecord(ctx context.Context, rec domain.AddressRecord, out RowWriter) error {
	q := rec.Query()

	locations, err := r.lookup(ctx, q, "combined")
	if err != nil {
		return fmt.Errorf("line %d (%s): %w", rec.Line, q, err)
	}

	fallback := false
	if len(locations) == 0 && zipFallbackUseful(q) {
		locations, err = r.lookup(ctx, q.ZipOnly(), "zip")
		if err != nil {
			return fmt.Errorf("line %d (zipcode %s): %w", rec.Line, q.Zipcode, err)
		}
		fallback = len(locations) > 0
	}

	if len(locations) == 0 {
		r.logger.Warn("no location found",
			"line", rec.Line, "city", q.City, "state", q.State, "zipcode", q.Zipcode)
		r.metrics.RowsSkipped.WithLabelValues(pipelineNameMatch, "no_match").Inc()
		r.update(func(s *domain.RunSummary) { s.RowsSkipped++ })
		return nil
	}

	if err := out.Write(rec.Enrich(locations[0])); err != nil {
		return fmt.Errorf("line %d: write enriched row: %w", rec.Line, err)
	}
	r.metrics.RowsWritten.WithLabelValues("enriched").Inc()
	r.update(func(s *domain.RunSummary) {
		s.RowsWritten++
		if fallback {
			s.FallbackHits++
		}
	})
	return nil
}

func (r *Resolver) lookup(ctx context.Context, q domain.LocationQuery, shape string) ([]domain.ResolvedLocation, error) {
	locations, err := r.resolver.Resolve(ctx, q)
	switch {
	case err != nil:
		r.metrics.LookupRequests.WithLabelValues(shape, "error").Inc()
		return nil, fmt.Errorf("lookup: %w", err)
	case len(locations) == 0:
		r.metrics.LookupRequests.WithLabelValues(shape, "empty").Inc()
	default:
		r.metrics.LookupRequests.WithLabelValues(shape, "match").Inc()
	}
	return locations, nil
}

// zipFallbackUseful reports whether a zipcode-only retry could differ from the
// combined query: it needs a zipcode, and the combined query must have had
// more than just that zipcode.
func zipFallbackUseful(q domain.LocationQuery) bool {
	return q.Zipcode != "" && (q.City != "" || q.State != "")
}
