package pipeline_test

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/snowtistics-etl/internal/observability"
)

// captureHandler records every log record so tests can count diagnostics.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler { return h }

// count returns how many records were logged at level with message msg.
func (h *captureHandler) count(level slog.Level, msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level && r.Message == msg {
			n++
		}
	}
	return n
}

// attr returns the value of key on the first record with message msg.
func (h *captureHandler) attr(msg, key string) (slog.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Message != msg {
			continue
		}
		var (
			val   slog.Value
			found bool
		)
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				val, found = a.Value, true
				return false
			}
			return true
		})
		return val, found
	}
	return slog.Value{}, false
}

func newCaptureLogger() (*slog.Logger, *captureHandler) {
	h := &captureHandler{}
	return slog.New(h), h
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// sliceWriter collects written rows.
type sliceWriter struct {
	rows [][]string
	err  error
}

func (w *sliceWriter) Write(record []string) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, record)
	return nil
}

// fakeResolver answers lookups from fn and records every query.
type fakeResolver struct {
	mu      sync.Mutex
	queries []domain.LocationQuery
	fn      func(q domain.LocationQuery) ([]domain.ResolvedLocation, error)
}

func (f *fakeResolver) Resolve(_ context.Context, q domain.LocationQuery) ([]domain.ResolvedLocation, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.fn(q)
}

type fakeFetcher struct {
	calls   []int64
	bundles map[int64]domain.HistoricalBundle
	errs    map[int64]error
}

func (f *fakeFetcher) FetchHistory(ctx context.Context, id int64, _, _ int) (domain.HistoricalBundle, error) {
	f.calls = append(f.calls, id)
	if err := ctx.Err(); err != nil {
		return domain.HistoricalBundle{}, err
	}
	if err := f.errs[id]; err != nil {
		return domain.HistoricalBundle{}, err
	}
	return f.bundles[id], nil
}
