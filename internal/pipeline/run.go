package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/snowtistics-etl/internal/domain"
)

// RowWriter receives output rows as they are produced.
type RowWriter interface {
	Write(record []string) error
}

// runState tracks a pipeline run for the readiness and status endpoints.
type runState struct {
	mu      sync.Mutex
	summary domain.RunSummary
	ready   atomic.Bool
}

// CheckReadiness returns nil once the run has processed its first row.
func (s *runState) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("pipeline has not processed any rows yet")
	}
	return nil
}

// Ready reports whether at least one row has been processed.
func (s *runState) Ready() bool {
	return s.ready.Load()
}

// Status returns a snapshot of the run summary.
func (s *runState) Status() domain.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

func (s *runState) reset(pipeline string, rows int) {
	s.mu.Lock()
	s.summary = domain.RunSummary{Pipeline: pipeline, RowsRead: rows}
	s.mu.Unlock()
	s.ready.Store(false)
}

func (s *runState) update(fn func(*domain.RunSummary)) {
	s.mu.Lock()
	fn(&s.summary)
	s.mu.Unlock()
	s.ready.Store(true)
}
