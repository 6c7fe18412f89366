package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/snowtistics-etl/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_Level(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	tests := []struct {
		level  string
		lowest slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "text"})

			ctx := context.Background()
			for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
				assert.Equal(t, l >= tt.lowest, logger.Enabled(ctx, l), "level %s", l)
			}
		})
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	logger := NewLogger(&config.Config{LogLevel: "info", LogFormat: "json"})
	assert.Same(t, logger, slog.Default())
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RowsRead.WithLabelValues("history").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(a.RowsRead.WithLabelValues("history")), 0.0001)
	assert.InDelta(t, 0, testutil.ToFloat64(b.RowsRead.WithLabelValues("history")), 0.0001)
}
