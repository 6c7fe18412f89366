package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/snowtistics-etl/internal/config"
	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	batchSize      = 500
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// messageWriter is the subset of *kafkago.Writer used by EventWriter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// EventWriter publishes flattened event rows to a Kafka topic, one JSON
// message per row, keyed by CST location_id.
type EventWriter struct {
	writer messageWriter
	runID  string
	logger *slog.Logger
}

// NewEventWriter creates a Kafka producer for the configured events topic.
func NewEventWriter(cfg *config.Config, runID string, logger *slog.Logger) *EventWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &EventWriter{writer: w, runID: runID, logger: logger}
}

// PublishEvents sends rows in input order, batchSize messages per call.
// Each batch is retried with backoff before giving up.
func (w *EventWriter) PublishEvents(ctx context.Context, rows []domain.EventRow) error {
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(rows[i], w.runID)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}

		if err := w.writeWithRetry(ctx, msgs); err != nil {
			return fmt.Errorf("publish events %d-%d: %w", start, end-1, err)
		}
	}

	w.logger.Info("events published", "count", len(rows))
	return nil
}

func (w *EventWriter) writeWithRetry(ctx context.Context, msgs []kafkago.Message) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		w.logger.Warn("kafka write failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

func (w *EventWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an EventRow into a Kafka message.
func serializeToMessage(row domain.EventRow, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(row.LocationID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "source", Value: []byte(row.Source)},
		},
	}, nil
}
