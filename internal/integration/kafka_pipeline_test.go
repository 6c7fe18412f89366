//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/snowtistics-etl/internal/adapter/cst"
	kafkaadapter "github.com/couchcryptid/snowtistics-etl/internal/adapter/kafka"
	"github.com/couchcryptid/snowtistics-etl/internal/config"
	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/snowtistics-etl/internal/observability"
	"github.com/couchcryptid/snowtistics-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testEventsTopic = "test-snowtistics-events"

// publishedEvent holds a deserialized message read from the events topic.
type publishedEvent struct {
	Row     domain.EventRow
	Key     string
	Headers map[string]string
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("snowtistics-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic")
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// readEvent reads a single message from the consumer and deserializes it.
func readEvent(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedEvent {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from events topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var row domain.EventRow
	require.NoError(t, json.Unmarshal(msg.Value, &row), "unmarshal event message")

	return publishedEvent{Row: row, Key: string(msg.Key), Headers: headers}
}

// TestEventWriter_RoundTrip verifies that EventWriter publishes rows in order
// with the location key and run headers intact.
func TestEventWriter_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaEventsTopic: testEventsTopic}
	w := kafkaadapter.NewEventWriter(cfg, "run-123", slog.New(slog.DiscardHandler))
	defer w.Close()

	rows := []domain.EventRow{
		{LocationID: 42, City: "Reno", State: "NV", Source: "NOAA", StartDate: "2019-12-01", SnowAmount: "14.5"},
		{LocationID: 42, City: "Reno", State: "NV", Source: "CoCoRaHS", StartDate: "2020-01-15", SnowAmount: "3"},
	}
	require.NoError(t, w.PublishEvents(ctx, rows))

	consumer := newConsumer(t, broker, testEventsTopic)
	for _, want := range rows {
		got := readEvent(ctx, t, consumer)
		assert.Equal(t, want, got.Row)
		assert.Equal(t, "42", got.Key)
		assert.Equal(t, "run-123", got.Headers["run_id"])
		assert.Equal(t, want.Source, got.Headers["source"])
	}
}

// TestHistoryPipeline_EndToEnd runs a stubbed CST history endpoint through the
// real client, the flattener, and the Kafka event writer.
func TestHistoryPipeline_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := testEventsTopic + "-e2e"
	createTopic(t, broker, topic)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("location_id")
		fmt.Fprintf(w, `{"data":{
			"events":[{"source":"NOAA","start_date":"2019-12-01","snow":{"amount":%s,"amount_formatted":"%s in"}}],
			"sources":{"city":"Reno","state":"NV","zipcode":"89501","NOAA":{"location_id":7}},
			"sourcesBySeason":{"2019":true}
		}}`, id, id)
	}))
	defer srv.Close()

	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()
	client := cst.NewClient(srv.URL, "test-key", 5*time.Second, 0, logger, metrics)
	flattener := pipeline.NewFlattener(client, logger, metrics, clockwork.NewFakeClock(), domain.FirstSeason, domain.LastSeason)

	result, err := flattener.Run(ctx, []domain.LocationIDRecord{
		{Line: 2, Raw: "42"},
		{Line: 3, Raw: ""},
		{Line: 4, Raw: "43.0"},
	})
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	require.Len(t, result.Coverage, 2)
	assert.Equal(t, 1, result.Summary.RowsSkipped)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaEventsTopic: topic}
	w := kafkaadapter.NewEventWriter(cfg, "run-e2e", logger)
	defer w.Close()
	require.NoError(t, w.PublishEvents(ctx, result.Events))

	consumer := newConsumer(t, broker, topic)
	for _, want := range []int64{42, 43} {
		got := readEvent(ctx, t, consumer)
		assert.Equal(t, want, got.Row.LocationID)
		assert.Equal(t, strconv.FormatInt(want, 10), got.Key)
		assert.Equal(t, "Reno", got.Row.City)
		assert.Equal(t, strconv.FormatInt(want, 10), got.Row.SnowAmount)
		assert.Equal(t, "run-e2e", got.Headers["run_id"])
	}
}
