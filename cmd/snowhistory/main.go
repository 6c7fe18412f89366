// Command snowhistory fetches season history for every CST location in a
// name-match output CSV and writes an events CSV plus a Sources workbook.
//
// Usage:
//
//	go run ./cmd/snowhistory \
//	  -in data/outputs/NAMEMATCH_addresses.csv \
//	  -events data/outputs/addresses_events.csv \
//	  -sources data/outputs/addresses_sources.xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/snowtistics-etl/internal/adapter/cst"
	"github.com/couchcryptid/snowtistics-etl/internal/adapter/excel"
	kafkaadapter "github.com/couchcryptid/snowtistics-etl/internal/adapter/kafka"
	"github.com/couchcryptid/snowtistics-etl/internal/adapter/tabular"
	"github.com/couchcryptid/snowtistics-etl/internal/app"
	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/snowtistics-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

type options struct {
	in, events, sources    string
	startSeason, endSeason int
}

func main() {
	var opts options
	flag.StringVar(&opts.in, "in", "", "name-match output CSV with a location_id column")
	flag.StringVar(&opts.events, "events", "", "output CSV path for event rows")
	flag.StringVar(&opts.sources, "sources", "", "output xlsx path for the Sources workbook")
	flag.IntVar(&opts.startSeason, "start-season", domain.FirstSeason, "first season to fetch")
	flag.IntVar(&opts.endSeason, "end-season", domain.LastSeason, "last season to fetch")
	flag.Parse()

	if err := opts.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(opts))
}

func (o options) validate() error {
	if o.in == "" || o.events == "" || o.sources == "" {
		return errors.New("-in, -events, and -sources are required")
	}
	if o.startSeason > o.endSeason {
		return fmt.Errorf("-start-season %d is after -end-season %d", o.startSeason, o.endSeason)
	}
	return nil
}

func run(opts options) int {
	a, err := app.Setup("history")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	cfg, logger := a.Config, a.Logger
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := tabular.ReadFile(opts.in)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		return 1
	}
	records, err := domain.LocationIDRecords(table.Header, table.Rows, tabular.FirstDataLine)
	if err != nil {
		logger.Error("invalid input", "path", opts.in, "error", err)
		return 1
	}

	client := cst.NewClient(cfg.CSTBaseURL, cfg.CSTAPIKey, cfg.CSTTimeout, cfg.CSTRateLimit, logger, a.Metrics)
	p := pipeline.NewFlattener(client, logger, a.Metrics, clock, opts.startSeason, opts.endSeason)

	stopServer := a.ServeMetrics(p)
	defer stopServer()

	res, err := p.Run(ctx, records)
	if err != nil {
		logger.Error("history run interrupted", "error", err)
		return 1
	}

	if err := writeEvents(opts.events, res.Events); err != nil {
		logger.Error("failed to write events", "error", err)
		return 1
	}
	logger.Info("events written", "path", opts.events, "rows", len(res.Events))

	if err := excel.NewWriter(clock, logger).WriteSources(opts.sources, res.Sources, res.Coverage); err != nil {
		logger.Error("failed to write workbook", "error", err)
		return 1
	}

	if cfg.KafkaEnabled() {
		if err := publishEvents(ctx, a, res.Events); err != nil {
			logger.Error("failed to publish events", "error", err)
			return 1
		}
	}

	if err := a.Finish(ctx, opts.events, opts.sources); err != nil {
		logger.Error("post-run step failed", "error", err)
		return 1
	}
	return 0
}

func writeEvents(path string, rows []domain.EventRow) error {
	w, err := tabular.Create(path, domain.EventColumns)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row.Record()); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

func publishEvents(ctx context.Context, a *app.App, rows []domain.EventRow) error {
	w := kafkaadapter.NewEventWriter(a.Config, a.RunID, a.Logger)
	defer func() {
		if err := w.Close(); err != nil {
			a.Logger.Error("kafka writer close error", "error", err)
		}
	}()
	return w.PublishEvents(ctx, rows)
}
