// Command namematch resolves each address row of a CSV file to its canonical
// CST location and writes the enriched rows to a new CSV file.
//
// Usage:
//
//	go run ./cmd/namematch -in data/inputs/addresses.csv -out data/outputs/NAMEMATCH_addresses.csv
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/couchcryptid/snowtistics-etl/internal/adapter/cst"
	"github.com/couchcryptid/snowtistics-etl/internal/adapter/tabular"
	"github.com/couchcryptid/snowtistics-etl/internal/app"
	"github.com/couchcryptid/snowtistics-etl/internal/domain"
	"github.com/couchcryptid/snowtistics-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	in := flag.String("in", "", "input CSV with City, State, and Zipcode columns")
	out := flag.String("out", "", "output CSV path for enriched rows")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*in, *out))
}

func run(inPath, outPath string) int {
	a, err := app.Setup("namematch")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	cfg, logger := a.Config, a.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := tabular.ReadFile(inPath)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		return 1
	}
	records, err := domain.AddressRecords(table.Header, table.Rows, tabular.FirstDataLine)
	if err != nil {
		logger.Error("invalid input", "path", inPath, "error", err)
		return 1
	}

	client := cst.NewClient(cfg.CSTBaseURL, cfg.CSTAPIKey, cfg.CSTTimeout, cfg.CSTRateLimit, logger, a.Metrics)
	var resolver domain.LocationResolver = client
	if cfg.LookupCacheSize > 0 {
		resolver = cst.NewCachedResolver(client, cfg.LookupCacheSize, a.Metrics)
		logger.Info("lookup cache enabled", "size", cfg.LookupCacheSize)
	}

	p := pipeline.NewResolver(resolver, logger, a.Metrics, clockwork.NewRealClock())

	stopServer := a.ServeMetrics(p)
	defer stopServer()

	w, err := tabular.Create(outPath, append(slices.Clone(table.Header), domain.EnrichedColumns...))
	if err != nil {
		logger.Error("failed to create output", "error", err)
		return 1
	}

	_, runErr := p.Run(ctx, records, w)
	if err := w.Close(); err != nil {
		logger.Error("failed to write output", "path", outPath, "error", err)
		return 1
	}
	if runErr != nil {
		// The partial output is kept; nothing is uploaded for a failed run.
		if err := a.Finish(ctx); err != nil {
			logger.Error("post-run step failed", "error", err)
		}
		return 1
	}

	if err := a.Finish(ctx, outPath); err != nil {
		logger.Error("post-run step failed", "error", err)
		return 1
	}
	logger.Info("output written", "path", outPath, "rows", w.Rows())
	return 0
}
