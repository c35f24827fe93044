package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricefetch/internal/config"
	"pricefetch/internal/coordinator"
	"pricefetch/internal/fetcher"
	"pricefetch/internal/metrics"
	"pricefetch/internal/ratelimit"
	"pricefetch/internal/sink"
	"pricefetch/internal/symbols"
	"pricefetch/internal/yahoo"
)

// Report describes a finished run.
type Report struct {
	Path    string
	Rows    int
	Summary coordinator.Summary
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	fmt.Println("Downloading daily price history...")
	fmt.Println("================================================")

	report, err := run(ctx, cfg)

	fmt.Println("================================================")
	if err != nil {
		slog.Error("run failed", "error", err)
		cancel()
		os.Exit(1)
	}

	fmt.Printf("Saved %d rows to %s\n", report.Rows, report.Path)
}

// run executes one batch: load symbols, fetch and validate them concurrently, write
// the merged Parquet file. Errors returned here are fatal for the process.
func run(ctx context.Context, cfg *config.Config) (*Report, error) {
	start := time.Now()

	syms, err := symbols.Load(cfg.SymbolsFile)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded symbols", "file", cfg.SymbolsFile, "count", len(syms))

	rec := metrics.New()
	defer func() {
		rec.Finish(start, time.Now())
		if cfg.MetricsFile == "" {
			return
		}
		if err := rec.WriteFile(cfg.MetricsFile); err != nil {
			slog.Warn("failed to write metrics file", "path", cfg.MetricsFile, "error", err)
		}
	}()

	limiter := ratelimit.New().SetRate(ratelimit.APIYahoo, cfg.RequestsPerSecond)
	client := yahoo.NewClient(cfg.ProviderBaseURL, cfg.SymbolSuffix, cfg.Timeout(), limiter)

	f := fetcher.New(client, fetcher.Options{
		MaxAttempts: cfg.RetryCount,
		Backoff: fetcher.Backoff{
			Base:   cfg.BackoffBase(),
			Factor: cfg.RetryFactor,
			Max:    cfg.BackoffMax(),
			Jitter: cfg.RetryJitter,
		},
		OnAttempt: rec.ObserveAttempt,
	})

	coord := coordinator.New(f, coordinator.Config{
		MaxWorkers:   cfg.MaxWorkers,
		LookbackDays: cfg.Days,
		MinRows:      cfg.MinRows,
	})

	to := start.UTC()
	slog.Info("fetching history",
		"from", to.AddDate(0, 0, -cfg.Days).Format(time.DateOnly),
		"to", to.Format(time.DateOnly),
		"workers", cfg.MaxWorkers)

	result, err := coord.Run(ctx, syms)
	if err != nil {
		return nil, err
	}
	rec.ObserveResult(result)

	summary := result.Summary()
	slog.Info("run summary",
		"accepted", summary.Accepted,
		"rejected", summary.Rejected,
		"total", summary.Total,
		"rows", summary.Rows)
	fmt.Println(summary)

	path := cfg.OutputPath
	if path == "" {
		path = sink.OutputPath(cfg.OutputDir, cfg.OutputPrefix, start)
	}

	rows, err := sink.Write(path, result.Accepted())
	if err != nil {
		return nil, err
	}
	rec.ObserveWrite(rows)
	slog.Info("wrote output", "path", path, "rows", rows, "symbols", summary.Accepted)

	if cfg.OutputPath == "" && cfg.PruneStale {
		removed, err := sink.PruneStale(cfg.OutputDir, cfg.OutputPrefix, path)
		if err != nil {
			slog.Warn("failed to prune old output files", "error", err)
		}
		for _, old := range removed {
			slog.Info("deleted old output file", "path", old)
		}
	}

	return &Report{Path: path, Rows: rows, Summary: summary}, nil
}
