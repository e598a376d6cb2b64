package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rcong315/TuneMatchServer/internal/catalog"
	"github.com/rcong315/TuneMatchServer/internal/config"
	"github.com/rcong315/TuneMatchServer/internal/db"
	"github.com/rcong315/TuneMatchServer/internal/importer"
	"github.com/rcong315/TuneMatchServer/internal/logging"
)

// maxLoggedErrors bounds how many row failures are logged individually.
const maxLoggedErrors = 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	var (
		csvPath     = flag.String("csv", cfg.Importer.CSVPath, "Path to the songs CSV dataset")
		workers     = flag.Int("workers", cfg.Importer.Workers, "Number of concurrent inserts per batch")
		batchSize   = flag.Int("batch-size", cfg.Importer.BatchSize, "Rows per batch")
		batchRate   = flag.Float64("rate", cfg.Importer.Rate, "Batches started per second (0 for unlimited)")
		logLevel    = flag.String("log-level", cfg.LogLevel(), "Log level (debug, info, warn, error)")
		metricsPort = flag.String("metrics-port", "", "Serve Prometheus metrics on this port while importing")
	)
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db.InitializeLogger(logger)

	logger.Info("Starting TuneMatch importer",
		zap.String("csv", *csvPath),
		zap.Int("workers", *workers),
		zap.Int("batchSize", *batchSize),
		zap.Float64("rate", *batchRate))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	registry := prometheus.NewRegistry()
	if *metricsPort != "" {
		go startMetricsServer(ctx, *metricsPort, registry, logger)
	}

	var limiter *rate.Limiter
	if *batchRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*batchRate), 1)
	}

	report, err := runImport(ctx, cfg, *csvPath, importer.ExecutorConfig{
		Workers:   *workers,
		BatchSize: *batchSize,
		Limiter:   limiter,
	}, importer.NewMetrics(registry), logger)
	if err != nil {
		logger.Error("Import failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	for i, itemErr := range report.Errors {
		if i == maxLoggedErrors {
			logger.Warn("More rows failed", zap.Int("notLogged", report.Failed-maxLoggedErrors))
			break
		}
		logger.Warn("Row failed", zap.Int("row", itemErr.Index), zap.Error(itemErr.Err))
	}

	logger.Info("Import finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))

	if report.Total > 0 && report.Succeeded == 0 {
		logger.Error("No rows were imported")
		logger.Sync()
		os.Exit(1)
	}
}

func runImport(ctx context.Context, cfg *config.Config, csvPath string, execCfg importer.ExecutorConfig, metrics *importer.Metrics, logger *zap.Logger) (*importer.Report, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer file.Close()

	store, err := db.Open(ctx, cfg.ConnConfig())
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	im := importer.New(catalog.NewRepository(store), execCfg, metrics, logger)
	start := time.Now()
	report, err := im.Import(ctx, file)
	if err != nil {
		return nil, err
	}
	logger.Info("Dataset processed", zap.Duration("duration", time.Since(start)))
	return report, nil
}

func startMetricsServer(ctx context.Context, port string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	logger.Info("Starting metrics server", zap.String("port", port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", zap.Error(err))
	}
}
