package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rcong315/TuneMatchServer/internal/catalog"
	"github.com/rcong315/TuneMatchServer/internal/config"
	"github.com/rcong315/TuneMatchServer/internal/db"
	"github.com/rcong315/TuneMatchServer/internal/logging"
	"github.com/rcong315/TuneMatchServer/internal/recommend"
	"github.com/rcong315/TuneMatchServer/internal/scorer"
	"github.com/rcong315/TuneMatchServer/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("API server failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db.InitializeLogger(logger)
	if cfg.LogLevel() != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	store, err := db.Open(ctx, cfg.ConnConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	service.RegisterPoolMetrics(registry, store)

	repo := catalog.NewRepository(store)
	scorerClient := scorer.NewClient(cfg.ScorerClientConfig(), logger.Named("scorer"), scorer.NewMetrics(registry))
	gateway := recommend.NewGateway(repo, scorerClient, cfg.Scorer.DefaultCount, logger.Named("recommend"))
	handler := service.NewHandler(repo, gateway, store, logger)

	router := service.NewRouter(handler, service.RouterConfig{
		APIKey:      cfg.Server.APIKey,
		CORSOrigins: cfg.Server.CORSOrigins,
		Registry:    registry,
	}, logger)

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("API server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("scorer", cfg.Scorer.URL),
			zap.Bool("apiKeyRequired", cfg.Server.APIKey != ""))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("API server shutdown complete")
	return nil
}
