package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/bootstrap"
	"github.com/mikidaniel85/warehouse-pbb/internal/config"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/ocr"
	"github.com/mikidaniel85/warehouse-pbb/pkg/kafka"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/metrics"
	"github.com/mikidaniel85/warehouse-pbb/pkg/outbox"
	"github.com/mikidaniel85/warehouse-pbb/pkg/tracing"
)

const serviceName = "stock-ledger-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logConfig.Environment = cfg.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting stock-ledger-service API", "backend", cfg.StoreBackend)
	ctx := context.Background()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = cfg.OTLPEndpoint
	tracingConfig.Environment = cfg.Environment
	tracingConfig.Enabled = cfg.TracingEnabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint, "enabled", cfg.TracingEnabled)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	backend, err := bootstrap.Open(ctx, cfg, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open store")
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			logger.WithError(err).Warn("Failed to close store")
		}
	}()

	if err := backend.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Error("Failed to ensure indexes")
		os.Exit(1)
	}

	auditor := application.NewAuditRecorder(backend.Repos.Audit, cfg.AuditBuffer, m, logger)
	defer auditor.Close()

	var recognizer application.TextRecognizer = ocr.Disabled{}
	if cfg.OCREndpoint != "" {
		recognizer = ocr.NewClient(cfg.OCREndpoint, cfg.OCRTimeout, logger)
		logger.Info("Text recognition enabled", "endpoint", cfg.OCREndpoint)
	}

	deps := bootstrap.Dependencies(cfg, backend, auditor, m, logger)
	services := application.NewServices(deps, recognizer)

	if _, err := services.Warehouses.EnsureSentinel(ctx); err != nil {
		logger.WithError(err).Error("Failed to ensure sentinel warehouse")
		os.Exit(1)
	}

	var publisher *outbox.Publisher
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.Kafka, m, logger)
		defer producer.Close()

		publisher = outbox.NewPublisher(backend.Repos.Outbox, producer, logger, &outbox.PublisherConfig{
			PollInterval: cfg.OutboxPollInterval,
			BatchSize:    100,
		})
		if err := publisher.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start outbox publisher")
			os.Exit(1)
		}
		defer publisher.Stop()
		logger.Info("Outbox publisher started", "brokers", cfg.Kafka.Brokers, "topic", kafka.Topics.LedgerEvents)
	}

	router := newRouter(services, routerConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        m,
		Ready: func() error {
			readyCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := backend.HealthCheck(readyCtx); err != nil {
				return err
			}
			if publisher != nil && !publisher.IsRunning() {
				return errors.New("outbox publisher is not running")
			}
			return nil
		},
		ReadyInfo: func() map[string]any {
			if publisher == nil {
				return nil
			}
			stats := publisher.Stats()
			return map[string]any{"outbox": map[string]int{"published": stats.Published, "failed": stats.Failed}}
		},
	}, logger)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
