package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/workforce-sync/internal/app"
	"github.com/allisson/workforce-sync/internal/config"
)

// server is an HTTP server started and stopped with the process.
type server interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// RunProducer runs the change detector until SIGINT/SIGTERM. It polls the
// source employees table and publishes a change event per modified row.
func RunProducer(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting producer", slog.String("version", version))
	defer closeContainer(container, logger)

	producer, err := container.Producer()
	if err != nil {
		return fmt.Errorf("failed to initialize producer: %w", err)
	}

	detector, err := container.Detector()
	if err != nil {
		return fmt.Errorf("failed to initialize change detector: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := producer.EnsureTopics(ctx); err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	var servers []server
	if metricsServer != nil {
		servers = append(servers, metricsServer)
	}

	workers := []func(context.Context) error{detector.Start}
	return runServices(ctx, logger, cfg.DBConnMaxLifetime, workers, servers...)
}

// RunConsumer runs the ingestion consumer, the dead letter retrier and the
// inspection API until SIGINT/SIGTERM.
func RunConsumer(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting consumer", slog.String("version", version))
	defer closeContainer(container, logger)

	consumer, err := container.Consumer()
	if err != nil {
		return fmt.Errorf("failed to initialize consumer: %w", err)
	}

	retrier, err := container.Retrier()
	if err != nil {
		return fmt.Errorf("failed to initialize dead letter retrier: %w", err)
	}

	httpServer, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	servers := []server{httpServer}
	if metricsServer != nil {
		servers = append(servers, metricsServer)
	}

	workers := []func(context.Context) error{consumer.Start, retrier.Start}
	return runServices(ctx, logger, cfg.DBConnMaxLifetime, workers, servers...)
}

// runServices runs workers and servers until ctx is cancelled or one of them
// fails, then shuts the servers down within shutdownTimeout.
func runServices(
	ctx context.Context,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
	workers []func(context.Context) error,
	servers ...server,
) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, work := range workers {
		g.Go(func() error {
			if err := work(gctx); err != nil && !isContextDone(err) {
				return err
			}
			return nil
		})
	}

	for _, srv := range servers {
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("shutdown signal received")
		} else {
			logger.Error("service failed, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var shutdownErrors []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, err)
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}

// isContextDone reports whether err only says the run context ended.
func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
