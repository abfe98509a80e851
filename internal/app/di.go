// Package app wires the pipeline together. Every component is built lazily on
// first access and cached, along with its construction error.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	brokerUseCase "github.com/allisson/workforce-sync/internal/broker/usecase"
	cdcUseCase "github.com/allisson/workforce-sync/internal/cdc/usecase"
	"github.com/allisson/workforce-sync/internal/config"
	"github.com/allisson/workforce-sync/internal/database"
	deadLetterHTTP "github.com/allisson/workforce-sync/internal/deadletter/http"
	deadLetterUseCase "github.com/allisson/workforce-sync/internal/deadletter/usecase"
	"github.com/allisson/workforce-sync/internal/http"
	ingestionUseCase "github.com/allisson/workforce-sync/internal/ingestion/usecase"
	"github.com/allisson/workforce-sync/internal/metrics"
	personHTTP "github.com/allisson/workforce-sync/internal/person/http"
	personUseCase "github.com/allisson/workforce-sync/internal/person/usecase"
	"github.com/allisson/workforce-sync/internal/validation"
	validationHTTP "github.com/allisson/workforce-sync/internal/validation/http"
	validationUseCase "github.com/allisson/workforce-sync/internal/validation/usecase"
)

// Container is shared by the producer, consumer and CLI commands. Each builds
// only the components it asks for.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	sourceDB        *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Managers
	txManager database.TxManager

	// Repositories
	messageRepository     brokerUseCase.MessageRepository
	eventRecordRepository ingestionUseCase.EventRecordRepository
	findingRepository     validationUseCase.FindingRepository
	personRepository      personUseCase.PersonRepository
	deadLetterRepository  deadLetterUseCase.DeadLetterRepository
	sourceRepository      cdcUseCase.SourceRepository
	checkpointStore       checkpointStore

	// Validation
	referenceSource validation.ReferenceSource
	stopReference   func()

	// Use Cases
	validationUseCase validationUseCase.ValidationUseCase
	reconcileUseCase  personUseCase.ReconcileUseCase
	pipeline          ingestionUseCase.Pipeline
	deadLetterUseCase deadLetterUseCase.DeadLetterUseCase

	// Workers
	producer     *brokerUseCase.Producer
	orchestrator *ingestionUseCase.Orchestrator
	consumer     *brokerUseCase.Consumer
	retrier      *deadLetterUseCase.Retrier
	detector     *cdcUseCase.Detector

	// HTTP
	findingHandler    *validationHTTP.FindingHandler
	deadLetterHandler *deadLetterHTTP.DeadLetterHandler
	personHandler     *personHTTP.PersonHandler
	httpServer        *http.Server
	metricsServer     *http.MetricsServer

	// One Once per component; initErrors keeps the first failure.
	mu                        sync.Mutex
	loggerInit                sync.Once
	dbInit                    sync.Once
	sourceDBInit              sync.Once
	metricsProviderInit       sync.Once
	businessMetricsInit       sync.Once
	txManagerInit             sync.Once
	messageRepositoryInit     sync.Once
	eventRecordRepositoryInit sync.Once
	findingRepositoryInit     sync.Once
	personRepositoryInit      sync.Once
	deadLetterRepositoryInit  sync.Once
	sourceRepositoryInit      sync.Once
	checkpointStoreInit       sync.Once
	referenceSourceInit       sync.Once
	validationUseCaseInit     sync.Once
	reconcileUseCaseInit      sync.Once
	pipelineInit              sync.Once
	deadLetterUseCaseInit     sync.Once
	producerInit              sync.Once
	orchestratorInit          sync.Once
	consumerInit              sync.Once
	retrierInit               sync.Once
	detectorInit              sync.Once
	findingHandlerInit        sync.Once
	deadLetterHandlerInit     sync.Once
	personHandlerInit         sync.Once
	httpServerInit            sync.Once
	metricsServerInit         sync.Once
	initErrors                map[string]error
}

// checkpointStore is the watermark store kept by the container, closed on shutdown.
type checkpointStore interface {
	cdcUseCase.CheckpointStore
	Close() error
}

func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger on stdout at the configured level.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the target database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// SourceDB returns the source-of-record database connection read by the change detector.
func (c *Container) SourceDB() (*sql.DB, error) {
	var err error
	c.sourceDBInit.Do(func() {
		c.sourceDB, err = c.initSourceDB()
		if err != nil {
			c.initErrors["sourceDB"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sourceDB"]; exists {
		return nil, storedErr
	}
	return c.sourceDB, nil
}

// TxManager runs units of work against the target database.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// Shutdown releases whatever the container built, servers first and pools
// last. Errors are joined.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.stopReference != nil {
		c.stopReference()
	}

	if c.checkpointStore != nil {
		if err := c.checkpointStore.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("checkpoint store close: %w", err))
		}
	}

	if c.sourceDB != nil {
		if err := c.sourceDB.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("source database close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// initLogger writes JSON to stdout. Unknown levels fall back to info.
func (c *Container) initLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(c.config.LogLevel),
	}))
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// initDB creates and configures the target database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initSourceDB connects to the source-of-record database with a small pool.
func (c *Container) initSourceDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.SourceDBDriver,
		ConnectionString:   c.config.SourceDBConnectionString,
		MaxOpenConnections: 2,
		MaxIdleConnections: 1,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMetricsProvider creates the Prometheus-backed meter provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}
