package app

import (
	"fmt"
	"log/slog"
	"time"

	brokerUseCase "github.com/allisson/workforce-sync/internal/broker/usecase"
	cdcUseCase "github.com/allisson/workforce-sync/internal/cdc/usecase"
	deadLetterUseCase "github.com/allisson/workforce-sync/internal/deadletter/usecase"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	ingestionUseCase "github.com/allisson/workforce-sync/internal/ingestion/usecase"
	personUseCase "github.com/allisson/workforce-sync/internal/person/usecase"
	"github.com/allisson/workforce-sync/internal/validation"
	validationUseCase "github.com/allisson/workforce-sync/internal/validation/usecase"
)

// sourceSystem is stamped on every change event emitted by the detector.
const sourceSystem = "hr-employees"

// ReferenceSource returns the reference tables used by the validation rules.
// With ReferenceTablesPath set the file is watched and reloaded on change.
func (c *Container) ReferenceSource() (validation.ReferenceSource, error) {
	var err error
	c.referenceSourceInit.Do(func() {
		c.referenceSource, err = c.initReferenceSource()
		if err != nil {
			c.initErrors["referenceSource"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["referenceSource"]; exists {
		return nil, storedErr
	}
	return c.referenceSource, nil
}

// ValidationUseCase returns the validation use case.
func (c *Container) ValidationUseCase() (validationUseCase.ValidationUseCase, error) {
	var err error
	c.validationUseCaseInit.Do(func() {
		c.validationUseCase, err = c.initValidationUseCase()
		if err != nil {
			c.initErrors["validationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["validationUseCase"]; exists {
		return nil, storedErr
	}
	return c.validationUseCase, nil
}

// ReconcileUseCase returns the reconciliation use case.
func (c *Container) ReconcileUseCase() (personUseCase.ReconcileUseCase, error) {
	var err error
	c.reconcileUseCaseInit.Do(func() {
		c.reconcileUseCase, err = c.initReconcileUseCase()
		if err != nil {
			c.initErrors["reconcileUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["reconcileUseCase"]; exists {
		return nil, storedErr
	}
	return c.reconcileUseCase, nil
}

// Pipeline returns the validate-then-reconcile pipeline shared by the consumer and dead letter replay.
func (c *Container) Pipeline() (ingestionUseCase.Pipeline, error) {
	var err error
	c.pipelineInit.Do(func() {
		c.pipeline, err = c.initPipeline()
		if err != nil {
			c.initErrors["pipeline"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["pipeline"]; exists {
		return nil, storedErr
	}
	return c.pipeline, nil
}

// DeadLetterUseCase returns the dead letter use case.
func (c *Container) DeadLetterUseCase() (deadLetterUseCase.DeadLetterUseCase, error) {
	var err error
	c.deadLetterUseCaseInit.Do(func() {
		c.deadLetterUseCase, err = c.initDeadLetterUseCase()
		if err != nil {
			c.initErrors["deadLetterUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deadLetterUseCase"]; exists {
		return nil, storedErr
	}
	return c.deadLetterUseCase, nil
}

// Producer returns the broker producer.
func (c *Container) Producer() (*brokerUseCase.Producer, error) {
	var err error
	c.producerInit.Do(func() {
		c.producer, err = c.initProducer()
		if err != nil {
			c.initErrors["producer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["producer"]; exists {
		return nil, storedErr
	}
	return c.producer, nil
}

// Orchestrator returns the ingestion orchestrator that handles consumed messages.
func (c *Container) Orchestrator() (*ingestionUseCase.Orchestrator, error) {
	var err error
	c.orchestratorInit.Do(func() {
		c.orchestrator, err = c.initOrchestrator()
		if err != nil {
			c.initErrors["orchestrator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orchestrator"]; exists {
		return nil, storedErr
	}
	return c.orchestrator, nil
}

// Consumer returns the broker consumer feeding the orchestrator.
func (c *Container) Consumer() (*brokerUseCase.Consumer, error) {
	var err error
	c.consumerInit.Do(func() {
		c.consumer, err = c.initConsumer()
		if err != nil {
			c.initErrors["consumer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["consumer"]; exists {
		return nil, storedErr
	}
	return c.consumer, nil
}

// Retrier returns the dead letter retrier.
func (c *Container) Retrier() (*deadLetterUseCase.Retrier, error) {
	var err error
	c.retrierInit.Do(func() {
		c.retrier, err = c.initRetrier()
		if err != nil {
			c.initErrors["retrier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["retrier"]; exists {
		return nil, storedErr
	}
	return c.retrier, nil
}

// Detector returns the change detector.
func (c *Container) Detector() (*cdcUseCase.Detector, error) {
	var err error
	c.detectorInit.Do(func() {
		c.detector, err = c.initDetector()
		if err != nil {
			c.initErrors["detector"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["detector"]; exists {
		return nil, storedErr
	}
	return c.detector, nil
}

func (c *Container) initReferenceSource() (validation.ReferenceSource, error) {
	if c.config.ReferenceTablesPath == "" {
		return validation.NewStaticReference(validation.DefaultReferenceTables()), nil
	}

	logger := c.Logger()
	loader, err := validation.NewReferenceLoader(c.config.ReferenceTablesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference tables: %w", err)
	}

	stop, err := loader.Watch()
	if err != nil {
		// The loaded tables stay usable without hot reload.
		logger.Warn("reference tables will not be reloaded",
			slog.String("path", c.config.ReferenceTablesPath),
			slog.Any("error", err),
		)
		return loader, nil
	}
	c.stopReference = stop

	return loader, nil
}

func (c *Container) initValidationUseCase() (validationUseCase.ValidationUseCase, error) {
	logger := c.Logger()

	ref, err := c.ReferenceSource()
	if err != nil {
		return nil, fmt.Errorf("failed to get reference source for validation use case: %w", err)
	}

	personRepo, err := c.PersonRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get person repository for validation use case: %w", err)
	}

	findingRepo, err := c.FindingRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get finding repository for validation use case: %w", err)
	}

	engine := validation.NewEngine(logger, validation.DefaultRules(ref, personRepo, time.Now)...)
	baseUseCase := validationUseCase.NewValidationUseCase(engine, findingRepo, time.Now)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for validation use case: %w", err)
		}
		return validationUseCase.NewValidationUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initReconcileUseCase() (personUseCase.ReconcileUseCase, error) {
	personRepo, err := c.PersonRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get person repository for reconcile use case: %w", err)
	}

	baseUseCase := personUseCase.NewReconcileUseCase(personRepo, c.Logger(), time.Now)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for reconcile use case: %w", err)
		}
		return personUseCase.NewReconcileUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initPipeline() (ingestionUseCase.Pipeline, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for pipeline: %w", err)
	}

	eventRecordRepo, err := c.EventRecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event record repository for pipeline: %w", err)
	}

	validationUC, err := c.ValidationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get validation use case for pipeline: %w", err)
	}

	reconcileUC, err := c.ReconcileUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get reconcile use case for pipeline: %w", err)
	}

	basePipeline := ingestionUseCase.NewPipeline(
		txManager,
		eventRecordRepo,
		validationUC,
		reconcileUC,
		c.Logger(),
		time.Now,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for pipeline: %w", err)
		}
		return ingestionUseCase.NewPipelineWithMetrics(basePipeline, businessMetrics), nil
	}

	return basePipeline, nil
}

func (c *Container) initDeadLetterUseCase() (deadLetterUseCase.DeadLetterUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for dead letter use case: %w", err)
	}

	deadLetterRepo, err := c.DeadLetterRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter repository for dead letter use case: %w", err)
	}

	pipeline, err := c.Pipeline()
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline for dead letter use case: %w", err)
	}

	baseUseCase := deadLetterUseCase.NewDeadLetterUseCase(
		txManager,
		deadLetterRepo,
		pipeline,
		c.config.DLQMaxRetries,
		c.Logger(),
		time.Now,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for dead letter use case: %w", err)
		}
		return deadLetterUseCase.NewDeadLetterUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initProducer() (*brokerUseCase.Producer, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for producer: %w", err)
	}

	messageRepo, err := c.MessageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get message repository for producer: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for producer: %w", err)
	}

	producerConfig := brokerUseCase.ProducerConfig{
		Topics:     c.config.Topics(),
		Partitions: c.config.BrokerPartitions,
	}

	return brokerUseCase.NewProducer(producerConfig, txManager, messageRepo, businessMetrics), nil
}

func (c *Container) initOrchestrator() (*ingestionUseCase.Orchestrator, error) {
	pipeline, err := c.Pipeline()
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline for orchestrator: %w", err)
	}

	deadLetterUC, err := c.DeadLetterUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter use case for orchestrator: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for orchestrator: %w", err)
	}

	return ingestionUseCase.NewOrchestrator(pipeline, deadLetterUC, businessMetrics, c.Logger()), nil
}

func (c *Container) initConsumer() (*brokerUseCase.Consumer, error) {
	messageRepo, err := c.MessageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get message repository for consumer: %w", err)
	}

	orchestrator, err := c.Orchestrator()
	if err != nil {
		return nil, fmt.Errorf("failed to get orchestrator for consumer: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for consumer: %w", err)
	}

	consumerConfig := brokerUseCase.ConsumerConfig{
		Group:        c.config.ConsumerGroup,
		Topics:       c.config.Topics(),
		Partitions:   c.config.BrokerPartitions,
		PollInterval: c.config.ConsumerPollInterval,
		BatchSize:    c.config.ConsumerBatchSize,
	}

	return brokerUseCase.NewConsumer(consumerConfig, messageRepo, orchestrator, businessMetrics, c.Logger()), nil
}

func (c *Container) initRetrier() (*deadLetterUseCase.Retrier, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for retrier: %w", err)
	}

	deadLetterRepo, err := c.DeadLetterRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter repository for retrier: %w", err)
	}

	producer, err := c.Producer()
	if err != nil {
		return nil, fmt.Errorf("failed to get producer for retrier: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for retrier: %w", err)
	}

	retrierConfig := deadLetterUseCase.RetrierConfig{
		Interval:       c.config.DLQRetryInterval,
		BatchSize:      c.config.DLQRetryBatchSize,
		PublishTimeout: c.config.DLQPublishTimeout,
		RatePerSec:     c.config.DLQRetryRatePerSec,
	}

	return deadLetterUseCase.NewRetrier(
		retrierConfig,
		txManager,
		deadLetterRepo,
		producer,
		businessMetrics,
		c.Logger(),
	), nil
}

func (c *Container) initDetector() (*cdcUseCase.Detector, error) {
	sourceRepo, err := c.SourceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get source repository for detector: %w", err)
	}

	checkpoint, err := c.CheckpointStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint store for detector: %w", err)
	}

	producer, err := c.Producer()
	if err != nil {
		return nil, fmt.Errorf("failed to get producer for detector: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for detector: %w", err)
	}

	detectorConfig := cdcUseCase.DetectorConfig{
		Interval: c.config.CDCPollInterval,
		Lookback: c.config.CDCLookback,
		Topics: map[eventDomain.MutationKind]string{
			eventDomain.KindCreate: c.config.BrokerTopicCreate,
			eventDomain.KindUpdate: c.config.BrokerTopicUpdate,
			eventDomain.KindDelete: c.config.BrokerTopicDelete,
		},
		SourceSystem: sourceSystem,
	}

	return cdcUseCase.NewDetector(
		detectorConfig,
		sourceRepo,
		checkpoint,
		producer,
		businessMetrics,
		c.Logger(),
	), nil
}
