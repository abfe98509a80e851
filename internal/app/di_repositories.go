package app

import (
	"fmt"

	brokerRepository "github.com/allisson/workforce-sync/internal/broker/repository"
	brokerUseCase "github.com/allisson/workforce-sync/internal/broker/usecase"
	cdcRepository "github.com/allisson/workforce-sync/internal/cdc/repository"
	cdcUseCase "github.com/allisson/workforce-sync/internal/cdc/usecase"
	deadLetterRepository "github.com/allisson/workforce-sync/internal/deadletter/repository"
	deadLetterUseCase "github.com/allisson/workforce-sync/internal/deadletter/usecase"
	eventRepository "github.com/allisson/workforce-sync/internal/event/repository"
	ingestionUseCase "github.com/allisson/workforce-sync/internal/ingestion/usecase"
	personRepository "github.com/allisson/workforce-sync/internal/person/repository"
	personUseCase "github.com/allisson/workforce-sync/internal/person/usecase"
	validationRepository "github.com/allisson/workforce-sync/internal/validation/repository"
	validationUseCase "github.com/allisson/workforce-sync/internal/validation/usecase"
)

// checkpointName identifies the change detector watermark in the checkpoint store.
const checkpointName = "employees"

// MessageRepository returns the broker log repository based on database driver.
func (c *Container) MessageRepository() (brokerUseCase.MessageRepository, error) {
	var err error
	c.messageRepositoryInit.Do(func() {
		c.messageRepository, err = c.initMessageRepository()
		if err != nil {
			c.initErrors["messageRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["messageRepository"]; exists {
		return nil, storedErr
	}
	return c.messageRepository, nil
}

// EventRecordRepository returns the event record repository based on database driver.
func (c *Container) EventRecordRepository() (ingestionUseCase.EventRecordRepository, error) {
	var err error
	c.eventRecordRepositoryInit.Do(func() {
		c.eventRecordRepository, err = c.initEventRecordRepository()
		if err != nil {
			c.initErrors["eventRecordRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRecordRepository"]; exists {
		return nil, storedErr
	}
	return c.eventRecordRepository, nil
}

// FindingRepository returns the validation finding repository based on database driver.
func (c *Container) FindingRepository() (validationUseCase.FindingRepository, error) {
	var err error
	c.findingRepositoryInit.Do(func() {
		c.findingRepository, err = c.initFindingRepository()
		if err != nil {
			c.initErrors["findingRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["findingRepository"]; exists {
		return nil, storedErr
	}
	return c.findingRepository, nil
}

// PersonRepository returns the person repository based on database driver.
func (c *Container) PersonRepository() (personUseCase.PersonRepository, error) {
	var err error
	c.personRepositoryInit.Do(func() {
		c.personRepository, err = c.initPersonRepository()
		if err != nil {
			c.initErrors["personRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["personRepository"]; exists {
		return nil, storedErr
	}
	return c.personRepository, nil
}

// DeadLetterRepository returns the dead letter repository based on database driver.
func (c *Container) DeadLetterRepository() (deadLetterUseCase.DeadLetterRepository, error) {
	var err error
	c.deadLetterRepositoryInit.Do(func() {
		c.deadLetterRepository, err = c.initDeadLetterRepository()
		if err != nil {
			c.initErrors["deadLetterRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deadLetterRepository"]; exists {
		return nil, storedErr
	}
	return c.deadLetterRepository, nil
}

// SourceRepository returns the source-of-record repository based on the source database driver.
func (c *Container) SourceRepository() (cdcUseCase.SourceRepository, error) {
	var err error
	c.sourceRepositoryInit.Do(func() {
		c.sourceRepository, err = c.initSourceRepository()
		if err != nil {
			c.initErrors["sourceRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sourceRepository"]; exists {
		return nil, storedErr
	}
	return c.sourceRepository, nil
}

// CheckpointStore returns the watermark store: SQLite when CDCCheckpointPath is set, memory otherwise.
func (c *Container) CheckpointStore() (cdcUseCase.CheckpointStore, error) {
	var err error
	c.checkpointStoreInit.Do(func() {
		c.checkpointStore, err = c.initCheckpointStore()
		if err != nil {
			c.initErrors["checkpointStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["checkpointStore"]; exists {
		return nil, storedErr
	}
	return c.checkpointStore, nil
}

func (c *Container) initMessageRepository() (brokerUseCase.MessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for message repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return brokerRepository.NewMySQLMessageRepository(db), nil
	case "postgres":
		return brokerRepository.NewPostgreSQLMessageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initEventRecordRepository() (ingestionUseCase.EventRecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event record repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return eventRepository.NewMySQLEventRecordRepository(db), nil
	case "postgres":
		return eventRepository.NewPostgreSQLEventRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initFindingRepository() (validationUseCase.FindingRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for finding repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return validationRepository.NewMySQLFindingRepository(db), nil
	case "postgres":
		return validationRepository.NewPostgreSQLFindingRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initPersonRepository() (personUseCase.PersonRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for person repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return personRepository.NewMySQLPersonRepository(db), nil
	case "postgres":
		return personRepository.NewPostgreSQLPersonRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initDeadLetterRepository() (deadLetterUseCase.DeadLetterRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for dead letter repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return deadLetterRepository.NewMySQLDeadLetterRepository(db), nil
	case "postgres":
		return deadLetterRepository.NewPostgreSQLDeadLetterRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initSourceRepository() (cdcUseCase.SourceRepository, error) {
	db, err := c.SourceDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get source database for source repository: %w", err)
	}

	switch c.config.SourceDBDriver {
	case "mysql":
		return cdcRepository.NewMySQLSourceRepository(db), nil
	case "postgres":
		return cdcRepository.NewPostgreSQLSourceRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported source database driver: %s", c.config.SourceDBDriver)
	}
}

func (c *Container) initCheckpointStore() (checkpointStore, error) {
	if c.config.CDCCheckpointPath == "" {
		return cdcRepository.NewMemoryCheckpointStore(), nil
	}
	store, err := cdcRepository.OpenSQLiteCheckpointStore(c.config.CDCCheckpointPath, checkpointName)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	return store, nil
}
