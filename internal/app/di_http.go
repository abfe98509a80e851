package app

import (
	"fmt"

	deadLetterHTTP "github.com/allisson/workforce-sync/internal/deadletter/http"
	"github.com/allisson/workforce-sync/internal/http"
	personHTTP "github.com/allisson/workforce-sync/internal/person/http"
	validationHTTP "github.com/allisson/workforce-sync/internal/validation/http"
)

// FindingHandler returns the HTTP handler for validation findings.
func (c *Container) FindingHandler() (*validationHTTP.FindingHandler, error) {
	var err error
	c.findingHandlerInit.Do(func() {
		c.findingHandler, err = c.initFindingHandler()
		if err != nil {
			c.initErrors["findingHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["findingHandler"]; exists {
		return nil, storedErr
	}
	return c.findingHandler, nil
}

// DeadLetterHandler returns the HTTP handler for dead letters.
func (c *Container) DeadLetterHandler() (*deadLetterHTTP.DeadLetterHandler, error) {
	var err error
	c.deadLetterHandlerInit.Do(func() {
		c.deadLetterHandler, err = c.initDeadLetterHandler()
		if err != nil {
			c.initErrors["deadLetterHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deadLetterHandler"]; exists {
		return nil, storedErr
	}
	return c.deadLetterHandler, nil
}

// PersonHandler returns the HTTP handler for person history.
func (c *Container) PersonHandler() (*personHTTP.PersonHandler, error) {
	var err error
	c.personHandlerInit.Do(func() {
		c.personHandler, err = c.initPersonHandler()
		if err != nil {
			c.initErrors["personHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["personHandler"]; exists {
		return nil, storedErr
	}
	return c.personHandler, nil
}

// HTTPServer returns the inspection HTTP server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

func (c *Container) initFindingHandler() (*validationHTTP.FindingHandler, error) {
	validationUC, err := c.ValidationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get validation use case for finding handler: %w", err)
	}
	return validationHTTP.NewFindingHandler(validationUC, c.Logger()), nil
}

func (c *Container) initDeadLetterHandler() (*deadLetterHTTP.DeadLetterHandler, error) {
	deadLetterUC, err := c.DeadLetterUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter use case for dead letter handler: %w", err)
	}
	return deadLetterHTTP.NewDeadLetterHandler(deadLetterUC, c.Logger()), nil
}

func (c *Container) initPersonHandler() (*personHTTP.PersonHandler, error) {
	reconcileUC, err := c.ReconcileUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get reconcile use case for person handler: %w", err)
	}
	return personHTTP.NewPersonHandler(reconcileUC, c.Logger()), nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	findingHandler, err := c.FindingHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get finding handler for http server: %w", err)
	}

	deadLetterHandler, err := c.DeadLetterHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter handler for http server: %w", err)
	}

	personHandler, err := c.PersonHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get person handler for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.config, findingHandler, deadLetterHandler, personHandler, metricsProvider)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if metricsProvider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), metricsProvider), nil
}
