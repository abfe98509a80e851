// Package integration provides end-to-end tests of the ingestion pipeline and
// the inspection API against both PostgreSQL and MySQL databases.
package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/workforce-sync/internal/app"
	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	"github.com/allisson/workforce-sync/internal/config"
	"github.com/allisson/workforce-sync/internal/testutil"
)

const partitions = 3

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	dbDriver  string
}

// makeRequest performs a GET request and returns the response and body.
func (ctx *integrationTestContext) makeRequest(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Get(ctx.server.URL + path)
	require.NoError(t, err, "failed to perform request")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, body
}

// ingest publishes a change event and drives the consumer until its partition is drained.
func (ctx *integrationTestContext) ingest(t *testing.T, topic, sourceID string, event map[string]any) {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	producer, err := ctx.container.Producer()
	require.NoError(t, err)
	_, err = producer.Publish(context.Background(), topic, sourceID, payload, nil)
	require.NoError(t, err)

	consumer, err := ctx.container.Consumer()
	require.NoError(t, err)

	partition := brokerDomain.PartitionFor(sourceID, partitions)
	for {
		drained, err := consumer.Poll(context.Background(), topic, partition)
		require.NoError(t, err)
		if drained {
			return
		}
	}
}

func workerEvent(eventID, kind, sourceID, nationalID, fullName string) map[string]any {
	return map[string]any{
		"eventId":        eventID,
		"eventType":      kind,
		"eventTimestamp": time.Now().UTC().Format(time.RFC3339),
		"correlationId":  uuid.Must(uuid.NewV7()).String(),
		"sourceSystem":   "HR_SYSTEM",
		"sourceId":       sourceID,
		"cpf":            nationalID,
		"fullName":       fullName,
		"birthDate":      "1990-05-10",
		"admissionDate":  "2020-01-15",
		"jobTitle":       "Analyst",
		"department":     "Finance",
		"category":       "101",
		"contractType":   "123",
		"cbo":            "252105",
		"salary":         5000.00,
		"status":         "ACTIVE",
	}
}

// setupIntegrationTest initializes all components for integration testing.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		testutil.SkipIfNoPostgres(t)
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		testutil.SkipIfNoMySQL(t)
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}

	cfg := &config.Config{
		LogLevel:             "error",
		ServerHost:           "localhost",
		ServerPort:           8080,
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		SourceDBDriver:       dbDriver,
		MetricsNamespace:     "workforce_integration",
		BrokerPartitions:     partitions,
		BrokerTopicCreate:    "worker.create",
		BrokerTopicUpdate:    "worker.update",
		BrokerTopicDelete:    "worker.delete",
		ConsumerGroup:        "integration",
		ConsumerPollInterval: 100 * time.Millisecond,
		ConsumerBatchSize:    10,
		DLQRetryInterval:     time.Minute,
		DLQMaxRetries:        3,
		DLQPublishTimeout:    time.Second,
		DLQRetryRatePerSec:   10,
		DLQRetryBatchSize:    10,
	}

	container := app.NewContainer(cfg)

	producer, err := container.Producer()
	require.NoError(t, err, "failed to get producer")
	require.NoError(t, producer.EnsureTopics(context.Background()), "failed to create topics")

	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")

	handler := httpSrv.GetHandler()
	require.NotNil(t, handler, "handler should not be nil after SetupRouter")

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    httptest.NewServer(handler),
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}
}

var drivers = []struct {
	name     string
	dbDriver string
}{
	{"PostgreSQL", "postgres"},
	{"MySQL", "mysql"},
}

// TestIntegration_Health_BasicChecks validates the health and readiness endpoints.
func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			resp, body := ctx.makeRequest(t, "/health")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"status":"healthy"}`, string(body))

			resp, body = ctx.makeRequest(t, "/ready")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"status":"ready","components":{"database":"ok"}}`, string(body))
		})
	}
}

// TestIntegration_Pipeline_CompleteFlow ingests a create, an update, a rejected
// event and a delete, then inspects the results through the API.
func TestIntegration_Pipeline_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			sourceID := "EMP-INT-1"

			t.Run("01_Create", func(t *testing.T) {
				ctx.ingest(t, "worker.create", sourceID,
					workerEvent("evt-int-1", "CREATE", sourceID, "12345678901", "Maria Silva"))

				resp, body := ctx.makeRequest(t, "/v1/people/"+sourceID+"/history")
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var history struct {
					Data []map[string]any `json:"data"`
				}
				require.NoError(t, json.Unmarshal(body, &history))
				require.Len(t, history.Data, 1)
				assert.Equal(t, "INSERT", history.Data[0]["operation"])
				assert.Equal(t, "1990-05-10", history.Data[0]["birth_date"])
			})

			t.Run("02_Update", func(t *testing.T) {
				ctx.ingest(t, "worker.update", sourceID,
					workerEvent("evt-int-2", "UPDATE", sourceID, "12345678901", "Maria Souza"))

				resp, body := ctx.makeRequest(t, "/v1/people/"+sourceID+"/history")
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var history struct {
					Data []map[string]any `json:"data"`
				}
				require.NoError(t, json.Unmarshal(body, &history))
				require.Len(t, history.Data, 2)
				assert.Equal(t, "UPDATE", history.Data[1]["operation"])
				assert.Equal(t, "Maria Souza", history.Data[1]["full_name"])
			})

			t.Run("03_RejectedEventRecordsFindings", func(t *testing.T) {
				ctx.ingest(t, "worker.create", "EMP-INT-2",
					workerEvent("evt-int-3", "CREATE", "EMP-INT-2", "11111111111", "Joao Lima"))

				resp, body := ctx.makeRequest(t, "/v1/findings?event_id=evt-int-3&severity=error")
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var findings struct {
					Data []map[string]any `json:"data"`
				}
				require.NoError(t, json.Unmarshal(body, &findings))
				require.NotEmpty(t, findings.Data)
				assert.Equal(t, "nationalId", findings.Data[0]["field"])

				resp, _ = ctx.makeRequest(t, "/v1/people/EMP-INT-2/history")
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			})

			t.Run("04_Delete", func(t *testing.T) {
				event := workerEvent("evt-int-4", "DELETE", sourceID, "12345678901", "Maria Souza")
				event["status"] = "INACTIVE"
				event["terminationDate"] = "2024-06-30"
				ctx.ingest(t, "worker.delete", sourceID, event)

				resp, body := ctx.makeRequest(t, "/v1/people/"+sourceID+"/history")
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

				var history struct {
					Data []map[string]any `json:"data"`
				}
				require.NoError(t, json.Unmarshal(body, &history))
				require.Len(t, history.Data, 3)
				last := history.Data[2]
				assert.Equal(t, "DELETE", last["operation"])
				assert.Equal(t, "INACTIVE", last["status"])
				assert.Equal(t, "2024-06-30", last["termination_date"])
			})

			t.Run("05_NoDeadLetters", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, "/v1/dead-letters")
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
				assert.JSONEq(t, `{"data":[]}`, string(body), fmt.Sprintf("driver %s", tc.dbDriver))
			})
		})
	}
}
