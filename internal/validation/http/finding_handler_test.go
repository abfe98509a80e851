package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/validation"
	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
	"github.com/allisson/workforce-sync/internal/validation/http/dto"
)

// MockValidationUseCase is a mock implementation of usecase.ValidationUseCase
type MockValidationUseCase struct {
	mock.Mock
}

func (m *MockValidationUseCase) Validate(
	ctx context.Context,
	evt *eventDomain.ChangeEvent,
	payload []byte,
) (*validation.Result, error) {
	args := m.Called(ctx, evt, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*validation.Result), args.Error(1)
}

func (m *MockValidationUseCase) List(
	ctx context.Context,
	filter validationDomain.Filter,
	offset, limit int,
) ([]validationDomain.Finding, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]validationDomain.Finding), args.Error(1)
}

func (m *MockValidationUseCase) Stats(ctx context.Context) ([]validationDomain.RuleCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]validationDomain.RuleCount), args.Error(1)
}

func setupTestHandler(t *testing.T) (*FindingHandler, *MockValidationUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockUseCase := &MockValidationUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewFindingHandler(mockUseCase, logger), mockUseCase
}

func createTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	return c, w
}

func sampleFinding() validationDomain.Finding {
	return validationDomain.Finding{
		ID:            uuid.Must(uuid.NewV7()),
		RuleID:        "VE-001",
		Severity:      validationDomain.SeverityError,
		Message:       "must be 11 digits and not a repeated digit",
		Field:         "nationalId",
		Value:         "11111111111",
		EventID:       "evt-1",
		SourceID:      "EMP001",
		Topic:         "worker.create",
		CorrelationID: uuid.Must(uuid.NewV7()),
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFindingHandler_ListHandler(t *testing.T) {
	t.Run("Success with filters", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		f := sampleFinding()
		since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		mockUseCase.On("List", mock.Anything, validationDomain.Filter{
			EventID:  "evt-1",
			Severity: validationDomain.SeverityError,
			Since:    &since,
		}, 10, 20).Return([]validationDomain.Finding{f}, nil).Once()

		c, w := createTestContext(http.MethodGet,
			"/v1/findings?event_id=evt-1&severity=error&since=2026-03-01T00:00:00Z&offset=10&limit=20")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.ListFindingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Data, 1)
		assert.Equal(t, "VE-001", response.Data[0].RuleID)
		assert.Equal(t, "ERROR", response.Data[0].Severity)
		assert.Equal(t, "nationalId", response.Data[0].Field)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Empty list is an empty array", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("List", mock.Anything, validationDomain.Filter{}, 0, 50).
			Return([]validationDomain.Finding{}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/findings")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})

	t.Run("Invalid severity", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/findings?severity=fatal")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Invalid since", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/findings?since=yesterday")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Store failure", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)
		mockUseCase.On("List", mock.Anything, mock.Anything, 0, 50).
			Return(nil, errors.New("connection reset")).Once()

		c, w := createTestContext(http.MethodGet, "/v1/findings")
		handler.ListHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestFindingHandler_StatsHandler(t *testing.T) {
	handler, mockUseCase := setupTestHandler(t)
	mockUseCase.On("Stats", mock.Anything).Return([]validationDomain.RuleCount{
		{RuleID: "VE-001", Severity: validationDomain.SeverityError, Count: 3},
		{RuleID: "VE-007", Severity: validationDomain.SeverityWarning, Count: 1},
	}, nil).Once()

	c, w := createTestContext(http.MethodGet, "/v1/findings/stats")
	handler.StatsHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[
		{"rule_id":"VE-001","severity":"ERROR","count":3},
		{"rule_id":"VE-007","severity":"WARNING","count":1}
	]}`, w.Body.String())
}
