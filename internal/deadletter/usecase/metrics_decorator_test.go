package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	"github.com/allisson/workforce-sync/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordPayloadSize(ctx context.Context, topic, direction string, size int) {
	m.Called(ctx, topic, direction, size)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// mockDeadLetterUseCase is a mock implementation of DeadLetterUseCase for testing.
type mockDeadLetterUseCase struct {
	mock.Mock
}

func (m *mockDeadLetterUseCase) Capture(
	ctx context.Context,
	msg brokerDomain.Message,
	evt *eventDomain.ChangeEvent,
	cause error,
) (*deadLetterDomain.DeadLetter, error) {
	args := m.Called(ctx, msg, evt, cause)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deadLetterDomain.DeadLetter), args.Error(1)
}

func (m *mockDeadLetterUseCase) Get(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deadLetterDomain.DeadLetter), args.Error(1)
}

func (m *mockDeadLetterUseCase) List(
	ctx context.Context,
	filter deadLetterDomain.Filter,
	offset, limit int,
) ([]*deadLetterDomain.DeadLetter, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deadLetterDomain.DeadLetter), args.Error(1)
}

func (m *mockDeadLetterUseCase) Reprocess(
	ctx context.Context,
	id uuid.UUID,
	payload []byte,
) (*deadLetterDomain.DeadLetter, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deadLetterDomain.DeadLetter), args.Error(1)
}

func expectMetrics(ctx context.Context, m *mockBusinessMetrics, operation, status string) {
	m.On("RecordOperation", ctx, "deadletter", operation, status).Once()
	m.On("RecordDuration", ctx, "deadletter", operation, mock.AnythingOfType("time.Duration"), status).Once()
}

func TestMetricsDecorator_Capture(t *testing.T) {
	ctx := context.Background()
	msg := brokerDomain.Message{Topic: "worker.create"}
	cause := apperrors.ErrConflict

	next := &mockDeadLetterUseCase{}
	next.On("Capture", ctx, msg, (*eventDomain.ChangeEvent)(nil), cause).
		Return(&deadLetterDomain.DeadLetter{}, nil).Once()
	m := &mockBusinessMetrics{}
	expectMetrics(ctx, m, "capture", "success")

	_, err := NewDeadLetterUseCaseWithMetrics(next, m).Capture(ctx, msg, nil, cause)

	assert.NoError(t, err)
	next.AssertExpectations(t)
	m.AssertExpectations(t)
}

func TestMetricsDecorator_Reprocess(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	tests := []struct {
		name   string
		err    error
		status string
	}{
		{name: "success", status: "success"},
		{name: "error", err: deadLetterDomain.ErrAlreadyReprocessed, status: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &mockDeadLetterUseCase{}
			next.On("Reprocess", ctx, id, []byte(nil)).Return(&deadLetterDomain.DeadLetter{ID: id}, tt.err).Once()
			m := &mockBusinessMetrics{}
			expectMetrics(ctx, m, "reprocess", tt.status)

			_, err := NewDeadLetterUseCaseWithMetrics(next, m).Reprocess(ctx, id, nil)

			assert.Equal(t, tt.err, err)
			m.AssertExpectations(t)
		})
	}
}

func TestMetricsDecorator_ListAndGet(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	next := &mockDeadLetterUseCase{}
	next.On("Get", ctx, id).Return(nil, deadLetterDomain.ErrDeadLetterNotFound).Once()
	next.On("List", ctx, deadLetterDomain.Filter{}, 0, 50).Return([]*deadLetterDomain.DeadLetter{}, nil).Once()
	m := &mockBusinessMetrics{}
	expectMetrics(ctx, m, "get", "error")
	expectMetrics(ctx, m, "list", "success")

	uc := NewDeadLetterUseCaseWithMetrics(next, m)
	_, err := uc.Get(ctx, id)
	assert.ErrorIs(t, err, deadLetterDomain.ErrDeadLetterNotFound)
	_, err = uc.List(ctx, deadLetterDomain.Filter{}, 0, 50)
	assert.NoError(t, err)

	m.AssertExpectations(t)
}
