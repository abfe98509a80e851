package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	brokerUsecase "github.com/allisson/workforce-sync/internal/broker/usecase"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

var _ brokerUsecase.Handler = (*Orchestrator)(nil)

// MockPipeline is a mock implementation of Pipeline
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Process(ctx context.Context, evt *eventDomain.ChangeEvent, payload []byte) (*Result, error) {
	args := m.Called(ctx, evt, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockPipeline) Replay(ctx context.Context, payload []byte, provenance eventDomain.Provenance) error {
	args := m.Called(ctx, payload, provenance)
	return args.Error(0)
}

// MockDeadLetterCapturer is a mock implementation of DeadLetterCapturer
type MockDeadLetterCapturer struct {
	mock.Mock
}

func (m *MockDeadLetterCapturer) Capture(
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

func deliveredMessage(t *testing.T, evt *eventDomain.ChangeEvent, headers map[string]string) brokerDomain.Message {
	return brokerDomain.Message{
		Topic:     "worker.create",
		Partition: 2,
		Offset:    41,
		Key:       evt.SourceID,
		Value:     encode(t, evt),
		Headers:   headers,
		CreatedAt: fixedNow,
	}
}

func capturedDeadLetter() *deadLetterDomain.DeadLetter {
	return &deadLetterDomain.DeadLetter{ID: uuid.Must(uuid.NewV7()), Status: deadLetterDomain.StatusPending}
}

func TestOrchestrator_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("Success acknowledges without dead letter", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindCreate, "EMP001")
		msg := deliveredMessage(t, evt, nil)
		pipeline := &MockPipeline{}
		deadLetters := &MockDeadLetterCapturer{}

		pipeline.On("Process", mock.Anything, mock.MatchedBy(func(e *eventDomain.ChangeEvent) bool {
			return e.EventID == evt.EventID &&
				e.Topic == "worker.create" && e.Partition == 2 && e.Offset == 41 &&
				e.CorrelationID == evt.CorrelationID
		}), msg.Value).Return(&Result{Outcome: insertOutcome("EMP001")}, nil).Once()

		err := NewOrchestrator(pipeline, deadLetters, nil, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		pipeline.AssertExpectations(t)
		deadLetters.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Validation rejection is not dead-lettered", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindCreate, "EMP002")
		msg := deliveredMessage(t, evt, nil)
		pipeline := &MockPipeline{}
		deadLetters := &MockDeadLetterCapturer{}
		pipeline.On("Process", mock.Anything, mock.Anything, msg.Value).Return(&Result{Rejected: true}, nil).Once()

		err := NewOrchestrator(pipeline, deadLetters, nil, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		deadLetters.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Pipeline failure is dead-lettered and acknowledged", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindDelete, "Y")
		msg := deliveredMessage(t, evt, nil)
		pipeline := &MockPipeline{}
		deadLetters := &MockDeadLetterCapturer{}
		cause := apperrors.Wrapf(personDomain.ErrPersonNotFound, "%s for %s", evt.Kind, evt.SourceID)

		pipeline.On("Process", mock.Anything, mock.Anything, msg.Value).Return(nil, cause).Once()
		deadLetters.On("Capture", mock.Anything, msg,
			mock.MatchedBy(func(e *eventDomain.ChangeEvent) bool { return e != nil && e.SourceID == "Y" }),
			mock.MatchedBy(func(err error) bool {
				return apperrors.Is(err, apperrors.ErrNotFound) && errors.Is(err, cause)
			}),
		).Return(capturedDeadLetter(), nil).Once()

		err := NewOrchestrator(pipeline, deadLetters, nil, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		deadLetters.AssertExpectations(t)
	})

	t.Run("Malformed payload is dead-lettered without an event", func(t *testing.T) {
		msg := brokerDomain.Message{
			Topic:   "worker.update",
			Key:     "EMP003",
			Value:   []byte("not json"),
			Headers: map[string]string{eventDomain.CorrelationHeader: uuid.NewString()},
		}
		pipeline := &MockPipeline{}
		deadLetters := &MockDeadLetterCapturer{}
		deadLetters.On("Capture", mock.Anything, msg, (*eventDomain.ChangeEvent)(nil),
			mock.MatchedBy(func(err error) bool { return apperrors.Is(err, eventDomain.ErrMalformedEvent) }),
		).Return(capturedDeadLetter(), nil).Once()

		err := NewOrchestrator(pipeline, deadLetters, nil, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		deadLetters.AssertExpectations(t)
		pipeline.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Panic is dead-lettered", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindUpdate, "EMP004")
		msg := deliveredMessage(t, evt, nil)
		pipeline := &MockPipeline{}
		deadLetters := &MockDeadLetterCapturer{}

		pipeline.On("Process", mock.Anything, mock.Anything, msg.Value).
			Run(func(mock.Arguments) { panic("boom") }).
			Return(nil, nil).Once()
		deadLetters.On("Capture", mock.Anything, msg,
			mock.MatchedBy(func(e *eventDomain.ChangeEvent) bool { return e != nil && e.SourceID == "EMP004" }),
			mock.MatchedBy(func(err error) bool { return err.Error() == "panic while processing message: boom" }),
		).Return(capturedDeadLetter(), nil).Once()

		err := NewOrchestrator(pipeline, deadLetters, nil, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		deadLetters.AssertExpectations(t)
	})

	t.Run("Dead letter store failure is returned for redelivery", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindCreate, "EMP005")
		msg := deliveredMessage(t, evt, nil)
		pipeline := &MockPipeline{}
		deadLetters := &MockDeadLetterCapturer{}

		pipeline.On("Process", mock.Anything, mock.Anything, msg.Value).Return(nil, apperrors.ErrConflict).Once()
		deadLetters.On("Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("database is down")).Once()

		err := NewOrchestrator(pipeline, deadLetters, nil, testLogger()).Handle(ctx, msg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database is down")
	})

	t.Run("Correlation header wins over the body", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindCreate, "EMP006")
		header := uuid.Must(uuid.NewV7())
		msg := deliveredMessage(t, evt, map[string]string{eventDomain.CorrelationHeader: header.String()})
		pipeline := &MockPipeline{}

		pipeline.On("Process", mock.Anything, mock.MatchedBy(func(e *eventDomain.ChangeEvent) bool {
			return e.CorrelationID == header
		}), msg.Value).Return(&Result{}, nil).Once()

		err := NewOrchestrator(pipeline, &MockDeadLetterCapturer{}, nil, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		pipeline.AssertExpectations(t)
	})

	t.Run("Missing correlation id is generated", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindCreate, "EMP007")
		evt.CorrelationID = uuid.Nil
		msg := deliveredMessage(t, evt, nil)
		pipeline := &MockPipeline{}

		pipeline.On("Process", mock.Anything, mock.MatchedBy(func(e *eventDomain.ChangeEvent) bool {
			return e.CorrelationID != uuid.Nil
		}), msg.Value).Return(&Result{}, nil).Once()

		err := NewOrchestrator(pipeline, &MockDeadLetterCapturer{}, nil, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		pipeline.AssertExpectations(t)
	})

	t.Run("Records handle status", func(t *testing.T) {
		evt := changeEvent(eventDomain.KindCreate, "EMP008")
		msg := deliveredMessage(t, evt, nil)
		pipeline := &MockPipeline{}
		deadLetters := &MockDeadLetterCapturer{}
		m := &mockBusinessMetrics{}

		pipeline.On("Process", mock.Anything, mock.Anything, msg.Value).Return(nil, apperrors.ErrUnavailable).Once()
		deadLetters.On("Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(capturedDeadLetter(), nil).Once()
		expectMetrics(ctx, m, "handle", "dead_letter")

		err := NewOrchestrator(pipeline, deadLetters, m, testLogger()).Handle(ctx, msg)

		require.NoError(t, err)
		m.AssertExpectations(t)
	})
}

// End to end through the real pipeline: a CREATE delivered twice is applied once
// and the second delivery becomes a conflict dead letter.
func TestOrchestrator_DuplicateCreate(t *testing.T) {
	ctx := context.Background()
	evt := changeEvent(eventDomain.KindCreate, "EMP009")
	msg := deliveredMessage(t, evt, nil)

	validator := &MockValidator{}
	reconciler := &MockReconciler{}
	deadLetters := &MockDeadLetterCapturer{}
	validator.On("Validate", mock.Anything, mock.Anything, msg.Value).Return(validResult(), nil).Once()
	reconciler.On("Apply", mock.Anything, mock.Anything).Return(insertOutcome("EMP009"), nil).Once()
	deadLetters.On("Capture", mock.Anything, msg, mock.Anything,
		mock.MatchedBy(func(err error) bool { return apperrors.Is(err, apperrors.ErrConflict) }),
	).Return(capturedDeadLetter(), nil).Once()

	o := NewOrchestrator(newTestPipeline(newMemoryEventRecords(), validator, reconciler), deadLetters, nil, testLogger())

	require.NoError(t, o.Handle(ctx, msg))
	require.NoError(t, o.Handle(ctx, msg))

	reconciler.AssertNumberOfCalls(t, "Apply", 1)
	deadLetters.AssertExpectations(t)
}

func TestCorrelationID(t *testing.T) {
	body := uuid.Must(uuid.NewV7())

	msg := brokerDomain.Message{Headers: map[string]string{eventDomain.CorrelationHeader: "garbage"}}
	assert.Equal(t, body, correlationID(msg, body), "unparseable header falls back to body")

	generated := correlationID(brokerDomain.Message{}, uuid.Nil)
	assert.Equal(t, uuid.Version(7), generated.Version())
}
