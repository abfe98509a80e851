package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

// memoryPersonRepository is an in-memory PersonRepository enforcing the same
// unique keys and version guard as the SQL repositories.
type memoryPersonRepository struct {
	mu      sync.Mutex
	persons map[string]personDomain.Person
	history []personDomain.History
}

func newMemoryPersonRepository() *memoryPersonRepository {
	return &memoryPersonRepository{persons: map[string]personDomain.Person{}}
}

func (m *memoryPersonRepository) Create(_ context.Context, person *personDomain.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.persons[person.SourceID]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "duplicate source id")
	}
	for _, p := range m.persons {
		if p.NationalID == person.NationalID {
			return apperrors.Wrap(apperrors.ErrConflict, "duplicate national id")
		}
	}
	m.persons[person.SourceID] = *person
	return nil
}

func (m *memoryPersonRepository) Update(_ context.Context, person *personDomain.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.persons[person.SourceID]
	if !ok || current.Version != person.Version-1 {
		return apperrors.Wrap(apperrors.ErrConflict, "stale version")
	}
	m.persons[person.SourceID] = *person
	return nil
}

func (m *memoryPersonRepository) GetBySourceID(_ context.Context, sourceID string) (*personDomain.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[sourceID]
	if !ok {
		return nil, apperrors.Wrapf(personDomain.ErrPersonNotFound, "source id %s", sourceID)
	}
	return &p, nil
}

func (m *memoryPersonRepository) CountByKeyExcluding(
	_ context.Context,
	key personDomain.NaturalKey,
	value, sourceID string,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, p := range m.persons {
		if p.SourceID != sourceID && key == personDomain.KeyNationalID && p.NationalID == value {
			count++
		}
	}
	return count, nil
}

func (m *memoryPersonRepository) AppendHistory(_ context.Context, h *personDomain.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *h)
	return nil
}

func (m *memoryPersonRepository) ListHistory(_ context.Context, sourceID string) ([]personDomain.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []personDomain.History
	for _, h := range m.history {
		if h.SourceID == sourceID {
			entries = append(entries, h)
		}
	}
	return entries, nil
}

// MockPersonRepository is a mock implementation of PersonRepository
type MockPersonRepository struct {
	mock.Mock
}

func (m *MockPersonRepository) Create(ctx context.Context, person *personDomain.Person) error {
	return m.Called(ctx, person).Error(0)
}

func (m *MockPersonRepository) Update(ctx context.Context, person *personDomain.Person) error {
	return m.Called(ctx, person).Error(0)
}

func (m *MockPersonRepository) GetBySourceID(ctx context.Context, sourceID string) (*personDomain.Person, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*personDomain.Person), args.Error(1)
}

func (m *MockPersonRepository) CountByKeyExcluding(
	ctx context.Context,
	key personDomain.NaturalKey,
	value, sourceID string,
) (int64, error) {
	args := m.Called(ctx, key, value, sourceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPersonRepository) AppendHistory(ctx context.Context, h *personDomain.History) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockPersonRepository) ListHistory(ctx context.Context, sourceID string) ([]personDomain.History, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]personDomain.History), args.Error(1)
}

var testNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func workerEvent(kind eventDomain.MutationKind, sourceID, nationalID string) *eventDomain.ChangeEvent {
	birth := eventDomain.NewDate(1994, time.January, 15)
	admission := eventDomain.NewDate(2020, time.March, 1)
	salary := eventDomain.MustMoney("5000")
	evt := eventDomain.ChangeEvent{
		EventID:       uuid.NewString(),
		Kind:          kind,
		CorrelationID: uuid.Must(uuid.NewV7()),
		WorkerSnapshot: eventDomain.WorkerSnapshot{
			SourceID:      sourceID,
			NationalID:    nationalID,
			FullName:      "Maria Silva",
			BirthDate:     &birth,
			AdmissionDate: &admission,
			Salary:        &salary,
			Status:        eventDomain.WorkerActive,
		},
	}.WithProvenance(eventDomain.Provenance{Topic: "worker." + string(kind), Partition: 0, Offset: 1})
	return &evt
}

func TestReconcileUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_InsertsVersionOnePending", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		outcome, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))

		require.NoError(t, err)
		assert.Equal(t, personDomain.OperationInsert, outcome.Operation)
		assert.False(t, outcome.SelfHealed)
		assert.Equal(t, 1, outcome.Person.Version)
		assert.Equal(t, personDomain.StatusActive, outcome.Person.Status)
		assert.Equal(t, personDomain.IntegrationPending, outcome.Person.IntegrationStatus)
		assert.Equal(t, Actor, outcome.Person.CreatedBy)
		assert.Equal(t, testNow, outcome.Person.CreatedAt)

		entries, err := uc.History(ctx, "EMP001")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, personDomain.OperationInsert, entries[0].Operation)
	})

	t.Run("Error_ReplayedCreateIsDuplicate", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)
		evt := workerEvent(eventDomain.KindCreate, "EMP001", "12345678901")

		_, err := uc.Apply(ctx, evt)
		require.NoError(t, err)

		_, err = uc.Apply(ctx, evt)
		assert.ErrorIs(t, err, personDomain.ErrDuplicateSourceID)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Len(t, repo.persons, 1)
		assert.Len(t, repo.history, 1)
	})

	t.Run("Error_NationalIDHeldByAnotherSource", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		_, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))
		require.NoError(t, err)

		_, err = uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP002", "12345678901"))
		assert.ErrorIs(t, err, personDomain.ErrNationalIDTaken)
		assert.Len(t, repo.persons, 1)
	})

	t.Run("Error_LookupFailurePropagates", func(t *testing.T) {
		repo := &MockPersonRepository{}
		lookupErr := errors.New("connection refused")
		repo.On("GetBySourceID", ctx, "EMP001").Return(nil, lookupErr).Once()

		uc := NewReconcileUseCase(repo, nil, testClock)
		_, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))

		assert.ErrorIs(t, err, lookupErr)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestReconcileUseCase_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SelfHealsMissingPerson", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		outcome, err := uc.Apply(ctx, workerEvent(eventDomain.KindUpdate, "X", "12345678901"))

		require.NoError(t, err)
		assert.True(t, outcome.SelfHealed)
		assert.Equal(t, personDomain.OperationInsert, outcome.Operation)
		assert.Equal(t, 1, outcome.Person.Version)
		assert.Contains(t, repo.persons, "X")
	})

	t.Run("Success_AppliesFieldsAndBumpsVersion", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		created, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))
		require.NoError(t, err)

		evt := workerEvent(eventDomain.KindUpdate, "EMP001", "12345678901")
		evt.FullName = "Maria Souza"
		evt.JobTitle = "Analyst"

		outcome, err := uc.Apply(ctx, evt)

		require.NoError(t, err)
		assert.Equal(t, personDomain.OperationUpdate, outcome.Operation)
		assert.Equal(t, 2, outcome.Person.Version)
		assert.Equal(t, "Maria Souza", outcome.Person.FullName)
		assert.Equal(t, created.Person.ID, outcome.Person.ID)
		assert.Equal(t, created.Person.CreatedAt, outcome.Person.CreatedAt)
		assert.Equal(t, evt.CorrelationID, outcome.Person.CorrelationID)
	})

	t.Run("Error_NationalIDMovedOntoAnotherPerson", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		_, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))
		require.NoError(t, err)
		_, err = uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP002", "98765432100"))
		require.NoError(t, err)

		_, err = uc.Apply(ctx, workerEvent(eventDomain.KindUpdate, "EMP002", "12345678901"))
		assert.ErrorIs(t, err, personDomain.ErrNationalIDTaken)
	})
}

func TestReconcileUseCase_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_MissingPersonNamesSourceID", func(t *testing.T) {
		uc := NewReconcileUseCase(newMemoryPersonRepository(), discardLogger(), testClock)

		_, err := uc.Apply(ctx, workerEvent(eventDomain.KindDelete, "Y", "52998224725"))

		assert.ErrorIs(t, err, personDomain.ErrPersonNotFound)
		assert.Contains(t, err.Error(), "Y")
	})

	t.Run("Success_SoftDeletesWithTerminationDate", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		_, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))
		require.NoError(t, err)

		evt := workerEvent(eventDomain.KindDelete, "EMP001", "12345678901")
		termination := eventDomain.NewDate(2024, time.May, 31)
		evt.TerminationDate = &termination

		outcome, err := uc.Apply(ctx, evt)

		require.NoError(t, err)
		assert.Equal(t, personDomain.OperationDelete, outcome.Operation)
		assert.Equal(t, personDomain.StatusInactive, outcome.Person.Status)
		assert.Equal(t, "2024-05-31", outcome.Person.TerminationDate.String())
		assert.Equal(t, personDomain.IntegrationPending, outcome.Person.IntegrationStatus)
		assert.Equal(t, 2, outcome.Person.Version)
		assert.Equal(t, "12345678901", outcome.Person.NationalID)
	})

	t.Run("Success_DefaultsTerminationToToday", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		_, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))
		require.NoError(t, err)

		outcome, err := uc.Apply(ctx, workerEvent(eventDomain.KindDelete, "EMP001", "12345678901"))

		require.NoError(t, err)
		assert.Equal(t, "2024-06-01", outcome.Person.TerminationDate.String())
	})

	t.Run("Success_InactivePersonIsNoOp", func(t *testing.T) {
		repo := newMemoryPersonRepository()
		uc := NewReconcileUseCase(repo, discardLogger(), testClock)

		_, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))
		require.NoError(t, err)
		_, err = uc.Apply(ctx, workerEvent(eventDomain.KindDelete, "EMP001", "12345678901"))
		require.NoError(t, err)
		before := repo.persons["EMP001"]

		outcome, err := uc.Apply(ctx, workerEvent(eventDomain.KindDelete, "EMP001", "12345678901"))

		require.NoError(t, err)
		assert.True(t, outcome.NoOp)
		assert.Equal(t, before, repo.persons["EMP001"])
		assert.Len(t, repo.history, 2)
	})
}

func TestReconcileUseCase_VersionMatchesHistoryCount(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryPersonRepository()
	uc := NewReconcileUseCase(repo, discardLogger(), testClock)

	_, err := uc.Apply(ctx, workerEvent(eventDomain.KindCreate, "EMP001", "12345678901"))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = uc.Apply(ctx, workerEvent(eventDomain.KindUpdate, "EMP001", "12345678901"))
		require.NoError(t, err)
	}
	_, err = uc.Apply(ctx, workerEvent(eventDomain.KindDelete, "EMP001", "12345678901"))
	require.NoError(t, err)

	entries, err := uc.History(ctx, "EMP001")
	require.NoError(t, err)

	person := repo.persons["EMP001"]
	assert.Equal(t, 6, person.Version)
	assert.Len(t, entries, person.Version)
	for i, h := range entries {
		assert.Equal(t, i+1, h.Version)
	}
	assert.Equal(t, personDomain.OperationDelete, entries[len(entries)-1].Operation)
}

func TestReconcileUseCase_UnknownKind(t *testing.T) {
	uc := NewReconcileUseCase(newMemoryPersonRepository(), nil, testClock)

	_, err := uc.Apply(context.Background(), workerEvent("MERGE", "EMP001", "12345678901"))

	assert.ErrorIs(t, err, eventDomain.ErrUnknownMutationKind)
}
