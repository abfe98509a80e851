package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/workforce-sync/internal/database"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
)

func TestMySQLDeadLetterRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	dl := newDeadLetter()
	mock.ExpectExec("INSERT INTO dead_letters").
		WithArgs(database.UUIDToBinary(dl.ID), "evt-1", "DELETE", "Y", string(dl.Payload), dl.ErrorMessage,
			dl.StackTrace, 0, 5, "PENDING", "worker.delete", 2, int64(17), database.UUIDToBinary(dl.CorrelationID),
			dl.CreatedAt, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewMySQLDeadLetterRepository(db)
	require.NoError(t, repo.Create(context.Background(), dl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDeadLetterRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	dl := newDeadLetter()
	dl.RecordFailure(nil, time.Now().UTC())

	mock.ExpectExec("UPDATE dead_letters").
		WithArgs(string(dl.Payload), dl.ErrorMessage, 1, "PENDING", dl.LastRetryAt, nil, nil,
			database.UUIDToBinary(dl.ID)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMySQLDeadLetterRepository(db)
	require.NoError(t, repo.Update(context.Background(), dl))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDeadLetterRepository_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		dl := newDeadLetter()
		rows := sqlmock.NewRows(deadLetterRowColumns).
			AddRow(deadLetterRow(dl, database.UUIDToBinary(dl.ID), database.UUIDToBinary(dl.CorrelationID))...)
		mock.ExpectQuery(`FROM dead_letters WHERE id = \?$`).
			WithArgs(database.UUIDToBinary(dl.ID)).
			WillReturnRows(rows)

		repo := NewMySQLDeadLetterRepository(db)
		got, err := repo.Get(context.Background(), dl.ID)

		require.NoError(t, err)
		assert.Equal(t, dl.ID, got.ID)
		assert.Equal(t, dl.CorrelationID, got.CorrelationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectQuery("FROM dead_letters").WillReturnRows(sqlmock.NewRows(deadLetterRowColumns))

		repo := NewMySQLDeadLetterRepository(db)
		_, err = repo.GetForUpdate(context.Background(), newDeadLetter().ID)
		assert.ErrorIs(t, err, deadLetterDomain.ErrDeadLetterNotFound)
	})
}

func TestMySQLDeadLetterRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	dl := newDeadLetter()
	rows := sqlmock.NewRows(deadLetterRowColumns).
		AddRow(deadLetterRow(dl, database.UUIDToBinary(dl.ID), database.UUIDToBinary(dl.CorrelationID))...)

	mock.ExpectQuery(`WHERE status = \? ORDER BY created_at DESC, id DESC LIMIT \? OFFSET \?`).
		WithArgs("FAILED", 10, 0).
		WillReturnRows(rows)

	repo := NewMySQLDeadLetterRepository(db)
	got, err := repo.List(context.Background(), deadLetterDomain.Filter{Status: deadLetterDomain.StatusFailed}, 0, 10)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDeadLetterRepository_ListRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	mock.ExpectQuery(`WHERE status = \? AND retry_count < max_retries`).
		WithArgs("PENDING", 100).
		WillReturnRows(sqlmock.NewRows(deadLetterRowColumns))

	repo := NewMySQLDeadLetterRepository(db)
	got, err := repo.ListRetryable(context.Background(), 100)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
