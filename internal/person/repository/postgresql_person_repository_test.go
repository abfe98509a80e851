package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

var personRowColumns = []string{
	"id", "source_id", "national_id", "secondary_id", "labor_card", "registration_number", "full_name",
	"birth_date", "admission_date", "termination_date", "job_title", "department", "category", "contract_type",
	"occupation_code", "salary_cents", "status", "integration_status", "version", "created_at", "created_by",
	"updated_at", "updated_by", "topic", "partition_no", "offset_no", "correlation_id",
}

var historyRowColumns = []string{
	"id", "person_id", "source_id", "national_id", "secondary_id", "labor_card", "registration_number",
	"full_name", "birth_date", "admission_date", "termination_date", "job_title", "department", "category",
	"contract_type", "occupation_code", "salary_cents", "status", "version", "operation", "changed_at",
	"changed_by", "offset_no", "correlation_id",
}

func newPerson() personDomain.Person {
	birth := eventDomain.NewDate(1994, time.January, 15)
	admission := eventDomain.NewDate(2020, time.March, 1)
	salary := eventDomain.MustMoney("5000")

	evt := eventDomain.ChangeEvent{
		EventID:       "evt-1",
		Kind:          eventDomain.KindCreate,
		CorrelationID: uuid.Must(uuid.NewV7()),
		WorkerSnapshot: eventDomain.WorkerSnapshot{
			SourceID:       "EMP001",
			NationalID:     "12345678901",
			FullName:       "Maria Silva",
			BirthDate:      &birth,
			AdmissionDate:  &admission,
			Category:       "101",
			ContractType:   "123",
			OccupationCode: "252105",
			Salary:         &salary,
			Status:         eventDomain.WorkerActive,
		},
	}.WithProvenance(eventDomain.Provenance{Topic: "worker.create", Partition: 0, Offset: 3})

	return personDomain.NewPerson(evt, "consumer", time.Now().UTC())
}

func personRow(p personDomain.Person, id, correlationID driver.Value) []driver.Value {
	return []driver.Value{
		id, p.SourceID, p.NationalID, p.SecondaryID, p.LaborCard, p.RegistrationNumber, p.FullName,
		p.BirthDate.Time, p.AdmissionDate.Time, nil, p.JobTitle, p.Department, p.Category, p.ContractType,
		p.OccupationCode, int64(*p.Salary), string(p.Status), string(p.IntegrationStatus), p.Version,
		p.CreatedAt, p.CreatedBy, p.UpdatedAt, p.UpdatedBy, p.Topic, p.Partition, p.Offset, correlationID,
	}
}

func TestPostgreSQLPersonRepository_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		p := newPerson()
		mock.ExpectExec("INSERT INTO persons").
			WithArgs(p.ID, "EMP001", "12345678901", "", "", "", "Maria Silva",
				p.BirthDate.Time, p.AdmissionDate.Time, nil, "", "", "101", "123", "252105", int64(500000),
				"ACTIVE", "PENDING", 1, p.CreatedAt, "consumer", p.UpdatedAt, "consumer",
				"worker.create", 0, int64(3), p.CorrelationID).
			WillReturnResult(sqlmock.NewResult(1, 1))

		repo := NewPostgreSQLPersonRepository(db)
		require.NoError(t, repo.Create(context.Background(), &p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_DuplicateIsConflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec("INSERT INTO persons").WillReturnError(&pq.Error{Code: "23505"})

		p := newPerson()
		repo := NewPostgreSQLPersonRepository(db)
		err = repo.Create(context.Background(), &p)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.ErrorContains(t, err, "EMP001")
	})
}

func TestPostgreSQLPersonRepository_Update(t *testing.T) {
	t.Run("Success_GuardsPreviousVersion", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		p := newPerson()
		p.Version = 3
		args := make([]driver.Value, 25)
		for i := range args {
			args[i] = sqlmock.AnyArg()
		}
		args[0] = p.ID
		args[17] = 3
		args[24] = 2

		mock.ExpectExec("UPDATE persons SET").WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLPersonRepository(db)
		require.NoError(t, repo.Update(context.Background(), &p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_StaleVersionIsConflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectExec("UPDATE persons SET").WillReturnResult(sqlmock.NewResult(0, 0))

		p := newPerson()
		p.Version = 2
		repo := NewPostgreSQLPersonRepository(db)
		err = repo.Update(context.Background(), &p)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.ErrorContains(t, err, "expected version 1")
	})
}

func TestPostgreSQLPersonRepository_GetBySourceID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		p := newPerson()
		mock.ExpectQuery("FROM persons WHERE source_id").
			WithArgs("EMP001").
			WillReturnRows(sqlmock.NewRows(personRowColumns).
				AddRow(personRow(p, p.ID.String(), p.CorrelationID.String())...))

		repo := NewPostgreSQLPersonRepository(db)
		got, err := repo.GetBySourceID(context.Background(), "EMP001")

		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, personDomain.StatusActive, got.Status)
		assert.Equal(t, personDomain.IntegrationPending, got.IntegrationStatus)
		assert.Equal(t, "5000.00", got.Salary.String())
		assert.Equal(t, "2020-03-01", got.AdmissionDate.String())
		assert.Nil(t, got.TerminationDate)
		assert.Equal(t, 1, got.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFoundNamesSourceID", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectQuery("FROM persons WHERE source_id").
			WithArgs("Y").
			WillReturnRows(sqlmock.NewRows(personRowColumns))

		repo := NewPostgreSQLPersonRepository(db)
		_, err = repo.GetBySourceID(context.Background(), "Y")

		assert.ErrorIs(t, err, personDomain.ErrPersonNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.ErrorContains(t, err, "Y")
	})
}

func TestPostgreSQLPersonRepository_CountByKeyExcluding(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM persons WHERE national_id = \$1 AND source_id <> \$2`).
			WithArgs("12345678901", "EMP002").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		repo := NewPostgreSQLPersonRepository(db)
		count, err := repo.CountByKeyExcluding(context.Background(), personDomain.KeyNationalID, "12345678901", "EMP002")

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_UnknownKey", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		repo := NewPostgreSQLPersonRepository(db)
		_, err = repo.CountByKeyExcluding(context.Background(), personDomain.NaturalKey("full_name; DROP"), "x", "y")

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestPostgreSQLPersonRepository_History(t *testing.T) {
	t.Run("AppendHistory", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		h := personDomain.NewHistory(newPerson(), personDomain.OperationInsert)
		args := make([]driver.Value, 24)
		for i := range args {
			args[i] = sqlmock.AnyArg()
		}
		args[0] = h.ID
		args[1] = h.PersonID
		args[18] = 1
		args[19] = "INSERT"

		mock.ExpectExec("INSERT INTO person_history").WithArgs(args...).WillReturnResult(sqlmock.NewResult(1, 1))

		repo := NewPostgreSQLPersonRepository(db)
		require.NoError(t, repo.AppendHistory(context.Background(), &h))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListHistory", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		p := newPerson()
		rows := sqlmock.NewRows(historyRowColumns)
		for version, op := range []string{"INSERT", "UPDATE"} {
			rows.AddRow(
				uuid.Must(uuid.NewV7()).String(), p.ID.String(), p.SourceID, p.NationalID, "", "", "",
				p.FullName, p.BirthDate.Time, p.AdmissionDate.Time, nil, "", "", "101", "123", "252105",
				int64(500000), "ACTIVE", version+1, op, p.UpdatedAt, "consumer", int64(version), p.CorrelationID.String(),
			)
		}
		mock.ExpectQuery("FROM person_history WHERE source_id = \\$1 ORDER BY version ASC").
			WithArgs("EMP001").
			WillReturnRows(rows)

		repo := NewPostgreSQLPersonRepository(db)
		entries, err := repo.ListHistory(context.Background(), "EMP001")

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, personDomain.OperationInsert, entries[0].Operation)
		assert.Equal(t, 2, entries[1].Version)
		assert.Equal(t, p.ID, entries[1].PersonID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListHistory_QueryError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck

		mock.ExpectQuery("FROM person_history").WillReturnError(errors.New("timeout"))

		repo := NewPostgreSQLPersonRepository(db)
		_, err = repo.ListHistory(context.Background(), "EMP001")
		assert.ErrorContains(t, err, "failed to list person history")
	})
}
