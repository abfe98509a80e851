package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

// MySQLPersonRepository implements Person persistence for MySQL.
type MySQLPersonRepository struct {
	db *sql.DB
}

// NewMySQLPersonRepository creates a new MySQL Person repository.
func NewMySQLPersonRepository(db *sql.DB) *MySQLPersonRepository {
	return &MySQLPersonRepository{db: db}
}

// Create inserts version 1 of a person. A duplicate source id is a conflict.
func (m *MySQLPersonRepository) Create(ctx context.Context, person *personDomain.Person) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO persons (` + personColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.UUIDToBinary(person.ID),
		person.SourceID,
		person.NationalID,
		person.SecondaryID,
		person.LaborCard,
		person.RegistrationNumber,
		person.FullName,
		person.BirthDate,
		person.AdmissionDate,
		person.TerminationDate,
		person.JobTitle,
		person.Department,
		person.Category,
		person.ContractType,
		person.OccupationCode,
		person.Salary,
		string(person.Status),
		string(person.IntegrationStatus),
		person.Version,
		person.CreatedAt,
		person.CreatedBy,
		person.UpdatedAt,
		person.UpdatedBy,
		person.Topic,
		person.Partition,
		person.Offset,
		database.UUIDToBinary(person.CorrelationID),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "person %s already exists", person.SourceID)
		}
		return apperrors.Wrap(err, "failed to create person")
	}

	return nil
}

// Update writes the next version of a person guarded by the previous version.
func (m *MySQLPersonRepository) Update(ctx context.Context, person *personDomain.Person) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE persons SET national_id = ?, secondary_id = ?, labor_card = ?,
			  registration_number = ?, full_name = ?, birth_date = ?, admission_date = ?,
			  termination_date = ?, job_title = ?, department = ?, category = ?, contract_type = ?,
			  occupation_code = ?, salary_cents = ?, status = ?, integration_status = ?, version = ?,
			  updated_at = ?, updated_by = ?, topic = ?, partition_no = ?, offset_no = ?,
			  correlation_id = ?
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		person.NationalID,
		person.SecondaryID,
		person.LaborCard,
		person.RegistrationNumber,
		person.FullName,
		person.BirthDate,
		person.AdmissionDate,
		person.TerminationDate,
		person.JobTitle,
		person.Department,
		person.Category,
		person.ContractType,
		person.OccupationCode,
		person.Salary,
		string(person.Status),
		string(person.IntegrationStatus),
		person.Version,
		person.UpdatedAt,
		person.UpdatedBy,
		person.Topic,
		person.Partition,
		person.Offset,
		database.UUIDToBinary(person.CorrelationID),
		database.UUIDToBinary(person.ID),
		person.Version-1,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "person %s violates a unique key", person.SourceID)
		}
		return apperrors.Wrap(err, "failed to update person")
	}

	return checkVersionedUpdate(result, person)
}

// GetBySourceID returns the person with the given external id.
func (m *MySQLPersonRepository) GetBySourceID(
	ctx context.Context,
	sourceID string,
) (*personDomain.Person, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + personColumns + ` FROM persons WHERE source_id = ?`

	var person personDomain.Person
	var id, correlationID []byte
	var status, integrationStatus string
	err := querier.QueryRowContext(ctx, query, sourceID).Scan(
		&id,
		&person.SourceID,
		&person.NationalID,
		&person.SecondaryID,
		&person.LaborCard,
		&person.RegistrationNumber,
		&person.FullName,
		&person.BirthDate,
		&person.AdmissionDate,
		&person.TerminationDate,
		&person.JobTitle,
		&person.Department,
		&person.Category,
		&person.ContractType,
		&person.OccupationCode,
		&person.Salary,
		&status,
		&integrationStatus,
		&person.Version,
		&person.CreatedAt,
		&person.CreatedBy,
		&person.UpdatedAt,
		&person.UpdatedBy,
		&person.Topic,
		&person.Partition,
		&person.Offset,
		&correlationID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrapf(personDomain.ErrPersonNotFound, "source id %s", sourceID)
		}
		return nil, apperrors.Wrap(err, "failed to get person")
	}

	if person.ID, err = database.UUIDFromBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal person id")
	}
	if person.CorrelationID, err = database.UUIDFromBinary(correlationID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal correlation id")
	}
	person.Status = personDomain.Status(status)
	person.IntegrationStatus = personDomain.IntegrationStatus(integrationStatus)

	return &person, nil
}

// CountByKeyExcluding counts persons other than sourceID holding value under key.
func (m *MySQLPersonRepository) CountByKeyExcluding(
	ctx context.Context,
	key personDomain.NaturalKey,
	value, sourceID string,
) (int64, error) {
	column, err := keyColumn(key)
	if err != nil {
		return 0, err
	}

	querier := database.GetTx(ctx, m.db)
	query := `SELECT COUNT(*) FROM persons WHERE ` + column + ` = ? AND source_id <> ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, value, sourceID).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count persons by key")
	}
	return count, nil
}

// AppendHistory inserts an immutable history entry.
func (m *MySQLPersonRepository) AppendHistory(ctx context.Context, h *personDomain.History) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO person_history (` + historyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.UUIDToBinary(h.ID),
		database.UUIDToBinary(h.PersonID),
		h.SourceID,
		h.NationalID,
		h.SecondaryID,
		h.LaborCard,
		h.RegistrationNumber,
		h.FullName,
		h.BirthDate,
		h.AdmissionDate,
		h.TerminationDate,
		h.JobTitle,
		h.Department,
		h.Category,
		h.ContractType,
		h.OccupationCode,
		h.Salary,
		string(h.Status),
		h.Version,
		string(h.Operation),
		h.ChangedAt,
		h.ChangedBy,
		h.Offset,
		database.UUIDToBinary(h.CorrelationID),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "history version %d already recorded", h.Version)
		}
		return apperrors.Wrap(err, "failed to append person history")
	}

	return nil
}

// ListHistory returns every history entry for a source id, oldest version first.
func (m *MySQLPersonRepository) ListHistory(
	ctx context.Context,
	sourceID string,
) ([]personDomain.History, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + historyColumns + ` FROM person_history WHERE source_id = ? ORDER BY version ASC`

	rows, err := querier.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list person history")
	}
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]personDomain.History, 0)
	for rows.Next() {
		var h personDomain.History
		var id, personID, correlationID []byte
		var status, operation string
		if err := rows.Scan(
			&id,
			&personID,
			&h.SourceID,
			&h.NationalID,
			&h.SecondaryID,
			&h.LaborCard,
			&h.RegistrationNumber,
			&h.FullName,
			&h.BirthDate,
			&h.AdmissionDate,
			&h.TerminationDate,
			&h.JobTitle,
			&h.Department,
			&h.Category,
			&h.ContractType,
			&h.OccupationCode,
			&h.Salary,
			&status,
			&h.Version,
			&operation,
			&h.ChangedAt,
			&h.ChangedBy,
			&h.Offset,
			&correlationID,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan person history")
		}

		var err error
		if h.ID, err = database.UUIDFromBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal history id")
		}
		if h.PersonID, err = database.UUIDFromBinary(personID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal person id")
		}
		if h.CorrelationID, err = database.UUIDFromBinary(correlationID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal correlation id")
		}
		h.Status = personDomain.Status(status)
		h.Operation = personDomain.Operation(operation)
		entries = append(entries, h)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate person history")
	}

	return entries, nil
}
