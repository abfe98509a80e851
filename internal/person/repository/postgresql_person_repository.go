// Package repository provides persistence for reconciled persons and their history.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	personDomain "github.com/allisson/workforce-sync/internal/person/domain"
)

const personColumns = `id, source_id, national_id, secondary_id, labor_card, registration_number, full_name,
	birth_date, admission_date, termination_date, job_title, department, category, contract_type,
	occupation_code, salary_cents, status, integration_status, version, created_at, created_by,
	updated_at, updated_by, topic, partition_no, offset_no, correlation_id`

const historyColumns = `id, person_id, source_id, national_id, secondary_id, labor_card, registration_number,
	full_name, birth_date, admission_date, termination_date, job_title, department, category,
	contract_type, occupation_code, salary_cents, status, version, operation, changed_at, changed_by,
	offset_no, correlation_id`

// keyColumns maps natural keys to their column. Only these names reach SQL text.
var keyColumns = map[personDomain.NaturalKey]string{
	personDomain.KeyNationalID:         "national_id",
	personDomain.KeySecondaryID:        "secondary_id",
	personDomain.KeyRegistrationNumber: "registration_number",
	personDomain.KeyLaborCard:          "labor_card",
}

func keyColumn(key personDomain.NaturalKey) (string, error) {
	column, ok := keyColumns[key]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown natural key %q", key)
	}
	return column, nil
}

// PostgreSQLPersonRepository implements Person persistence for PostgreSQL.
type PostgreSQLPersonRepository struct {
	db *sql.DB
}

// NewPostgreSQLPersonRepository creates a new PostgreSQL Person repository.
func NewPostgreSQLPersonRepository(db *sql.DB) *PostgreSQLPersonRepository {
	return &PostgreSQLPersonRepository{db: db}
}

// Create inserts version 1 of a person. A duplicate source id is a conflict.
func (p *PostgreSQLPersonRepository) Create(ctx context.Context, person *personDomain.Person) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO persons (` + personColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			          $20, $21, $22, $23, $24, $25, $26, $27)`

	_, err := querier.ExecContext(
		ctx,
		query,
		person.ID,
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
		person.CorrelationID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrConflict, "person %s already exists", person.SourceID)
		}
		return apperrors.Wrap(err, "failed to create person")
	}

	return nil
}

// Update writes the next version of a person. The stored row must still hold
// the previous version, otherwise a concurrent writer won and ErrConflict is returned.
func (p *PostgreSQLPersonRepository) Update(ctx context.Context, person *personDomain.Person) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE persons SET national_id = $2, secondary_id = $3, labor_card = $4,
			  registration_number = $5, full_name = $6, birth_date = $7, admission_date = $8,
			  termination_date = $9, job_title = $10, department = $11, category = $12, contract_type = $13,
			  occupation_code = $14, salary_cents = $15, status = $16, integration_status = $17, version = $18,
			  updated_at = $19, updated_by = $20, topic = $21, partition_no = $22, offset_no = $23,
			  correlation_id = $24
			  WHERE id = $1 AND version = $25`

	result, err := querier.ExecContext(
		ctx,
		query,
		person.ID,
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
		person.CorrelationID,
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

func checkVersionedUpdate(result sql.Result, person *personDomain.Person) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return apperrors.Wrapf(
			apperrors.ErrConflict,
			"person %s changed concurrently, expected version %d",
			person.SourceID,
			person.Version-1,
		)
	}
	return nil
}

// GetBySourceID returns the person with the given external id.
func (p *PostgreSQLPersonRepository) GetBySourceID(
	ctx context.Context,
	sourceID string,
) (*personDomain.Person, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + personColumns + ` FROM persons WHERE source_id = $1`

	var person personDomain.Person
	var status, integrationStatus string
	err := querier.QueryRowContext(ctx, query, sourceID).Scan(
		&person.ID,
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
		&person.CorrelationID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrapf(personDomain.ErrPersonNotFound, "source id %s", sourceID)
		}
		return nil, apperrors.Wrap(err, "failed to get person")
	}
	person.Status = personDomain.Status(status)
	person.IntegrationStatus = personDomain.IntegrationStatus(integrationStatus)

	return &person, nil
}

// CountByKeyExcluding counts persons other than sourceID holding value under key.
func (p *PostgreSQLPersonRepository) CountByKeyExcluding(
	ctx context.Context,
	key personDomain.NaturalKey,
	value, sourceID string,
) (int64, error) {
	column, err := keyColumn(key)
	if err != nil {
		return 0, err
	}

	querier := database.GetTx(ctx, p.db)
	query := `SELECT COUNT(*) FROM persons WHERE ` + column + ` = $1 AND source_id <> $2`

	var count int64
	if err := querier.QueryRowContext(ctx, query, value, sourceID).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count persons by key")
	}
	return count, nil
}

// AppendHistory inserts an immutable history entry.
func (p *PostgreSQLPersonRepository) AppendHistory(ctx context.Context, h *personDomain.History) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO person_history (` + historyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			          $20, $21, $22, $23, $24)`

	_, err := querier.ExecContext(
		ctx,
		query,
		h.ID,
		h.PersonID,
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
		h.CorrelationID,
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
func (p *PostgreSQLPersonRepository) ListHistory(
	ctx context.Context,
	sourceID string,
) ([]personDomain.History, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + historyColumns + ` FROM person_history WHERE source_id = $1 ORDER BY version ASC`

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
		var status, operation string
		if err := rows.Scan(
			&h.ID,
			&h.PersonID,
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
			&h.CorrelationID,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan person history")
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
