// Package repository reads modified worker rows from the source store and
// keeps the change detector's checkpoint.
package repository

import (
	"context"
	"database/sql"
	"time"

	cdcDomain "github.com/allisson/workforce-sync/internal/cdc/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

// Nullable text columns are coalesced so they scan into plain strings.
const sourceColumns = `employee_id, COALESCE(cpf, ''), COALESCE(pis, ''), COALESCE(ctps, ''),
	COALESCE(matricula, ''), COALESCE(full_name, ''), birth_date, COALESCE(sex, ''),
	COALESCE(nationality, ''), COALESCE(marital_status, ''), COALESCE(race, ''),
	COALESCE(education_level, ''), COALESCE(disability, ''), COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(zip_code, ''), COALESCE(uf, ''), admission_date, termination_date, COALESCE(job_title, ''),
	COALESCE(department, ''), COALESCE(category, ''), COALESCE(contract_type, ''), COALESCE(cbo, ''),
	salary, COALESCE(status, ''), created_at, updated_at`

// PostgreSQLSourceRepository reads the source employees table on PostgreSQL.
type PostgreSQLSourceRepository struct {
	db *sql.DB
}

// NewPostgreSQLSourceRepository creates a new PostgreSQL source repository.
func NewPostgreSQLSourceRepository(db *sql.DB) *PostgreSQLSourceRepository {
	return &PostgreSQLSourceRepository{db: db}
}

// FindModifiedAfter returns rows whose updated_at is after the given time, oldest first.
func (p *PostgreSQLSourceRepository) FindModifiedAfter(
	ctx context.Context,
	after time.Time,
) ([]cdcDomain.SourceRow, error) {
	query := `SELECT ` + sourceColumns + `
			  FROM employees
			  WHERE updated_at > $1
			  ORDER BY updated_at ASC, employee_id ASC`

	rows, err := p.db.QueryContext(ctx, query, after)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, "failed to query source employees: "+err.Error())
	}
	return scanSourceRows(rows)
}

func scanSourceRows(rows *sql.Rows) ([]cdcDomain.SourceRow, error) {
	defer func() {
		_ = rows.Close()
	}()

	out := make([]cdcDomain.SourceRow, 0)
	for rows.Next() {
		var row cdcDomain.SourceRow
		var salary sql.NullString
		s := &row.WorkerSnapshot

		if err := rows.Scan(
			&s.SourceID,
			&s.NationalID,
			&s.SecondaryID,
			&s.LaborCard,
			&s.RegistrationNumber,
			&s.FullName,
			&s.BirthDate,
			&s.Sex,
			&s.Nationality,
			&s.MaritalStatus,
			&s.Race,
			&s.EducationLevel,
			&s.Disability,
			&s.Email,
			&s.Phone,
			&s.ZipCode,
			&s.StateCode,
			&s.AdmissionDate,
			&s.TerminationDate,
			&s.JobTitle,
			&s.Department,
			&s.Category,
			&s.ContractType,
			&s.OccupationCode,
			&salary,
			&s.Status,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan source employee")
		}

		if salary.Valid {
			money, err := eventDomain.ParseMoney(salary.String)
			if err != nil {
				return nil, apperrors.Wrapf(err, "employee %s", s.SourceID)
			}
			s.Salary = &money
		}

		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate source employees")
	}

	return out, nil
}
