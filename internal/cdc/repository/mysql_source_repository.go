package repository

import (
	"context"
	"database/sql"
	"time"

	cdcDomain "github.com/allisson/workforce-sync/internal/cdc/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
)

// MySQLSourceRepository reads the source employees table on MySQL.
type MySQLSourceRepository struct {
	db *sql.DB
}

// NewMySQLSourceRepository creates a new MySQL source repository.
func NewMySQLSourceRepository(db *sql.DB) *MySQLSourceRepository {
	return &MySQLSourceRepository{db: db}
}

// FindModifiedAfter returns rows whose updated_at is after the given time, oldest first.
func (m *MySQLSourceRepository) FindModifiedAfter(
	ctx context.Context,
	after time.Time,
) ([]cdcDomain.SourceRow, error) {
	query := `SELECT ` + sourceColumns + `
			  FROM employees
			  WHERE updated_at > ?
			  ORDER BY updated_at ASC, employee_id ASC`

	rows, err := m.db.QueryContext(ctx, query, after)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, "failed to query source employees: "+err.Error())
	}
	return scanSourceRows(rows)
}
