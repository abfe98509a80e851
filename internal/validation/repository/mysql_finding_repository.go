package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
)

// MySQLFindingRepository implements Finding persistence for MySQL.
type MySQLFindingRepository struct {
	db *sql.DB
}

// NewMySQLFindingRepository creates a new MySQL Finding repository.
func NewMySQLFindingRepository(db *sql.DB) *MySQLFindingRepository {
	return &MySQLFindingRepository{db: db}
}

// CreateBatch inserts findings using the transaction in ctx when present.
func (m *MySQLFindingRepository) CreateBatch(ctx context.Context, findings []validationDomain.Finding) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO validation_findings (` + findingColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i := range findings {
		f := &findings[i]
		_, err := querier.ExecContext(
			ctx,
			query,
			database.UUIDToBinary(f.ID),
			f.RuleID,
			string(f.Severity),
			f.Message,
			f.Field,
			f.Value,
			f.EventID,
			f.SourceID,
			string(f.Payload),
			f.Topic,
			f.Partition,
			f.Offset,
			database.UUIDToBinary(f.CorrelationID),
			f.CreatedAt,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to create validation finding")
		}
	}

	return nil
}

// List returns findings matching filter, newest first.
func (m *MySQLFindingRepository) List(
	ctx context.Context,
	filter validationDomain.Filter,
	offset, limit int,
) ([]validationDomain.Finding, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any
	if filter.EventID != "" {
		conditions = append(conditions, "event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT ` + findingColumns + ` FROM validation_findings`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list validation findings")
	}
	defer func() {
		_ = rows.Close()
	}()

	findings := make([]validationDomain.Finding, 0)
	for rows.Next() {
		var f validationDomain.Finding
		var id, correlationID []byte
		var severity string
		if err := rows.Scan(
			&id,
			&f.RuleID,
			&severity,
			&f.Message,
			&f.Field,
			&f.Value,
			&f.EventID,
			&f.SourceID,
			&f.Payload,
			&f.Topic,
			&f.Partition,
			&f.Offset,
			&correlationID,
			&f.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan validation finding")
		}
		if f.ID, err = database.UUIDFromBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal finding id")
		}
		if f.CorrelationID, err = database.UUIDFromBinary(correlationID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal correlation id")
		}
		f.Severity = validationDomain.Severity(severity)
		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate validation findings")
	}

	return findings, nil
}

// CountByRule aggregates findings per rule and severity.
func (m *MySQLFindingRepository) CountByRule(ctx context.Context) ([]validationDomain.RuleCount, error) {
	return countByRule(ctx, database.GetTx(ctx, m.db))
}
