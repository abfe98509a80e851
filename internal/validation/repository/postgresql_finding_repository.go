// Package repository provides persistence for validation findings.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	validationDomain "github.com/allisson/workforce-sync/internal/validation/domain"
)

const findingColumns = `id, rule_id, severity, message, field_name, field_value, event_id, source_id,
	payload, topic, partition_no, offset_no, correlation_id, created_at`

// PostgreSQLFindingRepository implements Finding persistence for PostgreSQL.
type PostgreSQLFindingRepository struct {
	db *sql.DB
}

// NewPostgreSQLFindingRepository creates a new PostgreSQL Finding repository.
func NewPostgreSQLFindingRepository(db *sql.DB) *PostgreSQLFindingRepository {
	return &PostgreSQLFindingRepository{db: db}
}

// CreateBatch inserts findings using the transaction in ctx when present.
func (p *PostgreSQLFindingRepository) CreateBatch(ctx context.Context, findings []validationDomain.Finding) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO validation_findings (` + findingColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	for i := range findings {
		f := &findings[i]
		_, err := querier.ExecContext(
			ctx,
			query,
			f.ID,
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
			f.CorrelationID,
			f.CreatedAt,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to create validation finding")
		}
	}

	return nil
}

// List returns findings matching filter, newest first.
func (p *PostgreSQLFindingRepository) List(
	ctx context.Context,
	filter validationDomain.Filter,
	offset, limit int,
) ([]validationDomain.Finding, error) {
	querier := database.GetTx(ctx, p.db)

	var conditions []string
	var args []any
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)))
	}
	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + findingColumns + ` FROM validation_findings`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

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
		var severity string
		if err := rows.Scan(
			&f.ID,
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
			&f.CorrelationID,
			&f.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan validation finding")
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
func (p *PostgreSQLFindingRepository) CountByRule(ctx context.Context) ([]validationDomain.RuleCount, error) {
	return countByRule(ctx, database.GetTx(ctx, p.db))
}

func countByRule(ctx context.Context, querier database.Querier) ([]validationDomain.RuleCount, error) {
	query := `SELECT rule_id, severity, COUNT(*)
			  FROM validation_findings
			  GROUP BY rule_id, severity
			  ORDER BY COUNT(*) DESC, rule_id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count validation findings")
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make([]validationDomain.RuleCount, 0)
	for rows.Next() {
		var c validationDomain.RuleCount
		var severity string
		if err := rows.Scan(&c.RuleID, &severity, &c.Count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan validation finding count")
		}
		c.Severity = validationDomain.Severity(severity)
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate validation finding counts")
	}

	return counts, nil
}
