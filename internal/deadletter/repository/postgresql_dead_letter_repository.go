// Package repository provides persistence for dead letters.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/workforce-sync/internal/database"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
)

const deadLetterColumns = `id, event_id, kind, source_id, payload, error_message, stack_trace, retry_count,
	max_retries, status, topic, partition_no, offset_no, correlation_id, created_at, last_retry_at,
	resolved_at, resolved_by`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLDeadLetterRepository implements DeadLetter persistence for PostgreSQL.
type PostgreSQLDeadLetterRepository struct {
	db *sql.DB
}

// NewPostgreSQLDeadLetterRepository creates a new PostgreSQL DeadLetter repository.
func NewPostgreSQLDeadLetterRepository(db *sql.DB) *PostgreSQLDeadLetterRepository {
	return &PostgreSQLDeadLetterRepository{db: db}
}

// Create inserts a dead letter.
func (p *PostgreSQLDeadLetterRepository) Create(ctx context.Context, dl *deadLetterDomain.DeadLetter) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO dead_letters (` + deadLetterColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := querier.ExecContext(
		ctx,
		query,
		dl.ID,
		dl.EventID,
		dl.Kind,
		dl.SourceID,
		string(dl.Payload),
		dl.ErrorMessage,
		dl.StackTrace,
		dl.RetryCount,
		dl.MaxRetries,
		string(dl.Status),
		dl.Topic,
		dl.Partition,
		dl.Offset,
		dl.CorrelationID,
		dl.CreatedAt,
		dl.LastRetryAt,
		dl.ResolvedAt,
		dl.ResolvedBy,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create dead letter")
	}

	return nil
}

// Update persists the retry bookkeeping of a dead letter.
func (p *PostgreSQLDeadLetterRepository) Update(ctx context.Context, dl *deadLetterDomain.DeadLetter) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE dead_letters
			  SET payload = $1, error_message = $2, retry_count = $3, status = $4,
			      last_retry_at = $5, resolved_at = $6, resolved_by = $7
			  WHERE id = $8`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(dl.Payload),
		dl.ErrorMessage,
		dl.RetryCount,
		string(dl.Status),
		dl.LastRetryAt,
		dl.ResolvedAt,
		dl.ResolvedBy,
		dl.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update dead letter")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return deadLetterDomain.ErrDeadLetterNotFound
	}

	return nil
}

// Get returns a dead letter by id.
func (p *PostgreSQLDeadLetterRepository) Get(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters WHERE id = $1`

	return p.get(querier.QueryRowContext(ctx, query, id))
}

// GetForUpdate returns a dead letter by id and locks its row until the
// surrounding transaction ends.
func (p *PostgreSQLDeadLetterRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters WHERE id = $1 FOR UPDATE`

	return p.get(querier.QueryRowContext(ctx, query, id))
}

func (p *PostgreSQLDeadLetterRepository) get(row rowScanner) (*deadLetterDomain.DeadLetter, error) {
	dl, err := p.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deadLetterDomain.ErrDeadLetterNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get dead letter")
	}
	return dl, nil
}

// ListRetryable returns PENDING dead letters with retries left, oldest first.
func (p *PostgreSQLDeadLetterRepository) ListRetryable(
	ctx context.Context,
	limit int,
) ([]*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + deadLetterColumns + `
			  FROM dead_letters
			  WHERE status = $1 AND retry_count < max_retries
			  ORDER BY created_at ASC
			  LIMIT $2`

	return p.list(ctx, querier, query, string(deadLetterDomain.StatusPending), limit)
}

// List returns dead letters matching filter, newest first.
func (p *PostgreSQLDeadLetterRepository) List(
	ctx context.Context,
	filter deadLetterDomain.Filter,
	offset, limit int,
) ([]*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, p.db)

	var conditions []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EventID != "" {
		args = append(args, filter.EventID)
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)))
	}

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return p.list(ctx, querier, query, args...)
}

func (p *PostgreSQLDeadLetterRepository) list(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*deadLetterDomain.DeadLetter, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer func() {
		_ = rows.Close()
	}()

	deadLetters := make([]*deadLetterDomain.DeadLetter, 0)
	for rows.Next() {
		dl, err := p.scan(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter")
		}
		deadLetters = append(deadLetters, dl)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letters")
	}

	return deadLetters, nil
}

func (p *PostgreSQLDeadLetterRepository) scan(row rowScanner) (*deadLetterDomain.DeadLetter, error) {
	var dl deadLetterDomain.DeadLetter
	var status string

	err := row.Scan(
		&dl.ID,
		&dl.EventID,
		&dl.Kind,
		&dl.SourceID,
		&dl.Payload,
		&dl.ErrorMessage,
		&dl.StackTrace,
		&dl.RetryCount,
		&dl.MaxRetries,
		&status,
		&dl.Topic,
		&dl.Partition,
		&dl.Offset,
		&dl.CorrelationID,
		&dl.CreatedAt,
		&dl.LastRetryAt,
		&dl.ResolvedAt,
		&dl.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}

	dl.Status = deadLetterDomain.Status(status)
	return &dl, nil
}
