package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/workforce-sync/internal/database"
	deadLetterDomain "github.com/allisson/workforce-sync/internal/deadletter/domain"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
)

// MySQLDeadLetterRepository implements DeadLetter persistence for MySQL.
type MySQLDeadLetterRepository struct {
	db *sql.DB
}

// NewMySQLDeadLetterRepository creates a new MySQL DeadLetter repository.
func NewMySQLDeadLetterRepository(db *sql.DB) *MySQLDeadLetterRepository {
	return &MySQLDeadLetterRepository{db: db}
}

// Create inserts a dead letter.
func (m *MySQLDeadLetterRepository) Create(ctx context.Context, dl *deadLetterDomain.DeadLetter) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO dead_letters (` + deadLetterColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.UUIDToBinary(dl.ID),
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
		database.UUIDToBinary(dl.CorrelationID),
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
func (m *MySQLDeadLetterRepository) Update(ctx context.Context, dl *deadLetterDomain.DeadLetter) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE dead_letters
			  SET payload = ?, error_message = ?, retry_count = ?, status = ?,
			      last_retry_at = ?, resolved_at = ?, resolved_by = ?
			  WHERE id = ?`

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
		database.UUIDToBinary(dl.ID),
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
func (m *MySQLDeadLetterRepository) Get(ctx context.Context, id uuid.UUID) (*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters WHERE id = ?`

	return m.get(querier.QueryRowContext(ctx, query, database.UUIDToBinary(id)))
}

// GetForUpdate returns a dead letter by id and locks its row until the
// surrounding transaction ends.
func (m *MySQLDeadLetterRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters WHERE id = ? FOR UPDATE`

	return m.get(querier.QueryRowContext(ctx, query, database.UUIDToBinary(id)))
}

func (m *MySQLDeadLetterRepository) get(row rowScanner) (*deadLetterDomain.DeadLetter, error) {
	dl, err := m.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, deadLetterDomain.ErrDeadLetterNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get dead letter")
	}
	return dl, nil
}

// ListRetryable returns PENDING dead letters with retries left, oldest first.
func (m *MySQLDeadLetterRepository) ListRetryable(
	ctx context.Context,
	limit int,
) ([]*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + deadLetterColumns + `
			  FROM dead_letters
			  WHERE status = ? AND retry_count < max_retries
			  ORDER BY created_at ASC
			  LIMIT ?`

	return m.list(ctx, querier, query, string(deadLetterDomain.StatusPending), limit)
}

// List returns dead letters matching filter, newest first.
func (m *MySQLDeadLetterRepository) List(
	ctx context.Context,
	filter deadLetterDomain.Filter,
	offset, limit int,
) ([]*deadLetterDomain.DeadLetter, error) {
	querier := database.GetTx(ctx, m.db)

	var conditions []string
	var args []any
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.EventID != "" {
		conditions = append(conditions, "event_id = ?")
		args = append(args, filter.EventID)
	}

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return m.list(ctx, querier, query, args...)
}

func (m *MySQLDeadLetterRepository) list(
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
		dl, err := m.scan(rows)
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

func (m *MySQLDeadLetterRepository) scan(row rowScanner) (*deadLetterDomain.DeadLetter, error) {
	var dl deadLetterDomain.DeadLetter
	var id, correlationID []byte
	var status string

	err := row.Scan(
		&id,
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
		&correlationID,
		&dl.CreatedAt,
		&dl.LastRetryAt,
		&dl.ResolvedAt,
		&dl.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}

	if dl.ID, err = database.UUIDFromBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal dead letter id")
	}
	if dl.CorrelationID, err = database.UUIDFromBinary(correlationID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal correlation id")
	}
	dl.Status = deadLetterDomain.Status(status)
	return &dl, nil
}
