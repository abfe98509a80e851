// Package repository provides persistence for event processing records.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

const eventRecordColumns = `id, event_id, source_id, kind, topic, partition_no, offset_no, correlation_id,
	status, payload, validation_status, error_count, warning_count, validated_at,
	processing_started_at, processing_finished_at, processing_duration_ms, integration_outcome,
	retry_count, last_retry_at, next_retry_at, person_id, error_message, received_at, updated_at`

// PostgreSQLEventRecordRepository implements EventRecord persistence for PostgreSQL.
type PostgreSQLEventRecordRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRecordRepository creates a new PostgreSQL EventRecord repository.
func NewPostgreSQLEventRecordRepository(db *sql.DB) *PostgreSQLEventRecordRepository {
	return &PostgreSQLEventRecordRepository{db: db}
}

// Create inserts a new event record.
func (p *PostgreSQLEventRecordRepository) Create(ctx context.Context, rec *eventDomain.EventRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO event_records (` + eventRecordColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			          $20, $21, $22, $23, $24, $25)`

	_, err := querier.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.EventID,
		rec.SourceID,
		string(rec.Kind),
		rec.Topic,
		rec.Partition,
		rec.Offset,
		rec.CorrelationID,
		string(rec.Status),
		string(rec.Payload),
		string(rec.ValidationStatus),
		rec.ErrorCount,
		rec.WarningCount,
		rec.ValidatedAt,
		rec.ProcessingStartedAt,
		rec.ProcessingFinishedAt,
		durationToMillis(rec.ProcessingDuration),
		rec.IntegrationOutcome,
		rec.RetryCount,
		rec.LastRetryAt,
		rec.NextRetryAt,
		rec.PersonID,
		rec.ErrorMessage,
		rec.ReceivedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "event record already exists")
		}
		return apperrors.Wrap(err, "failed to create event record")
	}

	return nil
}

// Update persists the mutable fields of an event record.
func (p *PostgreSQLEventRecordRepository) Update(ctx context.Context, rec *eventDomain.EventRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE event_records
			  SET status = $1, validation_status = $2, error_count = $3, warning_count = $4,
			      validated_at = $5, processing_started_at = $6, processing_finished_at = $7,
			      processing_duration_ms = $8, integration_outcome = $9, retry_count = $10,
			      last_retry_at = $11, next_retry_at = $12, person_id = $13, error_message = $14,
			      updated_at = $15, payload = $16
			  WHERE id = $17`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(rec.Status),
		string(rec.ValidationStatus),
		rec.ErrorCount,
		rec.WarningCount,
		rec.ValidatedAt,
		rec.ProcessingStartedAt,
		rec.ProcessingFinishedAt,
		durationToMillis(rec.ProcessingDuration),
		rec.IntegrationOutcome,
		rec.RetryCount,
		rec.LastRetryAt,
		rec.NextRetryAt,
		rec.PersonID,
		rec.ErrorMessage,
		rec.UpdatedAt,
		string(rec.Payload),
		rec.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update event record")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return eventDomain.ErrEventRecordNotFound
	}

	return nil
}

// GetByEventID returns the most recent record for an event id.
func (p *PostgreSQLEventRecordRepository) GetByEventID(
	ctx context.Context,
	eventID string,
) (*eventDomain.EventRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + eventRecordColumns + `
			  FROM event_records
			  WHERE event_id = $1
			  ORDER BY received_at DESC
			  LIMIT 1`

	var rec eventDomain.EventRecord
	var kind, status, validationStatus string
	var durationMs sql.NullInt64

	err := querier.QueryRowContext(ctx, query, eventID).Scan(
		&rec.ID,
		&rec.EventID,
		&rec.SourceID,
		&kind,
		&rec.Topic,
		&rec.Partition,
		&rec.Offset,
		&rec.CorrelationID,
		&status,
		&rec.Payload,
		&validationStatus,
		&rec.ErrorCount,
		&rec.WarningCount,
		&rec.ValidatedAt,
		&rec.ProcessingStartedAt,
		&rec.ProcessingFinishedAt,
		&durationMs,
		&rec.IntegrationOutcome,
		&rec.RetryCount,
		&rec.LastRetryAt,
		&rec.NextRetryAt,
		&rec.PersonID,
		&rec.ErrorMessage,
		&rec.ReceivedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventDomain.ErrEventRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get event record")
	}

	rec.Kind = eventDomain.MutationKind(kind)
	rec.Status = eventDomain.EventStatus(status)
	rec.ValidationStatus = eventDomain.ValidationStatus(validationStatus)
	rec.ProcessingDuration = millisToDuration(durationMs)

	return &rec, nil
}

func durationToMillis(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return d.Milliseconds()
}

func millisToDuration(ms sql.NullInt64) *time.Duration {
	if !ms.Valid {
		return nil
	}
	d := time.Duration(ms.Int64) * time.Millisecond
	return &d
}
