package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

// MySQLEventRecordRepository implements EventRecord persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLEventRecordRepository struct {
	db *sql.DB
}

// NewMySQLEventRecordRepository creates a new MySQL EventRecord repository.
func NewMySQLEventRecordRepository(db *sql.DB) *MySQLEventRecordRepository {
	return &MySQLEventRecordRepository{db: db}
}

// Create inserts a new event record.
func (m *MySQLEventRecordRepository) Create(ctx context.Context, rec *eventDomain.EventRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO event_records (` + eventRecordColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		database.UUIDToBinary(rec.ID),
		rec.EventID,
		rec.SourceID,
		string(rec.Kind),
		rec.Topic,
		rec.Partition,
		rec.Offset,
		database.UUIDToBinary(rec.CorrelationID),
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
		database.NullableUUIDToBinary(rec.PersonID),
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
func (m *MySQLEventRecordRepository) Update(ctx context.Context, rec *eventDomain.EventRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE event_records
			  SET status = ?, validation_status = ?, error_count = ?, warning_count = ?,
			      validated_at = ?, processing_started_at = ?, processing_finished_at = ?,
			      processing_duration_ms = ?, integration_outcome = ?, retry_count = ?,
			      last_retry_at = ?, next_retry_at = ?, person_id = ?, error_message = ?,
			      updated_at = ?, payload = ?
			  WHERE id = ?`

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
		database.NullableUUIDToBinary(rec.PersonID),
		rec.ErrorMessage,
		rec.UpdatedAt,
		string(rec.Payload),
		database.UUIDToBinary(rec.ID),
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
func (m *MySQLEventRecordRepository) GetByEventID(
	ctx context.Context,
	eventID string,
) (*eventDomain.EventRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + eventRecordColumns + `
			  FROM event_records
			  WHERE event_id = ?
			  ORDER BY received_at DESC
			  LIMIT 1`

	var rec eventDomain.EventRecord
	var id, correlationID, personID []byte
	var kind, status, validationStatus string
	var durationMs sql.NullInt64

	err := querier.QueryRowContext(ctx, query, eventID).Scan(
		&id,
		&rec.EventID,
		&rec.SourceID,
		&kind,
		&rec.Topic,
		&rec.Partition,
		&rec.Offset,
		&correlationID,
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
		&personID,
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

	if rec.ID, err = database.UUIDFromBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal event record id")
	}
	if rec.CorrelationID, err = database.UUIDFromBinary(correlationID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal correlation id")
	}
	if rec.PersonID, err = database.NullableUUIDFromBinary(personID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal person id")
	}

	rec.Kind = eventDomain.MutationKind(kind)
	rec.Status = eventDomain.EventStatus(status)
	rec.ValidationStatus = eventDomain.ValidationStatus(validationStatus)
	rec.ProcessingDuration = millisToDuration(durationMs)

	return &rec, nil
}
