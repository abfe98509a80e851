// Package repository stores broker partitions, messages and consumer offsets.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	brokerDomain "github.com/allisson/workforce-sync/internal/broker/domain"
	"github.com/allisson/workforce-sync/internal/database"
	apperrors "github.com/allisson/workforce-sync/internal/errors"
)

// PostgreSQLMessageRepository implements the broker log for PostgreSQL.
type PostgreSQLMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLMessageRepository creates a new PostgreSQL broker log repository.
func NewPostgreSQLMessageRepository(db *sql.DB) *PostgreSQLMessageRepository {
	return &PostgreSQLMessageRepository{db: db}
}

// EnsurePartitions creates the partition rows of a topic if they are missing.
func (p *PostgreSQLMessageRepository) EnsurePartitions(ctx context.Context, topic string, partitions int) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO broker_partitions (topic, partition_no, next_offset)
			  VALUES ($1, $2, 0)
			  ON CONFLICT (topic, partition_no) DO NOTHING`

	for partition := 0; partition < partitions; partition++ {
		if _, err := querier.ExecContext(ctx, query, topic, partition); err != nil {
			return apperrors.Wrap(err, "failed to ensure broker partition")
		}
	}
	return nil
}

// Append assigns the next offset of the message partition and stores it.
// It must run inside a transaction so the partition row lock serializes writers.
func (p *PostgreSQLMessageRepository) Append(ctx context.Context, msg *brokerDomain.Message) error {
	querier := database.GetTx(ctx, p.db)

	var offset int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT next_offset FROM broker_partitions WHERE topic = $1 AND partition_no = $2 FOR UPDATE`,
		msg.Topic,
		msg.Partition,
	).Scan(&offset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.Wrapf(brokerDomain.ErrUnknownTopic, "%s/%d", msg.Topic, msg.Partition)
		}
		return apperrors.Wrap(err, "failed to lock broker partition")
	}

	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode message headers")
	}

	_, err = querier.ExecContext(
		ctx,
		`INSERT INTO broker_messages (topic, partition_no, offset_no, msg_key, msg_value, headers, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.Topic,
		msg.Partition,
		offset,
		msg.Key,
		string(msg.Value),
		string(headers),
		msg.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to append broker message")
	}

	_, err = querier.ExecContext(
		ctx,
		`UPDATE broker_partitions SET next_offset = $3 WHERE topic = $1 AND partition_no = $2`,
		msg.Topic,
		msg.Partition,
		offset+1,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to advance broker partition")
	}

	msg.Offset = offset
	return nil
}

// Fetch returns up to limit messages of a partition with offset > after, in offset order.
func (p *PostgreSQLMessageRepository) Fetch(
	ctx context.Context,
	topic string,
	partition int,
	after int64,
	limit int,
) ([]brokerDomain.Message, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT topic, partition_no, offset_no, msg_key, msg_value, headers, created_at
			  FROM broker_messages
			  WHERE topic = $1 AND partition_no = $2 AND offset_no > $3
			  ORDER BY offset_no ASC
			  LIMIT $4`

	rows, err := querier.QueryContext(ctx, query, topic, partition, after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch broker messages")
	}
	return scanMessages(rows)
}

// CommittedOffset returns the last committed offset of group, or NoOffset.
func (p *PostgreSQLMessageRepository) CommittedOffset(
	ctx context.Context,
	group, topic string,
	partition int,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT committed_offset FROM broker_consumer_offsets
			  WHERE group_name = $1 AND topic = $2 AND partition_no = $3`

	return scanCommittedOffset(querier.QueryRowContext(ctx, query, group, topic, partition))
}

// Commit records offset as consumed by group.
func (p *PostgreSQLMessageRepository) Commit(
	ctx context.Context,
	group, topic string,
	partition int,
	offset int64,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO broker_consumer_offsets (group_name, topic, partition_no, committed_offset, updated_at)
			  VALUES ($1, $2, $3, $4, NOW())
			  ON CONFLICT (group_name, topic, partition_no)
			  DO UPDATE SET committed_offset = EXCLUDED.committed_offset, updated_at = NOW()`

	if _, err := querier.ExecContext(ctx, query, group, topic, partition, offset); err != nil {
		return apperrors.Wrap(err, "failed to commit consumer offset")
	}
	return nil
}

func scanCommittedOffset(row *sql.Row) (int64, error) {
	var offset int64
	if err := row.Scan(&offset); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return brokerDomain.NoOffset, nil
		}
		return 0, apperrors.Wrap(err, "failed to get committed offset")
	}
	return offset, nil
}

func scanMessages(rows *sql.Rows) ([]brokerDomain.Message, error) {
	defer func() {
		_ = rows.Close()
	}()

	messages := make([]brokerDomain.Message, 0)
	for rows.Next() {
		var msg brokerDomain.Message
		var headers []byte
		if err := rows.Scan(
			&msg.Topic,
			&msg.Partition,
			&msg.Offset,
			&msg.Key,
			&msg.Value,
			&headers,
			&msg.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan broker message")
		}
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &msg.Headers); err != nil {
				return nil, apperrors.Wrap(err, "failed to decode message headers")
			}
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate broker messages")
	}

	return messages, nil
}
