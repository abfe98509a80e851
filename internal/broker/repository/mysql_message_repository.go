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

// MySQLMessageRepository implements the broker log for MySQL.
type MySQLMessageRepository struct {
	db *sql.DB
}

// NewMySQLMessageRepository creates a new MySQL broker log repository.
func NewMySQLMessageRepository(db *sql.DB) *MySQLMessageRepository {
	return &MySQLMessageRepository{db: db}
}

// EnsurePartitions creates the partition rows of a topic if they are missing.
func (m *MySQLMessageRepository) EnsurePartitions(ctx context.Context, topic string, partitions int) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT IGNORE INTO broker_partitions (topic, partition_no, next_offset) VALUES (?, ?, 0)`

	for partition := 0; partition < partitions; partition++ {
		if _, err := querier.ExecContext(ctx, query, topic, partition); err != nil {
			return apperrors.Wrap(err, "failed to ensure broker partition")
		}
	}
	return nil
}

// Append assigns the next offset of the message partition and stores it.
// It must run inside a transaction so the partition row lock serializes writers.
func (m *MySQLMessageRepository) Append(ctx context.Context, msg *brokerDomain.Message) error {
	querier := database.GetTx(ctx, m.db)

	var offset int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT next_offset FROM broker_partitions WHERE topic = ? AND partition_no = ? FOR UPDATE`,
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
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
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
		`UPDATE broker_partitions SET next_offset = ? WHERE topic = ? AND partition_no = ?`,
		offset+1,
		msg.Topic,
		msg.Partition,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to advance broker partition")
	}

	msg.Offset = offset
	return nil
}

// Fetch returns up to limit messages of a partition with offset > after, in offset order.
func (m *MySQLMessageRepository) Fetch(
	ctx context.Context,
	topic string,
	partition int,
	after int64,
	limit int,
) ([]brokerDomain.Message, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT topic, partition_no, offset_no, msg_key, msg_value, headers, created_at
			  FROM broker_messages
			  WHERE topic = ? AND partition_no = ? AND offset_no > ?
			  ORDER BY offset_no ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, topic, partition, after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch broker messages")
	}
	return scanMessages(rows)
}

// CommittedOffset returns the last committed offset of group, or NoOffset.
func (m *MySQLMessageRepository) CommittedOffset(
	ctx context.Context,
	group, topic string,
	partition int,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT committed_offset FROM broker_consumer_offsets
			  WHERE group_name = ? AND topic = ? AND partition_no = ?`

	return scanCommittedOffset(querier.QueryRowContext(ctx, query, group, topic, partition))
}

// Commit records offset as consumed by group.
func (m *MySQLMessageRepository) Commit(
	ctx context.Context,
	group, topic string,
	partition int,
	offset int64,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO broker_consumer_offsets (group_name, topic, partition_no, committed_offset, updated_at)
			  VALUES (?, ?, ?, ?, NOW())
			  ON DUPLICATE KEY UPDATE committed_offset = VALUES(committed_offset), updated_at = NOW()`

	if _, err := querier.ExecContext(ctx, query, group, topic, partition, offset); err != nil {
		return apperrors.Wrap(err, "failed to commit consumer offset")
	}
	return nil
}
