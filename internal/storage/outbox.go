package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/linemk/tm-watch/internal/domain/models"
)

// MaxOutboxRetries - после стольких неудачных отправок событие помечается failed.
const MaxOutboxRetries = 5

// OutboxStorage хранит доменные события до их публикации в брокер.
type OutboxStorage interface {
	// Enqueue записывает событие в той же транзакции, что и изменения заказа.
	Enqueue(ctx context.Context, tx *sql.Tx, event *models.OutboxEvent) error
	// LockBatch забирает пачку событий в работу на время lease.
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]models.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

type outboxRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewOutboxRepository(db *sql.DB, dialect Dialect) OutboxStorage {
	return &outboxRepository{db: db, dialect: dialect}
}

func (r *outboxRepository) Enqueue(ctx context.Context, tx *sql.Tx, event *models.OutboxEvent) error {
	query := `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query,
		event.AggregateType, event.AggregateID, event.Type, event.Payload, models.EventStatusPending, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]models.OutboxEvent, error) {
	now := time.Now().UTC()
	var events []models.OutboxEvent

	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// просроченная аренда in_progress означает, что предыдущий relay упал
		query := `
			SELECT id, aggregate_type, aggregate_id, type, payload, status, retry_count, last_error, created_at
			FROM outbox
			WHERE status = $1 OR (status = $2 AND lease_until < $3)
			ORDER BY id
			LIMIT $4` + r.dialect.skipLockedClause()
		rows, err := tx.QueryContext(ctx, query, models.EventStatusPending, models.EventStatusInProgress, now, batchSize)
		if err != nil {
			return fmt.Errorf("failed to select outbox batch: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e models.OutboxEvent
			if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Type, &e.Payload, &e.Status, &e.RetryCount, &e.LastError, &e.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan outbox event: %w", err)
			}
			events = append(events, e)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		for i := range events {
			_, err := tx.ExecContext(ctx,
				"UPDATE outbox SET status = $1, relay_id = $2, lease_until = $3 WHERE id = $4",
				models.EventStatusInProgress, relayID, now.Add(lease), events[i].ID)
			if err != nil {
				return fmt.Errorf("failed to lease outbox event: %w", err)
			}
			events[i].Status = models.EventStatusInProgress
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, ids []int64) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, "UPDATE outbox SET status = $1 WHERE id = $2", models.EventStatusSent, id); err != nil {
				return fmt.Errorf("failed to mark outbox event %d sent: %w", id, err)
			}
		}
		return nil
	})
}

// MarkFailed возвращает событие в очередь, пока не исчерпан лимит попыток.
func (r *outboxRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `UPDATE outbox
	          SET status = CASE WHEN retry_count + 1 >= $1 THEN $2 ELSE $3 END,
	              retry_count = retry_count + 1,
	              last_error = $4
	          WHERE id = $5`
	_, err := r.db.ExecContext(ctx, query, MaxOutboxRetries, models.EventStatusFailed, models.EventStatusPending, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %d failed: %w", id, err)
	}
	return nil
}
