package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("outbox event and payload are required")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, 0, $5, $6)
	`
	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingWithLock claims a batch of pending events. The SKIP LOCKED
// select and the flip to processing commit together, so once the claim is
// visible no other replica can fetch the same rows; the row locks alone
// would not survive past the statement. Claimed rows that never reach
// processed or failed are returned to the pool by RequeueStaleProcessing.
func (r *outboxRepository) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	var events []*model.OutboxEvent

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.SelectContext(ctx, &events, `
			SELECT id, event_type, payload, status, error_message,
				   retry_count, created_at, updated_at, processed_at
			FROM outbox_events
			WHERE status = $1
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, model.OutboxStatusPending, limit)
		if err != nil {
			return fmt.Errorf("failed to get pending outbox events: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(events))
		for i, event := range events {
			ids[i] = event.ID
			event.Status = model.OutboxStatusProcessing
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE outbox_events
			SET status = $1, updated_at = $2
			WHERE id = ANY($3)
		`, model.OutboxStatusProcessing, time.Now(), pq.Array(ids))
		if err != nil {
			return fmt.Errorf("failed to claim outbox events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// RequeueStaleProcessing returns events claimed before the cutoff to
// pending, recovering batches orphaned by a worker crash.
func (r *outboxRepository) RequeueStaleProcessing(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $1, updated_at = $2
		WHERE status = $3 AND updated_at < $4
	`, model.OutboxStatusPending, time.Now(), model.OutboxStatusProcessing, before)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale outbox events: %w", err)
	}
	return result.RowsAffected()
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $1, processed_at = $2, updated_at = $2
		WHERE id = $3
	`, model.OutboxStatusProcessed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event processed: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $1, error_message = $2,
			retry_count = retry_count + 1, updated_at = $3
		WHERE id = $4
	`, model.OutboxStatusFailed, errMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM outbox_events
		WHERE status = $1 AND processed_at < $2
	`, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed outbox events: %w", err)
	}
	return result.RowsAffected()
}
