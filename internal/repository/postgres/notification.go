package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
)

const notificationColumns = `
	id, recipient_id, type, event_id, event_name, message,
	read, responded, created_at
`

// Create persists the notification and its outbox event in one transaction,
// so the push the worker later publishes always refers to a durable row.
func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification, outbox *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		notification.ID = uuid.New()
		notification.CreatedAt = time.Now()

		_, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (`+notificationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			notification.ID,
			notification.RecipientID,
			notification.Type,
			notification.EventID,
			notification.EventName,
			notification.Message,
			notification.Read,
			notification.Responded,
			notification.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		if outbox == nil {
			return nil
		}

		outbox.ID = uuid.New()
		outbox.Status = model.OutboxStatusPending
		outbox.CreatedAt = time.Now()
		outbox.UpdatedAt = outbox.CreatedAt

		_, err = tx.ExecContext(ctx, `
			INSERT INTO outbox_events (
				id, event_type, payload, status, retry_count, created_at, updated_at
			) VALUES ($1, $2, $3, $4, 0, $5, $6)
		`,
			outbox.ID,
			outbox.EventType,
			outbox.Payload,
			outbox.Status,
			outbox.CreatedAt,
			outbox.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to enqueue outbox event: %w", err)
		}
		return nil
	})
}

func (r *notificationRepository) Get(ctx context.Context, recipientID, id uuid.UUID) (*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1 AND id = $2
	`
	var n model.Notification
	err := r.db.GetContext(ctx, &n, query, recipientID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`
	var notifications []*model.Notification
	err := r.db.SelectContext(ctx, &notifications, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	return r.setFlag(ctx, recipientID, id, "read")
}

func (r *notificationRepository) MarkResponded(ctx context.Context, recipientID, id uuid.UUID) error {
	return r.setFlag(ctx, recipientID, id, "responded")
}

// MarkRespondedForEvent flips the responded flag on the recipient's pending
// win/replacement notifications for one event, used when the response arrives
// through the lottery rather than the notification itself.
func (r *notificationRepository) MarkRespondedForEvent(ctx context.Context, recipientID, eventID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET responded = TRUE
		WHERE recipient_id = $1 AND event_id = $2
		  AND type IN ($3, $4) AND responded = FALSE
	`, recipientID, eventID, model.NotificationTypeWin, model.NotificationTypeReplacement)
	if err != nil {
		return fmt.Errorf("failed to mark notifications responded: %w", err)
	}
	return nil
}

func (r *notificationRepository) setFlag(ctx context.Context, recipientID, id uuid.UUID, column string) error {
	query := fmt.Sprintf(`
		UPDATE notifications
		SET %s = TRUE
		WHERE recipient_id = $1 AND id = $2
	`, column)

	result, err := r.db.ExecContext(ctx, query, recipientID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s: %w", column, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
