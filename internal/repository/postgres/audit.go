package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eventpool/lottery-api/internal/model"
)

func (r *auditRepository) Create(ctx context.Context, record *model.AuditRecord) error {
	query := `
		INSERT INTO audit_records (
			id, actor_id, event_id, action, entity_type, entity_id,
			detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	record.ID = uuid.New()
	record.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.ActorID,
		record.EventID,
		record.Action,
		record.EntityType,
		record.EntityID,
		record.Detail,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit record: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.AuditRecord, error) {
	query := `
		SELECT id, actor_id, event_id, action, entity_type, entity_id,
			   detail, created_at
		FROM audit_records
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var records []*model.AuditRecord
	err := r.db.SelectContext(ctx, &records, query, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, nil
}
