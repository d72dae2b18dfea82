package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
)

// Service records an audit trail for every draw, response and replacement.
// Records go to Postgres and, in parallel, to a structured zap sink so the
// trail survives even when the database write fails.
type Service struct {
	repo repository.AuditRepository
	sink *zap.Logger
}

func NewService(repo repository.AuditRepository, sink *zap.Logger) *Service {
	if sink == nil {
		sink = zap.NewNop()
	}
	return &Service{repo: repo, sink: sink}
}

// Record writes one audit entry. Auditing is best-effort: failures are
// reported to the sink but never fail the audited operation.
func (s *Service) Record(ctx context.Context, actorID, eventID uuid.UUID, action, entityType, entityID string, detail interface{}) {
	var raw json.RawMessage
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			s.sink.Warn("audit detail marshal failed",
				zap.String("action", action),
				zap.Error(err),
			)
		} else {
			raw = b
		}
	}

	record := &model.AuditRecord{
		ActorID:    actorID,
		EventID:    eventID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     raw,
	}

	s.sink.Info("audit",
		zap.String("actor_id", actorID.String()),
		zap.String("event_id", eventID.String()),
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
	)

	if err := s.repo.Create(ctx, record); err != nil {
		s.sink.Error("audit record write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByEvent(ctx, eventID, limit)
}
