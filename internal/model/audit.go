package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditRecord struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	EventID    uuid.UUID       `json:"event_id" db:"event_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Detail     json.RawMessage `json:"detail" db:"detail"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	AuditActionJoin        = "waitlist_join"
	AuditActionLeave       = "waitlist_leave"
	AuditActionDraw        = "lottery_draw"
	AuditActionAccept      = "invitation_accept"
	AuditActionDecline     = "invitation_decline"
	AuditActionReplacement = "replacement_draw"

	AuditEntityEvent         = "event"
	AuditEntityWaitlistEntry = "waitlist_entry"
	AuditEntityNotification  = "notification"
)
