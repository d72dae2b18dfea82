package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeWin  NotificationType = "win"
	NotificationTypeLoss NotificationType = "loss"
	// Replacement winners see the same message as first-round winners; the
	// distinct type is kept for auditing.
	NotificationTypeReplacement NotificationType = "replacement"
)

// Notification is a persisted per-recipient message describing one lottery
// decision. Created exactly once per decision; only Read and Responded are
// ever mutated afterwards.
type Notification struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	RecipientID uuid.UUID        `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"type" json:"type"`
	EventID     uuid.UUID        `db:"event_id" json:"event_id"`
	EventName   string           `db:"event_name" json:"event_name"`
	Message     string           `db:"message" json:"message"`
	Read        bool             `db:"read" json:"read"`
	Responded   bool             `db:"responded" json:"responded"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// RequiresResponse reports whether the recipient still owes an
// accept/decline answer.
func (n *Notification) RequiresResponse() bool {
	return (n.Type == NotificationTypeWin || n.Type == NotificationTypeReplacement) && !n.Responded
}

// NotificationEvent is the payload pushed to subscribers once the
// notification row has durably committed.
type NotificationEvent struct {
	NotificationID uuid.UUID        `json:"notification_id"`
	RecipientID    uuid.UUID        `json:"recipient_id"`
	Type           NotificationType `json:"type"`
	EventID        uuid.UUID        `json:"event_id"`
	Message        string           `json:"message"`
	CreatedAt      time.Time        `json:"created_at"`
}
