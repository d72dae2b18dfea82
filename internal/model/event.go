package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type EventStatus string

const (
	EventStatusOpen   EventStatus = "open"
	EventStatusClosed EventStatus = "closed"
	EventStatusDrawn  EventStatus = "drawn"
)

// Event is the authoritative record for capacity numbers. WaitlistCount is a
// denormalized counter kept equal to len(WaitlistUsers) by every mutation; a
// WaitlistCapacity of 0 means unlimited.
type Event struct {
	Base
	OrganizerID         uuid.UUID      `db:"organizer_id" json:"organizer_id"`
	Name                string         `db:"name" json:"name"`
	Description         string         `db:"description" json:"description,omitempty"`
	Status              EventStatus    `db:"status" json:"status"`
	WaitlistCapacity    int            `db:"waitlist_capacity" json:"waitlist_capacity"`
	WaitlistCount       int            `db:"waitlist_count" json:"waitlist_count"`
	EntrantMaxCapacity  int            `db:"entrant_max_capacity" json:"entrant_max_capacity"`
	RequiresGeolocation bool           `db:"requires_geolocation" json:"requires_geolocation"`
	WaitlistUsers       pq.StringArray `db:"waitlist_users" json:"waitlist_users"`
	LotteryOrder        pq.StringArray `db:"lottery_order" json:"lottery_order,omitempty"`
}

type CreateEventRequest struct {
	Name                string `json:"name" binding:"required,notblank,max=200"`
	Description         string `json:"description" binding:"max=2000"`
	WaitlistCapacity    int    `json:"waitlist_capacity" binding:"min=0"`
	EntrantMaxCapacity  int    `json:"entrant_max_capacity" binding:"required,min=1"`
	RequiresGeolocation bool   `json:"requires_geolocation"`
}

type EventFilters struct {
	Status      EventStatus
	OrganizerID uuid.UUID
}

// DrawSummary reports one completed lottery run.
type DrawSummary struct {
	EventID   uuid.UUID   `json:"event_id"`
	EventName string      `json:"event_name"`
	Winners   []uuid.UUID `json:"winners"`
	Losers    []uuid.UUID `json:"losers"`
	DrawnAt   time.Time   `json:"drawn_at"`
}
