package model

import (
	"time"

	"github.com/google/uuid"
)

type EntryStatus string

const (
	EntryStatusWaiting  EntryStatus = "waiting"
	EntryStatusSelected EntryStatus = "selected"
	EntryStatusAccepted EntryStatus = "accepted"
	EntryStatusDeclined EntryStatus = "declined"
	EntryStatusReplaced EntryStatus = "replaced"
)

// WaitlistEntry is one member's membership record for one event's waitlist.
// Entries are keyed (event_id, member_id) and only ever deleted when the
// member leaves while still waiting.
type WaitlistEntry struct {
	EventID   uuid.UUID   `db:"event_id" json:"event_id"`
	MemberID  uuid.UUID   `db:"member_id" json:"member_id"`
	Status    EntryStatus `db:"status" json:"status"`
	JoinedAt  time.Time   `db:"joined_at" json:"joined_at"`
	DeviceID  string      `db:"device_id" json:"device_id,omitempty"`
	Latitude  *float64    `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64    `db:"longitude" json:"longitude,omitempty"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// GeoPoint is a join-time location already resolved by the caller; the core
// never reads device sensors itself.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

type JoinWaitlistRequest struct {
	DeviceID string    `json:"device_id" binding:"max=128"`
	Location *GeoPoint `json:"location,omitempty"`
}
