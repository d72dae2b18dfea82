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

const entryColumns = `
	event_id, member_id, status, joined_at, device_id,
	latitude, longitude, updated_at
`

func (r *waitlistRepository) GetEntry(ctx context.Context, eventID, memberID uuid.UUID) (*model.WaitlistEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM waitlist_entries
		WHERE event_id = $1 AND member_id = $2
	`
	var entry model.WaitlistEntry
	err := r.db.GetContext(ctx, &entry, query, eventID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *waitlistRepository) ListEntries(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM waitlist_entries
		WHERE event_id = $1
		ORDER BY joined_at ASC
	`
	var entries []*model.WaitlistEntry
	err := r.db.SelectContext(ctx, &entries, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	return entries, nil
}

// Join runs the duplicate check, the capacity check and the three dependent
// writes (entry insert, counter increment, member array append) inside a
// single transaction. The SELECT ... FOR UPDATE on the event row serializes
// concurrent joins: two members racing for the last slot observe the counter
// one after the other, never both at the old value.
func (r *waitlistRepository) Join(ctx context.Context, entry *model.WaitlistEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var ev struct {
			Status           model.EventStatus `db:"status"`
			WaitlistCapacity int               `db:"waitlist_capacity"`
			WaitlistCount    int               `db:"waitlist_count"`
		}
		err := tx.GetContext(ctx, &ev, `
			SELECT status, waitlist_capacity, waitlist_count
			FROM events
			WHERE id = $1
			FOR UPDATE
		`, entry.EventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		if ev.Status != model.EventStatusOpen {
			return repository.ErrEventNotOpen
		}

		var exists int
		err = tx.GetContext(ctx, &exists, `
			SELECT 1 FROM waitlist_entries
			WHERE event_id = $1 AND member_id = $2
		`, entry.EventID, entry.MemberID)
		switch {
		case err == nil:
			// Any prior entry blocks a rejoin, whatever its status: active
			// members are already on the list, and a declined member's slot
			// went back to the pool once already.
			return repository.ErrAlreadyOnWaitlist
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to check existing entry: %w", err)
		}

		if !hasWaitlistRoom(ev.WaitlistCapacity, ev.WaitlistCount) {
			return repository.ErrWaitlistFull
		}

		entry.Status = model.EntryStatusWaiting
		entry.JoinedAt = time.Now()
		entry.UpdatedAt = entry.JoinedAt

		_, err = tx.ExecContext(ctx, `
			INSERT INTO waitlist_entries (
				event_id, member_id, status, joined_at, device_id,
				latitude, longitude, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			entry.EventID,
			entry.MemberID,
			entry.Status,
			entry.JoinedAt,
			entry.DeviceID,
			entry.Latitude,
			entry.Longitude,
			entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert waitlist entry: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET waitlist_count = waitlist_count + 1,
				waitlist_users = array_append(waitlist_users, $1),
				updated_at = $2
			WHERE id = $3
		`, entry.MemberID.String(), time.Now(), entry.EventID)
		if err != nil {
			return fmt.Errorf("failed to update event membership: %w", err)
		}

		return nil
	})
}

// hasWaitlistRoom is the capacity gate applied under the event row lock.
// A capacity of zero means the waitlist is unbounded.
func hasWaitlistRoom(capacity, count int) bool {
	return capacity == 0 || count < capacity
}

// Leave removes a still-waiting entry and reverses the join bookkeeping in
// one transaction. Members already selected or accepted must decline through
// the lottery instead.
func (r *waitlistRepository) Leave(ctx context.Context, eventID, memberID uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			SELECT 1 FROM events WHERE id = $1 FOR UPDATE
		`, eventID)
		if err != nil {
			return fmt.Errorf("failed to lock event: %w", err)
		}

		var status model.EntryStatus
		err = tx.GetContext(ctx, &status, `
			SELECT status FROM waitlist_entries
			WHERE event_id = $1 AND member_id = $2
		`, eventID, memberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotOnWaitlist
			}
			return fmt.Errorf("failed to get waitlist entry: %w", err)
		}

		if status != model.EntryStatusWaiting {
			return repository.ErrNotOnWaitlist
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM waitlist_entries
			WHERE event_id = $1 AND member_id = $2
		`, eventID, memberID)
		if err != nil {
			return fmt.Errorf("failed to delete waitlist entry: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET waitlist_count = waitlist_count - 1,
				waitlist_users = array_remove(waitlist_users, $1),
				updated_at = $2
			WHERE id = $3
		`, memberID.String(), time.Now(), eventID)
		if err != nil {
			return fmt.Errorf("failed to update event membership: %w", err)
		}

		return nil
	})
}
