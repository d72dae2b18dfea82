package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
)

// RunDraw performs the full initial draw as one transaction: lock the event,
// read the waiting pool, permute it, mark winners selected and persist the
// draw order. Nothing outside the transaction observes a half-applied draw,
// and the caller only notifies entrants after this commits.
func (r *lotteryRepository) RunDraw(ctx context.Context, eventID uuid.UUID, sampleSize int, shuffle func(n int) []int) (*model.DrawSummary, error) {
	var summary *model.DrawSummary

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var ev struct {
			Name   string            `db:"name"`
			Status model.EventStatus `db:"status"`
		}
		err := tx.GetContext(ctx, &ev, `
			SELECT name, status FROM events
			WHERE id = $1
			FOR UPDATE
		`, eventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		if ev.Status == model.EventStatusDrawn {
			return repository.ErrLotteryAlreadyRun
		}

		var members []uuid.UUID
		err = tx.SelectContext(ctx, &members, `
			SELECT member_id FROM waitlist_entries
			WHERE event_id = $1 AND status = $2
			ORDER BY joined_at ASC, member_id ASC
		`, eventID, model.EntryStatusWaiting)
		if err != nil {
			return fmt.Errorf("failed to read waiting pool: %w", err)
		}

		perm := shuffle(len(members))
		if len(perm) != len(members) {
			return fmt.Errorf("shuffle returned %d indices for %d members", len(perm), len(members))
		}

		ordered := make([]uuid.UUID, len(members))
		for i, j := range perm {
			ordered[i] = members[j]
		}

		winnerCount := sampleSize
		if winnerCount > len(ordered) {
			winnerCount = len(ordered)
		}
		winners := ordered[:winnerCount]
		losers := ordered[winnerCount:]

		if len(winners) > 0 {
			winnerStrs := make([]string, len(winners))
			for i, w := range winners {
				winnerStrs[i] = w.String()
			}
			res, err := tx.ExecContext(ctx, `
				UPDATE waitlist_entries
				SET status = $1, updated_at = $2
				WHERE event_id = $3 AND member_id = ANY($4) AND status = $5
			`, model.EntryStatusSelected, time.Now(), eventID, pq.Array(winnerStrs), model.EntryStatusWaiting)
			if err != nil {
				return fmt.Errorf("failed to mark winners selected: %w", err)
			}
			updated, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if updated != int64(len(winners)) {
				return fmt.Errorf("selected %d of %d winners", updated, len(winners))
			}
		}

		orderStrs := make(pq.StringArray, len(ordered))
		for i, m := range ordered {
			orderStrs[i] = m.String()
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET status = $1, lottery_order = $2, updated_at = $3
			WHERE id = $4
		`, model.EventStatusDrawn, orderStrs, time.Now(), eventID)
		if err != nil {
			return fmt.Errorf("failed to record draw order: %w", err)
		}

		summary = &model.DrawSummary{
			EventID:   eventID,
			EventName: ev.Name,
			Winners:   winners,
			Losers:    losers,
			DrawnAt:   time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// Accept transitions a selected entry to accepted. The row lock makes a
// second concurrent response lose the race and fail the status check.
func (r *lotteryRepository) Accept(ctx context.Context, eventID, memberID uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		status, err := lockEntry(ctx, tx, eventID, memberID)
		if err != nil {
			return err
		}
		if err := checkRespondable(status); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE waitlist_entries
			SET status = $1, updated_at = $2
			WHERE event_id = $3 AND member_id = $4
		`, model.EntryStatusAccepted, time.Now(), eventID, memberID)
		if err != nil {
			return fmt.Errorf("failed to accept invitation: %w", err)
		}
		return nil
	})
}

// Decline transitions a selected entry to declined and, in the same
// transaction, promotes the next still-waiting member in the order recorded
// at draw time. The event row lock serializes concurrent declines so two of
// them cannot promote the same member.
func (r *lotteryRepository) Decline(ctx context.Context, eventID, memberID uuid.UUID) (uuid.UUID, error) {
	var replacement uuid.UUID

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var order pq.StringArray
		err := tx.GetContext(ctx, &order, `
			SELECT lottery_order FROM events
			WHERE id = $1
			FOR UPDATE
		`, eventID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		status, err := lockEntry(ctx, tx, eventID, memberID)
		if err != nil {
			return err
		}
		if err := checkRespondable(status); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE waitlist_entries
			SET status = $1, updated_at = $2
			WHERE event_id = $3 AND member_id = $4
		`, model.EntryStatusDeclined, time.Now(), eventID, memberID)
		if err != nil {
			return fmt.Errorf("failed to decline invitation: %w", err)
		}

		statuses := map[uuid.UUID]model.EntryStatus{}
		rows, err := tx.QueryxContext(ctx, `
			SELECT member_id, status FROM waitlist_entries
			WHERE event_id = $1
		`, eventID)
		if err != nil {
			return fmt.Errorf("failed to read entry statuses: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id uuid.UUID
			var st model.EntryStatus
			if err := rows.Scan(&id, &st); err != nil {
				return fmt.Errorf("failed to scan entry status: %w", err)
			}
			statuses[id] = st
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate entry statuses: %w", err)
		}

		next := nextReplacement(order, statuses)
		if next == uuid.Nil {
			// No eligible member left: the decline stands and capacity
			// simply shrinks by one.
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE waitlist_entries
			SET status = $1, updated_at = $2
			WHERE event_id = $3 AND member_id = $4
		`, model.EntryStatusSelected, time.Now(), eventID, next)
		if err != nil {
			return fmt.Errorf("failed to promote replacement: %w", err)
		}
		replacement = next
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return replacement, nil
}

// nextReplacement walks the draw order recorded at lottery time and returns
// the first member whose entry is still waiting, or uuid.Nil when the pool is
// exhausted. Replacement always follows the recorded order, never a fresh
// random pick, so the process stays auditable.
func nextReplacement(order pq.StringArray, statuses map[uuid.UUID]model.EntryStatus) uuid.UUID {
	for _, raw := range order {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if statuses[id] == model.EntryStatusWaiting {
			return id
		}
	}
	return uuid.Nil
}

func lockEntry(ctx context.Context, tx *sqlx.Tx, eventID, memberID uuid.UUID) (model.EntryStatus, error) {
	var status model.EntryStatus
	err := tx.GetContext(ctx, &status, `
		SELECT status FROM waitlist_entries
		WHERE event_id = $1 AND member_id = $2
		FOR UPDATE
	`, eventID, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrInvalidState
		}
		return "", fmt.Errorf("failed to lock waitlist entry: %w", err)
	}
	return status, nil
}

func checkRespondable(status model.EntryStatus) error {
	switch status {
	case model.EntryStatusSelected:
		return nil
	case model.EntryStatusAccepted, model.EntryStatusDeclined:
		return repository.ErrAlreadyResponded
	default:
		return repository.ErrInvalidState
	}
}
