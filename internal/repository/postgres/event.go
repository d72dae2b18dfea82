package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
)

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (
			id, organizer_id, name, description, status,
			waitlist_capacity, waitlist_count, entrant_max_capacity,
			requires_geolocation, waitlist_users, lottery_order,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	event.ID = uuid.New()
	event.Status = model.EventStatusOpen
	event.WaitlistCount = 0
	event.WaitlistUsers = pq.StringArray{}
	event.LotteryOrder = pq.StringArray{}
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.OrganizerID,
		event.Name,
		event.Description,
		event.Status,
		event.WaitlistCapacity,
		event.WaitlistCount,
		event.EntrantMaxCapacity,
		event.RequiresGeolocation,
		event.WaitlistUsers,
		event.LotteryOrder,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT id, organizer_id, name, description, status,
			   waitlist_capacity, waitlist_count, entrant_max_capacity,
			   requires_geolocation, waitlist_users, lottery_order,
			   created_at, updated_at
		FROM events
		WHERE id = $1
	`
	var event model.Event
	err := r.db.GetContext(ctx, &event, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	query := `
		SELECT id, organizer_id, name, description, status,
			   waitlist_capacity, waitlist_count, entrant_max_capacity,
			   requires_geolocation, waitlist_users, lottery_order,
			   created_at, updated_at
		FROM events
		WHERE 1 = 1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil && filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if filters != nil && filters.OrganizerID != uuid.Nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argCount)
		args = append(args, filters.OrganizerID)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	var events []*model.Event
	err := r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error {
	query := `
		UPDATE events
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
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
