package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
)

const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = 5 * time.Minute

	maxWaitlistCapacity = 100_000
)

// Service handles organizer-facing event management and entrant-facing
// browsing. Reads go through a short-lived cache; every mutation invalidates
// the cached copy so capacity numbers are never served stale for long.
type Service struct {
	repo  repository.EventRepository
	cache *cache.Cache
}

func NewService(repo repository.EventRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) Create(ctx context.Context, organizerID uuid.UUID, req *model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperrors.BadRequest("event name is required", nil)
	}
	if req.WaitlistCapacity < 0 || req.WaitlistCapacity > maxWaitlistCapacity {
		return nil, apperrors.BadRequest(fmt.Sprintf("waitlist capacity must be between 0 and %d", maxWaitlistCapacity), nil)
	}
	if req.WaitlistCapacity > 0 && req.EntrantMaxCapacity > req.WaitlistCapacity {
		return nil, apperrors.BadRequest("entrant capacity cannot exceed waitlist capacity", nil)
	}

	event := &model.Event{
		OrganizerID:         organizerID,
		Name:                req.Name,
		Description:         req.Description,
		WaitlistCapacity:    req.WaitlistCapacity,
		EntrantMaxCapacity:  req.EntrantMaxCapacity,
		RequiresGeolocation: req.RequiresGeolocation,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, apperrors.Internal(err)
	}
	return event, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*model.Event), nil
	}

	event, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("event", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.cache.SetDefault(id.String(), event)
	return event, nil
}

func (s *Service) List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	events, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return events, nil
}

// Close stops further joins; the waitlist is frozen until the draw runs.
func (s *Service) Close(ctx context.Context, organizerID, id uuid.UUID) error {
	event, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if event.OrganizerID != organizerID {
		return apperrors.Forbidden("only the organizer may close an event", nil)
	}
	if event.Status != model.EventStatusOpen {
		return apperrors.Conflict("event is not open", nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.EventStatusClosed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("event", err)
		}
		return apperrors.Internal(err)
	}

	s.cache.Delete(id.String())
	return nil
}

// Invalidate drops the cached copy. The waitlist and lottery services call
// it after joins, leaves and draws change the event row.
func (s *Service) Invalidate(id uuid.UUID) {
	s.cache.Delete(id.String())
}
