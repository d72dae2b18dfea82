package waitlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
	"github.com/eventpool/lottery-api/internal/service/audit"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
)

// Invalidator drops a cached event after this service changes its counters.
// The event service satisfies it.
type Invalidator interface {
	Invalidate(id uuid.UUID)
}

// Service is the single point of entry and exit for waitlist membership. It
// enforces at most one active membership per (event, member) and never lets
// the waitlist exceed capacity; the atomicity of those checks lives in the
// repository transaction.
type Service struct {
	repo    repository.WaitlistRepository
	events  repository.EventRepository
	auditor *audit.Service
	cache   Invalidator
}

func NewService(repo repository.WaitlistRepository, events repository.EventRepository, auditor *audit.Service, cache Invalidator) *Service {
	return &Service{
		repo:    repo,
		events:  events,
		auditor: auditor,
		cache:   cache,
	}
}

// invalidate is nil-safe so tests and tools can run without a cache.
func (s *Service) invalidate(eventID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(eventID)
	}
}

// Join puts an authenticated member on an event's waitlist. Location is an
// optional caller-resolved coordinate, required only when the event demands
// it.
func (s *Service) Join(ctx context.Context, eventID, memberID uuid.UUID, req *model.JoinWaitlistRequest) error {
	if memberID == uuid.Nil {
		return apperrors.Unauthorized(errors.New("member is not authenticated"))
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("event", err)
		}
		return apperrors.Internal(err)
	}

	if event.RequiresGeolocation && (req == nil || req.Location == nil) {
		return apperrors.BadRequest("this event requires a join location", nil)
	}

	entry := &model.WaitlistEntry{
		EventID:  eventID,
		MemberID: memberID,
	}
	if req != nil {
		entry.DeviceID = req.DeviceID
		if req.Location != nil {
			lat, lng := req.Location.Latitude, req.Location.Longitude
			entry.Latitude = &lat
			entry.Longitude = &lng
		}
	}

	if err := s.repo.Join(ctx, entry); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("event", err)
		case errors.Is(err, repository.ErrAlreadyOnWaitlist):
			return apperrors.Conflict("already on waitlist", err)
		case errors.Is(err, repository.ErrWaitlistFull):
			return apperrors.Conflict("waitlist is full", err)
		case errors.Is(err, repository.ErrEventNotOpen):
			return apperrors.Conflict("event is not open for entrants", err)
		default:
			return apperrors.Internal(err)
		}
	}

	s.invalidate(eventID)
	log.Info().
		Str("event_id", eventID.String()).
		Str("member_id", memberID.String()).
		Msg("member joined waitlist")

	s.auditor.Record(ctx, memberID, eventID, model.AuditActionJoin,
		model.AuditEntityWaitlistEntry, memberID.String(), nil)
	return nil
}

// Leave removes a still-waiting member. Selected or accepted members must
// decline through the lottery instead; leaving quietly would bypass the
// replacement draw.
func (s *Service) Leave(ctx context.Context, eventID, memberID uuid.UUID) error {
	if memberID == uuid.Nil {
		return apperrors.Unauthorized(errors.New("member is not authenticated"))
	}

	if err := s.repo.Leave(ctx, eventID, memberID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotOnWaitlist):
			return apperrors.Conflict("not on waitlist", err)
		case errors.Is(err, repository.ErrNotFound):
			return apperrors.NotFound("event", err)
		default:
			return apperrors.Internal(err)
		}
	}

	s.invalidate(eventID)
	log.Info().
		Str("event_id", eventID.String()).
		Str("member_id", memberID.String()).
		Msg("member left waitlist")

	s.auditor.Record(ctx, memberID, eventID, model.AuditActionLeave,
		model.AuditEntityWaitlistEntry, memberID.String(), nil)
	return nil
}

// Status returns the member's entry for an event, or nil when the member has
// never joined.
func (s *Service) Status(ctx context.Context, eventID, memberID uuid.UUID) (*model.WaitlistEntry, error) {
	entry, err := s.repo.GetEntry(ctx, eventID, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal(err)
	}
	return entry, nil
}

// Entries lists an event's waitlist for its organizer.
func (s *Service) Entries(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error) {
	entries, err := s.repo.ListEntries(ctx, eventID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return entries, nil
}
