package lottery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
	"github.com/eventpool/lottery-api/internal/service/audit"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
	"github.com/eventpool/lottery-api/pkg/metrics"
)

// Notifier is the slice of the notification service the lottery needs.
// Dispatch is strictly post-commit: the lottery only calls these after its
// own transaction has durably applied.
type Notifier interface {
	SendWin(ctx context.Context, recipientID, eventID uuid.UUID, eventName string) error
	SendLoss(ctx context.Context, recipientID, eventID uuid.UUID, eventName string) error
	SendReplacement(ctx context.Context, recipientID, eventID uuid.UUID, eventName string) error
	MarkRespondedForEvent(ctx context.Context, recipientID, eventID uuid.UUID) error
}

// Invalidator drops a cached event after the draw rewrites its status and
// order. The event service satisfies it.
type Invalidator interface {
	Invalidate(id uuid.UUID)
}

// Service runs the draw and manages the accept/decline/replacement lifecycle
// for one event at a time. Entry states move waiting -> selected ->
// accepted|declined; a decline promotes at most one waiting member following
// the order recorded at draw time.
type Service struct {
	repo     repository.LotteryRepository
	events   repository.EventRepository
	notifier Notifier
	auditor  *audit.Service
	cache    Invalidator
	shuffler Shuffler
	metrics  *metrics.Metrics
}

func NewService(
	repo repository.LotteryRepository,
	events repository.EventRepository,
	notifier Notifier,
	auditor *audit.Service,
	cache Invalidator,
	shuffler Shuffler,
	m *metrics.Metrics,
) *Service {
	if shuffler == nil {
		shuffler = NewShuffler()
	}
	return &Service{
		repo:     repo,
		events:   events,
		notifier: notifier,
		auditor:  auditor,
		cache:    cache,
		shuffler: shuffler,
		metrics:  m,
	}
}

// InitializeLottery draws min(sampleSize, waitlist size) winners in one
// atomic step and then fans out exactly one notification per member. A
// failed draw transaction sends nothing; a failed notification never undoes
// the committed draw.
func (s *Service) InitializeLottery(ctx context.Context, eventID uuid.UUID, sampleSize int) (*model.DrawSummary, error) {
	if sampleSize <= 0 {
		return nil, apperrors.BadRequest("sample size must be positive", nil)
	}

	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.DrawLatency)
	}

	summary, err := s.repo.RunDraw(ctx, eventID, sampleSize, s.shuffler.Perm)
	if timer != nil {
		timer.ObserveDuration()
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("event", err)
		case errors.Is(err, repository.ErrLotteryAlreadyRun):
			return nil, apperrors.Conflict("lottery has already been run for this event", err)
		default:
			return nil, apperrors.Internal(err)
		}
	}

	if s.cache != nil {
		s.cache.Invalidate(eventID)
	}
	if s.metrics != nil {
		s.metrics.DrawsTotal.Inc()
	}
	log.Info().
		Str("event_id", eventID.String()).
		Int("winners", len(summary.Winners)).
		Int("losers", len(summary.Losers)).
		Msg("lottery draw committed")

	// The draw is durable from here on. Each member gets exactly one
	// notification; individual failures are reported and skipped.
	for _, winner := range summary.Winners {
		if err := s.notifier.SendWin(ctx, winner, eventID, summary.EventName); err != nil {
			log.Error().Err(err).Str("member_id", winner.String()).Msg("win notification failed")
		}
	}
	for _, loser := range summary.Losers {
		if err := s.notifier.SendLoss(ctx, loser, eventID, summary.EventName); err != nil {
			log.Error().Err(err).Str("member_id", loser.String()).Msg("loss notification failed")
		}
	}

	s.auditor.Record(ctx, uuid.Nil, eventID, model.AuditActionDraw, model.AuditEntityEvent,
		eventID.String(), summary)

	return summary, nil
}

// AcceptInvitation moves a selected member to accepted. No notification is
// sent; the UI reflects the new status directly.
func (s *Service) AcceptInvitation(ctx context.Context, eventID, memberID uuid.UUID) error {
	if memberID == uuid.Nil {
		return apperrors.Unauthorized(errors.New("member is not authenticated"))
	}

	if err := s.repo.Accept(ctx, eventID, memberID); err != nil {
		return s.mapResponseError(err)
	}

	if s.metrics != nil {
		s.metrics.ResponsesTotal.WithLabelValues("accept").Inc()
	}
	log.Info().
		Str("event_id", eventID.String()).
		Str("member_id", memberID.String()).
		Msg("invitation accepted")

	if err := s.notifier.MarkRespondedForEvent(ctx, memberID, eventID); err != nil {
		log.Warn().Err(err).Str("member_id", memberID.String()).Msg("failed to mark notification responded")
	}

	s.auditor.Record(ctx, memberID, eventID, model.AuditActionAccept,
		model.AuditEntityWaitlistEntry, memberID.String(), nil)
	return nil
}

// DeclineInvitation moves a selected member to declined and, when the pool
// allows, promotes the next waiting member in the recorded draw order. The
// promotion happens inside the decline transaction; only the replacement
// notification follows the commit.
func (s *Service) DeclineInvitation(ctx context.Context, eventID, memberID uuid.UUID) error {
	if memberID == uuid.Nil {
		return apperrors.Unauthorized(errors.New("member is not authenticated"))
	}

	replacement, err := s.repo.Decline(ctx, eventID, memberID)
	if err != nil {
		return s.mapResponseError(err)
	}

	if s.metrics != nil {
		s.metrics.ResponsesTotal.WithLabelValues("decline").Inc()
	}
	log.Info().
		Str("event_id", eventID.String()).
		Str("member_id", memberID.String()).
		Bool("replacement_drawn", replacement != uuid.Nil).
		Msg("invitation declined")

	if err := s.notifier.MarkRespondedForEvent(ctx, memberID, eventID); err != nil {
		log.Warn().Err(err).Str("member_id", memberID.String()).Msg("failed to mark notification responded")
	}

	s.auditor.Record(ctx, memberID, eventID, model.AuditActionDecline,
		model.AuditEntityWaitlistEntry, memberID.String(), nil)

	if replacement == uuid.Nil {
		return nil
	}

	if s.metrics != nil {
		s.metrics.ReplacementsTotal.Inc()
	}

	eventName := s.eventName(ctx, eventID)
	if err := s.notifier.SendReplacement(ctx, replacement, eventID, eventName); err != nil {
		log.Error().Err(err).Str("member_id", replacement.String()).Msg("replacement notification failed")
	}

	s.auditor.Record(ctx, memberID, eventID, model.AuditActionReplacement,
		model.AuditEntityWaitlistEntry, replacement.String(),
		map[string]string{"declined_by": memberID.String()})
	return nil
}

func (s *Service) mapResponseError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("event", err)
	case errors.Is(err, repository.ErrInvalidState):
		return apperrors.Conflict("member was never selected", err)
	case errors.Is(err, repository.ErrAlreadyResponded):
		return apperrors.Conflict("invitation has already been responded to", err)
	default:
		return apperrors.Internal(err)
	}
}

func (s *Service) eventName(ctx context.Context, eventID uuid.UUID) string {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		log.Warn().Err(err).Str("event_id", eventID.String()).Msg("event name lookup failed")
		return "Event"
	}
	return event.Name
}
