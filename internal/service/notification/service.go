package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eventpool/lottery-api/internal/email"
	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
)

// Message templates per decision type. Replacement winners get the same
// wording as first-round winners; the distinct type exists for auditing only.
const (
	winMessage  = "Congratulations! You've been selected for %q. Please accept or decline your invitation."
	lossMessage = "Unfortunately, you were not selected for %q. You may still have a chance if selected participants decline."
)

// Service persists exactly one notification per lottery decision and exposes
// the out-of-band read/responded marking used by the UI. Only the lottery
// service calls the Send methods.
type Service struct {
	repo     repository.NotificationRepository
	users    repository.UserRepository
	emailSvc email.Service
}

func NewService(repo repository.NotificationRepository, users repository.UserRepository, emailSvc email.Service) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		emailSvc: emailSvc,
	}
}

func (s *Service) SendWin(ctx context.Context, recipientID, eventID uuid.UUID, eventName string) error {
	return s.send(ctx, recipientID, eventID, eventName, model.NotificationTypeWin)
}

func (s *Service) SendLoss(ctx context.Context, recipientID, eventID uuid.UUID, eventName string) error {
	return s.send(ctx, recipientID, eventID, eventName, model.NotificationTypeLoss)
}

func (s *Service) SendReplacement(ctx context.Context, recipientID, eventID uuid.UUID, eventName string) error {
	return s.send(ctx, recipientID, eventID, eventName, model.NotificationTypeReplacement)
}

func (s *Service) send(ctx context.Context, recipientID, eventID uuid.UUID, eventName string, typ model.NotificationType) error {
	if recipientID == uuid.Nil {
		return fmt.Errorf("recipient is required")
	}

	n := &model.Notification{
		RecipientID: recipientID,
		Type:        typ,
		EventID:     eventID,
		EventName:   eventName,
		Message:     messageFor(typ, eventName),
		// A loss needs no response, so it is born responded.
		Responded: typ == model.NotificationTypeLoss,
	}

	outbox, err := s.outboxEvent(n)
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, n, outbox); err != nil {
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	s.sendEmailCopy(ctx, n)
	return nil
}

func messageFor(typ model.NotificationType, eventName string) string {
	switch typ {
	case model.NotificationTypeLoss:
		return fmt.Sprintf(lossMessage, eventName)
	default:
		return fmt.Sprintf(winMessage, eventName)
	}
}

func (s *Service) outboxEvent(n *model.Notification) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(model.NotificationEvent{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Type:           n.Type,
		EventID:        n.EventID,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification event: %w", err)
	}
	return &model.OutboxEvent{
		EventType: model.OutboxEventNotificationCreated,
		Payload:   payload,
	}, nil
}

// sendEmailCopy mails a copy of the notification when an email channel is
// configured. Failures are logged and swallowed: the committed notification
// row is authoritative and must not be rolled back for a courtesy email.
func (s *Service) sendEmailCopy(ctx context.Context, n *model.Notification) {
	if s.emailSvc == nil {
		return
	}

	user, err := s.users.Get(ctx, n.RecipientID)
	if err != nil {
		log.Warn().Err(err).Str("recipient", n.RecipientID.String()).Msg("email copy skipped: recipient lookup failed")
		return
	}

	subject := fmt.Sprintf("Lottery update for %s", n.EventName)
	if err := s.emailSvc.SendCustom(ctx, user.Email, subject, n.Message); err != nil {
		log.Warn().Err(err).Str("recipient", user.Email).Msg("email copy failed")
	}
}

func (s *Service) List(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return notifications, nil
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, recipientID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) MarkResponded(ctx context.Context, recipientID, id uuid.UUID) error {
	if err := s.repo.MarkResponded(ctx, recipientID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

// MarkRespondedForEvent closes out the recipient's pending invitation
// notifications for an event after an accept or decline.
func (s *Service) MarkRespondedForEvent(ctx context.Context, recipientID, eventID uuid.UUID) error {
	return s.repo.MarkRespondedForEvent(ctx, recipientID, eventID)
}
