package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eventpool/lottery-api/internal/model"
)

// All repository interfaces in one file
type (
	EventRepository interface {
		Create(ctx context.Context, event *model.Event) error
		Get(ctx context.Context, id uuid.UUID) (*model.Event, error)
		List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error
	}

	// WaitlistRepository guards waitlist membership. Join and Leave run their
	// capacity/membership check and the dependent mutation in one transaction
	// serialized on the event row, so concurrent joins near the capacity
	// boundary cannot both succeed.
	WaitlistRepository interface {
		GetEntry(ctx context.Context, eventID, memberID uuid.UUID) (*model.WaitlistEntry, error)
		ListEntries(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error)
		Join(ctx context.Context, entry *model.WaitlistEntry) error
		Leave(ctx context.Context, eventID, memberID uuid.UUID) error
	}

	// LotteryRepository owns every transition out of the waiting state.
	//
	// RunDraw reads the waiting pool, applies the permutation returned by
	// shuffle(n) (a slice of indices 0..n-1), marks the first sampleSize
	// permuted members selected and records the full draw order on the event,
	// all in one transaction. It fails with ErrLotteryAlreadyRun if the event
	// is already drawn.
	//
	// Decline marks the member declined and promotes the next still-waiting
	// member in the recorded draw order, atomically; the returned id is
	// uuid.Nil when no eligible member remains.
	LotteryRepository interface {
		RunDraw(ctx context.Context, eventID uuid.UUID, sampleSize int, shuffle func(n int) []int) (*model.DrawSummary, error)
		Accept(ctx context.Context, eventID, memberID uuid.UUID) error
		Decline(ctx context.Context, eventID, memberID uuid.UUID) (uuid.UUID, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification, outbox *model.OutboxEvent) error
		Get(ctx context.Context, recipientID, id uuid.UUID) (*model.Notification, error)
		ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*model.Notification, error)
		MarkRead(ctx context.Context, recipientID, id uuid.UUID) error
		MarkResponded(ctx context.Context, recipientID, id uuid.UUID) error
		MarkRespondedForEvent(ctx context.Context, recipientID, eventID uuid.UUID) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	// OutboxRepository hands out delivery work. GetPendingWithLock claims a
	// batch atomically (claimed rows move to processing before the call
	// returns), so concurrent worker replicas never receive the same event.
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		RequeueStaleProcessing(ctx context.Context, before time.Time) (int64, error)
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, record *model.AuditRecord) error
		ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.AuditRecord, error)
	}
)
