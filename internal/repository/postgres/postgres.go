package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/eventpool/lottery-api/internal/repository"
)

type eventRepository struct {
	BaseRepository
}

type waitlistRepository struct {
	BaseRepository
}

type lotteryRepository struct {
	BaseRepository
}

type notificationRepository struct {
	BaseRepository
}

type userRepository struct {
	BaseRepository
}

type auditRepository struct {
	BaseRepository
}

func NewEventRepository(db *sqlx.DB) repository.EventRepository {
	return &eventRepository{NewBaseRepository(db)}
}

func NewWaitlistRepository(db *sqlx.DB) repository.WaitlistRepository {
	return &waitlistRepository{NewBaseRepository(db)}
}

func NewLotteryRepository(db *sqlx.DB) repository.LotteryRepository {
	return &lotteryRepository{NewBaseRepository(db)}
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{NewBaseRepository(db)}
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{NewBaseRepository(db)}
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{NewBaseRepository(db)}
}
