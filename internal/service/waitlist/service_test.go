package waitlist

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
	"github.com/eventpool/lottery-api/internal/service/audit"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
)

type mockWaitlistRepo struct {
	mock.Mock
}

func (m *mockWaitlistRepo) GetEntry(ctx context.Context, eventID, memberID uuid.UUID) (*model.WaitlistEntry, error) {
	args := m.Called(ctx, eventID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WaitlistEntry), args.Error(1)
}

func (m *mockWaitlistRepo) ListEntries(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WaitlistEntry), args.Error(1)
}

func (m *mockWaitlistRepo) Join(ctx context.Context, entry *model.WaitlistEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockWaitlistRepo) Leave(ctx context.Context, eventID, memberID uuid.UUID) error {
	return m.Called(ctx, eventID, memberID).Error(0)
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Create(ctx context.Context, event *model.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEventRepo) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *mockEventRepo) List(ctx context.Context, filters *model.EventFilters) ([]*model.Event, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.EventStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) Create(ctx context.Context, record *model.AuditRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockAuditRepo) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]*model.AuditRecord, error) {
	args := m.Called(ctx, eventID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AuditRecord), args.Error(1)
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingInvalidator) Invalidate(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func newTestService(repo *mockWaitlistRepo, events *mockEventRepo) *Service {
	auditRepo := &mockAuditRepo{}
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	return NewService(repo, events, audit.NewService(auditRepo, nil), nil)
}

func openEvent() *model.Event {
	return &model.Event{Status: model.EventStatusOpen}
}

func TestJoin(t *testing.T) {
	eventID := uuid.New()
	memberID := uuid.New()

	t.Run("joins an open event", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		events := &mockEventRepo{}
		svc := newTestService(repo, events)

		events.On("Get", mock.Anything, eventID).Return(openEvent(), nil)
		repo.On("Join", mock.Anything, mock.MatchedBy(func(e *model.WaitlistEntry) bool {
			return e.EventID == eventID && e.MemberID == memberID
		})).Return(nil)

		require.NoError(t, svc.Join(context.Background(), eventID, memberID, nil))
		repo.AssertExpectations(t)
	})

	t.Run("rejects an anonymous member", func(t *testing.T) {
		svc := newTestService(&mockWaitlistRepo{}, &mockEventRepo{})

		err := svc.Join(context.Background(), eventID, uuid.Nil, nil)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	})

	t.Run("requires a location when the event demands one", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		events := &mockEventRepo{}
		svc := newTestService(repo, events)

		events.On("Get", mock.Anything, eventID).
			Return(&model.Event{Status: model.EventStatusOpen, RequiresGeolocation: true}, nil)

		err := svc.Join(context.Background(), eventID, memberID, &model.JoinWaitlistRequest{})
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		repo.AssertNotCalled(t, "Join", mock.Anything, mock.Anything)
	})

	t.Run("records a provided location", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		events := &mockEventRepo{}
		svc := newTestService(repo, events)

		events.On("Get", mock.Anything, eventID).
			Return(&model.Event{Status: model.EventStatusOpen, RequiresGeolocation: true}, nil)
		repo.On("Join", mock.Anything, mock.MatchedBy(func(e *model.WaitlistEntry) bool {
			return e.Latitude != nil && *e.Latitude == 51.5 && e.Longitude != nil && *e.Longitude == -0.12
		})).Return(nil)

		req := &model.JoinWaitlistRequest{
			DeviceID: "device-1",
			Location: &model.GeoPoint{Latitude: 51.5, Longitude: -0.12},
		}
		require.NoError(t, svc.Join(context.Background(), eventID, memberID, req))
		repo.AssertExpectations(t)
	})

	t.Run("maps repository failures to conflicts", func(t *testing.T) {
		cases := []struct {
			name string
			err  error
		}{
			{"duplicate join", repository.ErrAlreadyOnWaitlist},
			{"full waitlist", repository.ErrWaitlistFull},
			{"closed event", repository.ErrEventNotOpen},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				repo := &mockWaitlistRepo{}
				events := &mockEventRepo{}
				svc := newTestService(repo, events)

				events.On("Get", mock.Anything, eventID).Return(openEvent(), nil)
				repo.On("Join", mock.Anything, mock.Anything).Return(tc.err)

				err := svc.Join(context.Background(), eventID, memberID, nil)
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, apperrors.ErrConflict, appErr.Code)
			})
		}
	})

	t.Run("missing event is not found", func(t *testing.T) {
		events := &mockEventRepo{}
		svc := newTestService(&mockWaitlistRepo{}, events)

		events.On("Get", mock.Anything, eventID).Return(nil, repository.ErrNotFound)

		err := svc.Join(context.Background(), eventID, memberID, nil)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
	})
}

func TestLeave(t *testing.T) {
	eventID := uuid.New()
	memberID := uuid.New()

	t.Run("leaves while waiting", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		svc := newTestService(repo, &mockEventRepo{})

		repo.On("Leave", mock.Anything, eventID, memberID).Return(nil)

		require.NoError(t, svc.Leave(context.Background(), eventID, memberID))
	})

	t.Run("not on waitlist conflicts", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		svc := newTestService(repo, &mockEventRepo{})

		repo.On("Leave", mock.Anything, eventID, memberID).Return(repository.ErrNotOnWaitlist)

		err := svc.Leave(context.Background(), eventID, memberID)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	})
}

func TestMembershipChangesDropCachedEvent(t *testing.T) {
	eventID := uuid.New()
	memberID := uuid.New()

	newCachedService := func(repo *mockWaitlistRepo, events *mockEventRepo) (*Service, *recordingInvalidator) {
		auditRepo := &mockAuditRepo{}
		auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
		inv := &recordingInvalidator{}
		return NewService(repo, events, audit.NewService(auditRepo, nil), inv), inv
	}

	t.Run("join invalidates", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		events := &mockEventRepo{}
		svc, inv := newCachedService(repo, events)

		events.On("Get", mock.Anything, eventID).Return(openEvent(), nil)
		repo.On("Join", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, svc.Join(context.Background(), eventID, memberID, nil))
		assert.Equal(t, []uuid.UUID{eventID}, inv.ids)
	})

	t.Run("leave invalidates", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		svc, inv := newCachedService(repo, &mockEventRepo{})

		repo.On("Leave", mock.Anything, eventID, memberID).Return(nil)

		require.NoError(t, svc.Leave(context.Background(), eventID, memberID))
		assert.Equal(t, []uuid.UUID{eventID}, inv.ids)
	})

	t.Run("failed join leaves the cache alone", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		events := &mockEventRepo{}
		svc, inv := newCachedService(repo, events)

		events.On("Get", mock.Anything, eventID).Return(openEvent(), nil)
		repo.On("Join", mock.Anything, mock.Anything).Return(repository.ErrWaitlistFull)

		require.Error(t, svc.Join(context.Background(), eventID, memberID, nil))
		assert.Empty(t, inv.ids)
	})
}

func TestStatus(t *testing.T) {
	eventID := uuid.New()
	memberID := uuid.New()

	t.Run("returns nil for a member who never joined", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		svc := newTestService(repo, &mockEventRepo{})

		repo.On("GetEntry", mock.Anything, eventID, memberID).Return(nil, repository.ErrNotFound)

		entry, err := svc.Status(context.Background(), eventID, memberID)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("returns the entry when present", func(t *testing.T) {
		repo := &mockWaitlistRepo{}
		svc := newTestService(repo, &mockEventRepo{})

		want := &model.WaitlistEntry{EventID: eventID, MemberID: memberID, Status: model.EntryStatusSelected}
		repo.On("GetEntry", mock.Anything, eventID, memberID).Return(want, nil)

		entry, err := svc.Status(context.Background(), eventID, memberID)
		require.NoError(t, err)
		assert.Equal(t, want, entry)
	})
}
