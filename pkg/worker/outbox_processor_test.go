package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/pkg/logger"
	"github.com/eventpool/lottery-api/pkg/messaging"
	"github.com/eventpool/lottery-api/pkg/metrics"
)

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockOutboxRepo) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OutboxEvent), args.Error(1)
}

func (m *mockOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return m.Called(ctx, id, errMsg).Error(0)
}

func (m *mockOutboxRepo) RequeueStaleProcessing(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	return m.Called(ctx, channel, message).Error(0)
}

func (m *mockBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan []byte), args.Error(1)
}

func (m *mockBroker) Close() error {
	return m.Called().Error(0)
}

var testMetrics = metrics.NewMetrics("lottery", "worker_test")

func newTestProcessor(repo *mockOutboxRepo, broker *mockBroker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), testMetrics)
}

func notificationEvent(t *testing.T, recipientID uuid.UUID) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.NotificationEvent{
		NotificationID: uuid.New(),
		RecipientID:    recipientID,
		Type:           model.NotificationTypeWin,
		EventID:        uuid.New(),
		Message:        "You're in",
	})
	require.NoError(t, err)
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.OutboxEventNotificationCreated,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
	}
}

func TestProcessEventsPublishesPerRecipient(t *testing.T) {
	repo := &mockOutboxRepo{}
	broker := &mockBroker{}
	p := newTestProcessor(repo, broker)

	recipientID := uuid.New()
	event := notificationEvent(t, recipientID)

	repo.On("GetPendingWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{event}, nil)
	broker.On("Publish", mock.Anything, messaging.NotificationChannel(recipientID.String()), mock.Anything).Return(nil)
	repo.On("MarkProcessed", mock.Anything, event.ID).Return(nil)

	require.NoError(t, p.processEvents(context.Background()))
	broker.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestProcessEventMarksFailedAfterRetries(t *testing.T) {
	repo := &mockOutboxRepo{}
	broker := &mockBroker{}
	p := newTestProcessor(repo, broker)

	event := notificationEvent(t, uuid.New())

	broker.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Times(2)
	repo.On("MarkFailed", mock.Anything, event.ID, mock.Anything).Return(nil)

	require.Error(t, p.processEvent(context.Background(), event))
	broker.AssertExpectations(t)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestProcessEventRejectsUnknownEventType(t *testing.T) {
	repo := &mockOutboxRepo{}
	broker := &mockBroker{}
	p := newTestProcessor(repo, broker)

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: "something.else",
		Payload:   json.RawMessage(`{}`),
	}
	repo.On("MarkFailed", mock.Anything, event.ID, mock.Anything).Return(nil)

	err := p.processEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
	broker.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// claimingOutboxRepo mimics the postgres claim semantics: a batch handed out
// by GetPendingWithLock is flipped to processing before the call returns, so
// a second caller cannot receive the same rows.
type claimingOutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (r *claimingOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *claimingOutboxRepo) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var batch []*model.OutboxEvent
	for _, event := range r.events {
		if len(batch) == limit {
			break
		}
		if event.Status != model.OutboxStatusPending {
			continue
		}
		event.Status = model.OutboxStatusProcessing
		batch = append(batch, event)
	}
	return batch, nil
}

func (r *claimingOutboxRepo) setStatus(id uuid.UUID, status model.OutboxStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.ID == id {
			event.Status = status
		}
	}
}

func (r *claimingOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.setStatus(id, model.OutboxStatusProcessed)
	return nil
}

func (r *claimingOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	r.setStatus(id, model.OutboxStatusFailed)
	return nil
}

func (r *claimingOutboxRepo) RequeueStaleProcessing(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *claimingOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type countingBroker struct {
	mu        sync.Mutex
	published map[string]int
}

func (b *countingBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, _ := json.Marshal(message)
	b.published[string(raw)]++
	return nil
}

func (b *countingBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *countingBroker) Close() error { return nil }

func TestConcurrentReplicasPublishEachEventOnce(t *testing.T) {
	repo := &claimingOutboxRepo{}
	for i := 0; i < 20; i++ {
		require.NoError(t, repo.Create(context.Background(), notificationEvent(t, uuid.New())))
	}
	broker := &countingBroker{published: map[string]int{}}

	cfg := OutboxProcessorConfig{
		BatchSize:     3,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		p := NewOutboxProcessor(repo, broker, cfg, logger.NewLogger(nil), testMetrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, p.processEvents(context.Background()))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, broker.published, 20)
	for payload, count := range broker.published {
		assert.Equal(t, 1, count, "event published more than once: %s", payload)
	}
}

func TestRequeueStaleReturnsOrphanedClaims(t *testing.T) {
	repo := &mockOutboxRepo{}
	broker := &mockBroker{}
	p := newTestProcessor(repo, broker)

	repo.On("RequeueStaleProcessing", mock.Anything, mock.MatchedBy(func(before time.Time) bool {
		return time.Since(before) >= staleClaimAge
	})).Return(int64(2), nil)

	p.requeueStale(context.Background())
	repo.AssertExpectations(t)
}

func TestProcessEventsSurvivesOnePoisonEvent(t *testing.T) {
	repo := &mockOutboxRepo{}
	broker := &mockBroker{}
	p := newTestProcessor(repo, broker)

	recipientID := uuid.New()
	poison := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.OutboxEventNotificationCreated,
		Payload:   json.RawMessage(`not-json`),
	}
	good := notificationEvent(t, recipientID)

	repo.On("GetPendingWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{poison, good}, nil)
	repo.On("MarkFailed", mock.Anything, poison.ID, mock.Anything).Return(nil)
	broker.On("Publish", mock.Anything, messaging.NotificationChannel(recipientID.String()), mock.Anything).Return(nil)
	repo.On("MarkProcessed", mock.Anything, good.ID).Return(nil)

	require.NoError(t, p.processEvents(context.Background()))
	repo.AssertExpectations(t)
}
