package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/internal/repository"
	"github.com/eventpool/lottery-api/pkg/logger"
	"github.com/eventpool/lottery-api/pkg/messaging"
	"github.com/eventpool/lottery-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// Processed rows older than RetentionPeriod are purged; zero disables
	// cleanup.
	RetentionPeriod time.Duration
}

// OutboxProcessor drains committed notification events to the broker. Each
// event is published on the recipient's channel so connected clients receive
// only their own notifications.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if p.config.RetentionPeriod > 0 {
		t := time.NewTicker(p.config.RetentionPeriod)
		defer t.Stop()
		cleanup = t.C
	}

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox events")
			}
		case <-cleanup:
			p.requeueStale(ctx)
			p.purgeProcessed(ctx)
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPendingWithLock(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	channel, err := p.channelFor(event)
	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			p.logger.Error(markErr, "failed to mark event failed", "event_id", event.ID.String())
		}
		return err
	}

	err = p.withRetry(event.EventType, func() error {
		return p.broker.Publish(ctx, channel, event.Payload)
	})
	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			p.logger.Error(markErr, "failed to mark event failed", "event_id", event.ID.String())
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// channelFor resolves the broker channel from the event payload. Notification
// events are routed per recipient.
func (p *OutboxProcessor) channelFor(event *model.OutboxEvent) (string, error) {
	switch event.EventType {
	case model.OutboxEventNotificationCreated:
		var payload model.NotificationEvent
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return "", fmt.Errorf("malformed notification payload: %w", err)
		}
		return messaging.NotificationChannel(payload.RecipientID.String()), nil
	default:
		return "", fmt.Errorf("unknown event type %q", event.EventType)
	}
}

func (p *OutboxProcessor) withRetry(eventType string, fn func() error) error {
	var err error
	for i := 0; i < p.config.RetryAttempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < p.config.RetryAttempts-1 {
			p.metrics.OutboxRetries.WithLabelValues(eventType).Inc()
			time.Sleep(p.config.RetryDelay)
		}
	}
	return err
}

// staleClaimAge bounds how long a claimed event may sit in processing before
// it is assumed orphaned by a crashed worker and returned to the pool.
const staleClaimAge = 5 * time.Minute

func (p *OutboxProcessor) requeueStale(ctx context.Context) {
	requeued, err := p.repo.RequeueStaleProcessing(ctx, time.Now().Add(-staleClaimAge))
	if err != nil {
		p.logger.Error(err, "failed to requeue stale claims")
		return
	}
	if requeued > 0 {
		p.logger.Info("requeued stale outbox claims", "count", requeued)
	}
}

func (p *OutboxProcessor) purgeProcessed(ctx context.Context) {
	deleted, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-p.config.RetentionPeriod))
	if err != nil {
		p.logger.Error(err, "failed to purge processed events")
		return
	}
	if deleted > 0 {
		p.logger.Info("purged processed outbox events", "count", deleted)
	}
}
