package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// NotificationChannel returns the pub/sub channel carrying one recipient's
// notification pushes. UI clients subscribe to their own channel to render
// notification lists reactively.
func NotificationChannel(recipientID string) string {
	return "notifications:" + recipientID
}
