package providers

import (
	"context"
)

// ScanEventBus publishes scan events and fans them out to subscribers.
type ScanEventBus interface {
	EventPublisher

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *ScanCompletedEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelUserPrefix is the prefix for per-user scan channels
const EventChannelUserPrefix = "scan:user:"

// UserScanChannel returns the channel carrying one user's scan events
func UserScanChannel(userID string) string {
	return EventChannelUserPrefix + userID
}
