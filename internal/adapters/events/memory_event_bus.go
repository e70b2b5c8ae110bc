package events

import (
	"context"
	"errors"
	"sync"

	"github.com/zatekoja/medscan/backend/internal/domain/providers"
)

// MemoryEventBus is an in-process ScanEventBus for single-instance runs.
// Slow subscribers miss events rather than block publishers.
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *providers.ScanCompletedEvent]struct{}
	closed      bool
}

// NewMemoryEventBus creates an empty bus.
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		subscribers: make(map[string]map[chan *providers.ScanCompletedEvent]struct{}),
	}
}

func (b *MemoryEventBus) PublishScanCompleted(ctx context.Context, event *providers.ScanCompletedEvent) error {
	if event == nil {
		return errors.New("scan event is nil")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("event bus closed")
	}
	b.fanOut(providers.EventChannelScanCompleted, event)
	if event.UserID != "" {
		b.fanOut(providers.UserScanChannel(event.UserID), event)
	}
	return nil
}

func (b *MemoryEventBus) fanOut(channel string, event *providers.ScanCompletedEvent) {
	for subscriber := range b.subscribers[channel] {
		copied := *event
		select {
		case subscriber <- &copied:
		default:
		}
	}
}

func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *providers.ScanCompletedEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("event bus closed")
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *providers.ScanCompletedEvent]struct{})
	}
	eventChan := make(chan *providers.ScanCompletedEvent, 100)
	b.subscribers[channel][eventChan] = struct{}{}

	go func() {
		<-ctx.Done()
		b.remove(channel, eventChan)
	}()
	return eventChan, nil
}

func (b *MemoryEventBus) remove(channel string, eventChan chan *providers.ScanCompletedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	b.closed = true
	return nil
}
