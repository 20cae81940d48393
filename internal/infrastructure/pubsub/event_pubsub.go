package pubsub

import (
	"context"
	"sync"

	"revlens-dashboard-layer/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventChannel represents a subscription channel.
type EventChannel struct {
	ID     string
	Filter *EventFilter
	Events chan *domain.IntegrationEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// EventFilter filters integration events.
type EventFilter struct {
	Types         []domain.EventType // filter by event types
	IntegrationID int64              // filter by integration, 0 matches all
}

// EventPubSub fans integration lifecycle events out to subscribers (the SSE
// stream and the metrics collector).
type EventPubSub struct {
	mu       sync.RWMutex
	channels map[string]*EventChannel
	logger   zerolog.Logger
}

// NewEventPubSub creates a new event pub/sub system.
func NewEventPubSub(logger zerolog.Logger) *EventPubSub {
	return &EventPubSub{
		channels: make(map[string]*EventChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription channel.
func (ps *EventPubSub) Subscribe(ctx context.Context, filter *EventFilter) *EventChannel {
	subCtx, cancel := context.WithCancel(ctx)

	channel := &EventChannel{
		ID:     uuid.NewString(),
		Filter: filter,
		Events: make(chan *domain.IntegrationEvent, 10),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", channel.ID).
		Msg("Event subscription created")

	// Cleanup when context is cancelled
	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription channel.
func (ps *EventPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Event subscription removed")
}

// Publish broadcasts an event to all matching subscribers.
func (ps *EventPubSub) Publish(event *domain.IntegrationEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if !ps.matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
			publishedCount++
		case <-channel.ctx.Done():
			// Channel is closed, skip
		default:
			// Channel buffer full, skip (non-blocking)
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("type", string(event.Type)).
			Int64("integrationId", event.IntegrationID).
			Int("subscribers", publishedCount).
			Msg("Published integration event to subscribers")
	}
}

// matchesFilter checks if an event matches the subscription filter.
func (ps *EventPubSub) matchesFilter(event *domain.IntegrationEvent, filter *EventFilter) bool {
	if filter == nil {
		return true // No filter, match all
	}

	if len(filter.Types) > 0 {
		typeMatch := false
		for _, eventType := range filter.Types {
			if event.Type == eventType {
				typeMatch = true
				break
			}
		}
		if !typeMatch {
			return false
		}
	}

	if filter.IntegrationID != 0 && event.IntegrationID != filter.IntegrationID {
		return false
	}

	return true
}

// GetStats returns pub/sub statistics.
func (ps *EventPubSub) GetStats() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(ps.channels),
	}
}
