package domain

import "time"

// EventType classifies integration lifecycle events.
type EventType string

const (
	EventConnected          EventType = "integration/connected"
	EventSyncStarted        EventType = "integration/sync_started"
	EventSyncSettled        EventType = "integration/sync_settled"
	EventDisconnected       EventType = "integration/disconnected"
	EventRemoved            EventType = "integration/removed"
	EventSessionInvalidated EventType = "session/invalidated"
)

// IntegrationEvent is broadcast whenever an integration's lifecycle changes
// or the session is invalidated. Consumed by the SSE stream and metrics.
type IntegrationEvent struct {
	Type          EventType `json:"type"`
	IntegrationID int64     `json:"integration_id,omitempty"`
	Platform      Platform  `json:"platform,omitempty"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
