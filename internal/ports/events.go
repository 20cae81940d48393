package ports

import "revlens-dashboard-layer/internal/domain"

// EventPublisher broadcasts integration lifecycle events to any interested
// subscriber (SSE stream, metrics). Publishing never blocks.
type EventPublisher interface {
	Publish(event *domain.IntegrationEvent)
}
