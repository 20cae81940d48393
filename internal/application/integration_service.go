package application

import (
	"context"
	"fmt"
	"time"

	"revlens-dashboard-layer/internal/currency"
	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Action is something the integration list offers the user for one platform.
type Action string

const (
	ActionConnect       Action = "connect"
	ActionReconnect     Action = "reconnect"
	ActionFixConnection Action = "fix_connection"
	ActionSync          Action = "sync"
	ActionDisconnect    Action = "disconnect"
	ActionRemove        Action = "remove"
)

// syncGuardTTL bounds how long a sync stays marked in flight if the trigger
// call never settles.
const syncGuardTTL = 90 * time.Second

// PlatformView is the reconciled render state for one available platform.
type PlatformView struct {
	Platform       domain.PlatformDefinition `json:"platform"`
	Integration    *domain.Integration       `json:"integration,omitempty"`
	Actions        []Action                  `json:"actions"`
	ErrorSummary   string                    `json:"error_summary,omitempty"`
	RevenueDisplay string                    `json:"revenue_display,omitempty"`
	SyncInFlight   bool                      `json:"sync_in_flight"`
}

// IntegrationService reconciles configured integrations against the fixed
// platform set and drives the sync/disconnect/remove actions.
type IntegrationService struct {
	api       ports.BackendClient
	guard     ports.SyncGuard
	validator ports.ShopTokenValidator
	events    ports.EventPublisher
	logger    zerolog.Logger
}

// NewIntegrationService creates a new integration service.
func NewIntegrationService(
	api ports.BackendClient,
	guard ports.SyncGuard,
	validator ports.ShopTokenValidator,
	events ports.EventPublisher,
	logger zerolog.Logger,
) *IntegrationService {
	return &IntegrationService{
		api:       api,
		guard:     guard,
		validator: validator,
		events:    events,
		logger:    logger,
	}
}

// Overview fetches the integration list and reconciles it against the
// available platforms. displayCurrency qualifies the backend query and the
// revenue formatting; "" leaves amounts in the integration's own currency.
func (s *IntegrationService) Overview(ctx context.Context, displayCurrency string) ([]*PlatformView, error) {
	integrations, err := s.api.ListIntegrations(ctx, displayCurrency)
	if err != nil {
		return nil, err
	}

	views := make([]*PlatformView, 0, len(domain.AvailablePlatforms))
	for _, def := range domain.AvailablePlatforms {
		views = append(views, s.buildView(ctx, def, findMatch(integrations, def)))
	}
	return views, nil
}

func findMatch(integrations []*domain.Integration, def domain.PlatformDefinition) *domain.Integration {
	for _, integration := range integrations {
		if integration.MatchesPlatform(def) {
			return integration
		}
	}
	return nil
}

func (s *IntegrationService) buildView(ctx context.Context, def domain.PlatformDefinition, integration *domain.Integration) *PlatformView {
	view := &PlatformView{Platform: def, Integration: integration}

	switch {
	case integration == nil:
		view.Actions = []Action{ActionConnect}

	case integration.Status == domain.StatusDisconnected:
		view.Actions = []Action{ActionReconnect}

	case integration.Status == domain.StatusError:
		view.Actions = []Action{ActionFixConnection}
		view.ErrorSummary = errorSummary(integration)

	default:
		// pending, active, syncing: live counters plus the full action set.
		view.Actions = []Action{ActionSync, ActionDisconnect, ActionRemove}
		view.RevenueDisplay = currency.Format(integration.Revenue, integration.Currency)
		inFlight, err := s.guard.InFlight(ctx, integration.ID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("integrationId", integration.ID).Msg("Failed to read sync guard")
		}
		view.SyncInFlight = inFlight || integration.Status == domain.StatusSyncing
	}

	return view
}

// errorSummary prefers the actionable reconnect hint for auth failures and
// otherwise surfaces the backend message verbatim.
func errorSummary(integration *domain.Integration) string {
	if hint := integration.ReconnectHint(); hint != "" {
		return hint
	}
	if integration.LastError != nil {
		return integration.LastError.Message
	}
	return "The last sync failed. Please try again or reconnect the integration."
}

// TriggerSync asks the backend to sync one integration. Duplicate triggers
// while one is pending for the same ID are suppressed locally; the guard is
// advisory and true idempotence is the backend's responsibility.
func (s *IntegrationService) TriggerSync(ctx context.Context, integrationID int64) error {
	acquired, err := s.guard.TryAcquire(ctx, integrationID, syncGuardTTL)
	if err != nil {
		s.logger.Warn().Err(err).Int64("integrationId", integrationID).Msg("Sync guard unavailable, triggering anyway")
	} else if !acquired {
		return domain.ErrSyncInFlight
	}

	syncErr := s.api.TriggerSync(ctx, integrationID)

	// The mark clears when the trigger call settles, success or failure.
	if err := s.guard.Release(ctx, integrationID); err != nil {
		s.logger.Warn().Err(err).Int64("integrationId", integrationID).Msg("Failed to release sync guard")
	}

	if syncErr != nil {
		s.events.Publish(&domain.IntegrationEvent{
			Type:          domain.EventSyncSettled,
			IntegrationID: integrationID,
			Message:       syncErr.Error(),
			OccurredAt:    time.Now(),
		})
		return syncErr
	}

	s.events.Publish(&domain.IntegrationEvent{
		Type:          domain.EventSyncStarted,
		IntegrationID: integrationID,
		OccurredAt:    time.Now(),
	})
	s.logger.Info().Int64("integrationId", integrationID).Msg("Sync triggered")
	return nil
}

// Disconnect soft-removes an integration: historical customer and invoice
// data is retained server-side and the list offers Reconnect afterwards.
func (s *IntegrationService) Disconnect(ctx context.Context, integrationID int64) error {
	if err := s.api.Disconnect(ctx, integrationID); err != nil {
		return err
	}
	s.events.Publish(&domain.IntegrationEvent{
		Type:          domain.EventDisconnected,
		IntegrationID: integrationID,
		OccurredAt:    time.Now(),
	})
	s.logger.Info().Int64("integrationId", integrationID).Msg("Integration disconnected")
	return nil
}

// Remove hard-deletes an integration and its synchronized data.
func (s *IntegrationService) Remove(ctx context.Context, integrationID int64) error {
	if err := s.api.Remove(ctx, integrationID); err != nil {
		return err
	}
	s.events.Publish(&domain.IntegrationEvent{
		Type:          domain.EventRemoved,
		IntegrationID: integrationID,
		OccurredAt:    time.Now(),
	})
	s.logger.Info().Int64("integrationId", integrationID).Msg("Integration removed")
	return nil
}

// ResolveRemoval executes the explicit two-choice dialog outcome. The
// choices have different data-retention consequences and must never be
// conflated: "disconnect" keeps data, "remove" destroys it.
func (s *IntegrationService) ResolveRemoval(ctx context.Context, integrationID int64, choice string) error {
	switch choice {
	case string(ActionDisconnect):
		return s.Disconnect(ctx, integrationID)
	case string(ActionRemove):
		return s.Remove(ctx, integrationID)
	default:
		return &domain.ValidationError{
			Field:   "choice",
			Message: fmt.Sprintf("choice must be %q or %q", ActionDisconnect, ActionRemove),
		}
	}
}

// ListShops enumerates the shops under a Shopify integration.
func (s *IntegrationService) ListShops(ctx context.Context, integrationID int64) ([]*domain.Shop, error) {
	return s.api.ListShops(ctx, integrationID)
}

// StoreShopToken probes and stores an access token for one shop. An invalid
// token is rejected locally; a probe that could not run (network trouble on
// the Shopify side) stores the token anyway.
func (s *IntegrationService) StoreShopToken(ctx context.Context, integrationID int64, shopDomain, accessToken string) error {
	valid, err := s.validator.ValidateShopToken(ctx, shopDomain, accessToken)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Shop token probe failed, storing token unverified")
	} else if !valid {
		return &domain.ValidationError{Field: "access_token", Message: "The shop access token is invalid or revoked"}
	}
	return s.api.StoreShopToken(ctx, integrationID, shopDomain, accessToken)
}

// RemoveShopToken removes the stored access token for one shop.
func (s *IntegrationService) RemoveShopToken(ctx context.Context, integrationID int64, shopDomain string) error {
	return s.api.RemoveShopToken(ctx, integrationID, shopDomain)
}
