package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	partnerTokenRequiredMessage = "Partner Access Token is required"
	orgIDRequiredMessage        = "Organization ID is required"
	partnerConnectFailedMessage = "Failed to connect to the Shopify Partner API. Please try again."
)

// PartnerResult is the outcome of a Shopify Partner connect submission.
type PartnerResult struct {
	IntegrationID int64
	// AlreadyConnected is set on a 409: an integration already exists and
	// the recovery action is navigation, not a retry.
	AlreadyConnected bool
	NavigateTo       string
}

// ShopifyPartnerFlow is the two-field Shopify Partner connection flow. It
// posts to the dedicated partner-connect endpoint because Shopify requires
// enumerating shops after the organization-level credential is accepted.
type ShopifyPartnerFlow struct {
	api       ports.BackendClient
	events    ports.EventPublisher
	logger    zerolog.Logger
	onSuccess func(integrationID int64)
}

// NewShopifyPartnerFlow creates the Shopify Partner connection flow.
// onSuccess may be nil.
func NewShopifyPartnerFlow(api ports.BackendClient, events ports.EventPublisher, logger zerolog.Logger, onSuccess func(integrationID int64)) *ShopifyPartnerFlow {
	return &ShopifyPartnerFlow{
		api:       api,
		events:    events,
		logger:    logger,
		onSuccess: onSuccess,
	}
}

// Submit validates and submits the partner credentials. Both fields are
// required; each empty field produces its own inline message before any
// network call.
//
// On success with a returned integration ID, an initial sync is triggered as
// a best-effort secondary step: its failure never rolls back or blocks the
// primary success path.
func (f *ShopifyPartnerFlow) Submit(ctx context.Context, partnerAccessToken, organizationID string) (*PartnerResult, error) {
	if strings.TrimSpace(partnerAccessToken) == "" {
		return nil, &domain.ValidationError{Field: "partner_access_token", Message: partnerTokenRequiredMessage}
	}
	if strings.TrimSpace(organizationID) == "" {
		return nil, &domain.ValidationError{Field: "organization_id", Message: orgIDRequiredMessage}
	}

	result, err := f.api.ConnectPartner(ctx, ports.PartnerConnectInput{
		PartnerAccessToken: strings.TrimSpace(partnerAccessToken),
		OrganizationID:     strings.TrimSpace(organizationID),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			f.logger.Info().Msg("Shopify Partner integration already exists, navigating to integration list")
			return &PartnerResult{AlreadyConnected: true, NavigateTo: "/integrations"}, nil
		}
		return nil, f.interpretError(err)
	}

	if result.IntegrationID != 0 {
		// Best effort: a sync failure here must not block the connect.
		if err := f.api.TriggerSync(ctx, result.IntegrationID); err != nil {
			f.logger.Warn().Err(err).Int64("integrationId", result.IntegrationID).Msg("Initial sync after partner connect failed")
		} else {
			f.events.Publish(&domain.IntegrationEvent{
				Type:          domain.EventSyncStarted,
				IntegrationID: result.IntegrationID,
				Platform:      domain.PlatformShopify,
				OccurredAt:    time.Now(),
			})
		}
	}

	f.events.Publish(&domain.IntegrationEvent{
		Type:          domain.EventConnected,
		IntegrationID: result.IntegrationID,
		Platform:      domain.PlatformShopify,
		OccurredAt:    time.Now(),
	})
	if f.onSuccess != nil {
		f.onSuccess(result.IntegrationID)
	}

	return &PartnerResult{IntegrationID: result.IntegrationID}, nil
}

func (f *ShopifyPartnerFlow) interpretError(err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		return err
	}
	var backendErr *domain.BackendError
	if errors.As(err, &backendErr) && backendErr.Message != "" {
		return err
	}
	return &domain.BackendError{Message: partnerConnectFailedMessage}
}
