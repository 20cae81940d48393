package ports

import (
	"context"

	"revlens-dashboard-layer/internal/domain"
)

// CreateIntegrationInput is the payload for the generic create-integration
// endpoint (Stripe and E-conomic connect through it).
type CreateIntegrationInput struct {
	Platform     domain.Platform   `json:"platform"`
	PlatformName string            `json:"platform_name"`
	Credentials  map[string]string `json:"credentials"`
}

// PartnerConnectInput is the payload for the dedicated Shopify Partner
// connect endpoint.
type PartnerConnectInput struct {
	PartnerAccessToken string `json:"partner_access_token"`
	OrganizationID     string `json:"organization_id"`
}

// PartnerConnectResult carries the integration created or updated by a
// partner connect.
type PartnerConnectResult struct {
	IntegrationID int64 `json:"integration_id"`
}

// OAuthCompleteInput is the payload for the E-conomic token exchange.
type OAuthCompleteInput struct {
	GrantToken   string `json:"grant_token"`
	PlatformName string `json:"platform_name"`
}

// BackendClient is the HTTP client for the remote analytics backend. Every
// call is bearer-authenticated from the context session and subject to the
// shared 30 second timeout. A 401 from any call clears the stored session
// and surfaces ErrUnauthorized; callers never handle 401 themselves.
type BackendClient interface {
	ListIntegrations(ctx context.Context, displayCurrency string) ([]*domain.Integration, error)
	CreateIntegration(ctx context.Context, input CreateIntegrationInput) (*domain.Integration, error)
	ConnectPartner(ctx context.Context, input PartnerConnectInput) (*PartnerConnectResult, error)
	EconomicOAuthURL(ctx context.Context) (string, error)
	CompleteEconomicOAuth(ctx context.Context, input OAuthCompleteInput) (string, error)
	TriggerSync(ctx context.Context, integrationID int64) error
	Disconnect(ctx context.Context, integrationID int64) error
	Remove(ctx context.Context, integrationID int64) error
	ListShops(ctx context.Context, integrationID int64) ([]*domain.Shop, error)
	StoreShopToken(ctx context.Context, integrationID int64, shopDomain, accessToken string) error
	RemoveShopToken(ctx context.Context, integrationID int64, shopDomain string) error
}
