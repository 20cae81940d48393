package domain

import (
	"strings"
	"time"
)

// Platform identifies one of the supported billing platforms.
type Platform string

const (
	PlatformStripe   Platform = "stripe"
	PlatformShopify  Platform = "shopify"
	PlatformEconomic Platform = "economic"
)

// PlatformDefinition describes a connectable platform, independent of whether
// an integration for it exists yet.
type PlatformDefinition struct {
	Key         Platform `json:"key"`
	DisplayName string   `json:"display_name"`
}

// AvailablePlatforms is the fixed set of platforms the dashboard can connect.
// Order matters: it is the render order of the integration list.
var AvailablePlatforms = []PlatformDefinition{
	{Key: PlatformStripe, DisplayName: "Stripe"},
	{Key: PlatformShopify, DisplayName: "Shopify Partners"},
	{Key: PlatformEconomic, DisplayName: "E-conomic"},
}

// IntegrationStatus is the lifecycle state of an integration.
//
// Transitions are driven by backend responses only:
// pending -> active, active <-> error, active <-> syncing,
// active -> disconnected. Removal deletes the entity.
type IntegrationStatus string

const (
	StatusPending      IntegrationStatus = "pending"
	StatusActive       IntegrationStatus = "active"
	StatusSyncing      IntegrationStatus = "syncing"
	StatusError        IntegrationStatus = "error"
	StatusDisconnected IntegrationStatus = "disconnected"
)

// LastError carries the most recent sync or credential failure for an
// integration, surfaced verbatim to the user.
type LastError struct {
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Integration represents one configured connection to an external billing
// platform. Revenue is already expressed in the requested display currency
// by the analytics backend.
type Integration struct {
	ID            int64             `json:"id"`
	Platform      Platform          `json:"platform"`
	Name          string            `json:"name"`
	Status        IntegrationStatus `json:"status"`
	CustomerCount int               `json:"customer_count"`
	Revenue       float64           `json:"revenue"`
	Currency      string            `json:"currency"`
	LastSyncAt    *time.Time        `json:"last_sync_at,omitempty"`
	LastError     *LastError        `json:"last_error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ReconnectHint returns an actionable message when the last error is an
// authentication or signature failure, instead of the raw backend text.
// Returns "" when the error (if any) is not an auth failure.
func (i *Integration) ReconnectHint() string {
	if i.LastError == nil {
		return ""
	}
	msg := i.LastError.Message
	if strings.Contains(msg, "MAC is invalid") || strings.Contains(msg, "Invalid signature") {
		return "Authentication with " + i.Name + " failed. Please reconnect the integration."
	}
	return ""
}

// MatchesPlatform reports whether this integration belongs to the given
// platform. The case-insensitive name-substring fallback exists only for
// legacy records that predate the platform key.
func (i *Integration) MatchesPlatform(def PlatformDefinition) bool {
	if i.Platform != "" {
		return i.Platform == def.Key
	}
	return strings.Contains(strings.ToLower(i.Name), strings.ToLower(string(def.Key)))
}

// Shop is a store under a Shopify Partner organization, owned by exactly one
// integration. Its access token is managed independently of the parent
// integration's lifecycle.
type Shop struct {
	Domain         string    `json:"shop_domain"`
	InstallationID string    `json:"installation_id"`
	HasToken       bool      `json:"has_token"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
