package ports

import "context"

// ShopTokenValidator probes a Shopify shop access token with a lightweight
// Admin API call before it is stored. A false result means the token is
// invalid or revoked; an error means the probe itself could not run.
type ShopTokenValidator interface {
	ValidateShopToken(ctx context.Context, shopDomain, accessToken string) (bool, error)
}
