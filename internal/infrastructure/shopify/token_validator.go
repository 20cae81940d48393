// Package shopify probes Shopify shop access tokens before they are stored
// against an integration's shop sub-resource.
package shopify

import (
	"context"
	"fmt"
	"strings"

	"revlens-dashboard-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// TokenValidator validates shop access tokens with a lightweight Admin API
// call. Shopify access tokens don't expire unless revoked, so a single
// successful probe at store time is enough.
type TokenValidator struct {
	app    goshopify.App
	logger zerolog.Logger
}

var _ ports.ShopTokenValidator = (*TokenValidator)(nil)

// NewTokenValidator creates a new token validator.
func NewTokenValidator(logger zerolog.Logger) *TokenValidator {
	return &TokenValidator{logger: logger}
}

// ValidateShopToken checks a token by fetching the shop resource. A 401-class
// failure means the token is invalid or revoked; other errors (network,
// timeout) report as an error so callers can decide whether to store anyway.
func (v *TokenValidator) ValidateShopToken(ctx context.Context, shopDomain, accessToken string) (bool, error) {
	if accessToken == "" {
		return false, fmt.Errorf("access token is empty")
	}
	if shopDomain == "" {
		return false, fmt.Errorf("shop domain is required for token validation")
	}

	client, err := goshopify.NewClient(v.app, normalizeShopDomain(shopDomain), accessToken)
	if err != nil {
		return false, fmt.Errorf("failed to create shopify client: %w", err)
	}

	// GetShop is the cheapest authenticated endpoint. An invalid token comes
	// back as a 401 Unauthorized wrapped in the library's error string.
	_, err = client.Shop.Get(ctx, nil)
	if err != nil {
		errStr := strings.ToLower(err.Error())
		if strings.Contains(errStr, "401") ||
			strings.Contains(errStr, "unauthorized") ||
			strings.Contains(errStr, "authentication") ||
			strings.Contains(errStr, "invalid token") ||
			strings.Contains(errStr, "forbidden") {
			v.logger.Warn().
				Str("shop", shopDomain).
				Msg("Shop token validation failed: token is invalid or revoked")
			return false, nil
		}
		return false, fmt.Errorf("shop token validation probe failed: %w", err)
	}

	v.logger.Debug().
		Str("shop", shopDomain).
		Msg("Shop token validation successful")
	return true, nil
}

// normalizeShopDomain ensures a bare shop handle gets the myshopify suffix.
func normalizeShopDomain(shopDomain string) string {
	if !strings.Contains(shopDomain, ".") {
		return shopDomain + ".myshopify.com"
	}
	return shopDomain
}
