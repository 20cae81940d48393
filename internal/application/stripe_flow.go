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
	// stripeKeyInvalidMessage is shown when the secret key fails the local
	// prefix check. No network call is made in that case.
	stripeKeyInvalidMessage = "Invalid Stripe Secret Key format..."

	stripeConnectFailedMessage = "Failed to connect to Stripe. Please try again."

	// stripeRedirectDelay is how long the connected confirmation stays on
	// screen before the client navigates to the integration list.
	stripeRedirectDelay = 2 * time.Second
)

// StripeResult is the outcome of a successful Stripe connect submission.
type StripeResult struct {
	Integration   *domain.Integration
	Message       string
	RedirectTo    string
	RedirectAfter time.Duration
}

// StripeFlow is the single-field Stripe connection flow: validate the secret
// key locally, post it to the create-integration endpoint, and schedule the
// post-confirmation redirect.
type StripeFlow struct {
	api       ports.BackendClient
	events    ports.EventPublisher
	logger    zerolog.Logger
	onSuccess func(*domain.Integration)
}

// NewStripeFlow creates the Stripe connection flow. onSuccess runs after the
// backend confirms the integration; the embedding container uses it to
// reload the integration list. It may be nil.
func NewStripeFlow(api ports.BackendClient, events ports.EventPublisher, logger zerolog.Logger, onSuccess func(*domain.Integration)) *StripeFlow {
	return &StripeFlow{
		api:       api,
		events:    events,
		logger:    logger,
		onSuccess: onSuccess,
	}
}

// Submit validates and submits a Stripe secret key. Validation failures are
// *domain.ValidationError and never reach the network.
func (f *StripeFlow) Submit(ctx context.Context, secretKey string) (*StripeResult, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" || !strings.HasPrefix(secretKey, "sk_") {
		return nil, &domain.ValidationError{Field: "secret_key", Message: stripeKeyInvalidMessage}
	}

	integration, err := f.api.CreateIntegration(ctx, ports.CreateIntegrationInput{
		Platform:     domain.PlatformStripe,
		PlatformName: "Stripe",
		Credentials:  map[string]string{"secret_key": secretKey},
	})
	if err != nil {
		return nil, f.interpretError(err)
	}

	f.logger.Info().Msg("Stripe integration created, initial sync in progress")
	f.publishConnected(integration)
	if f.onSuccess != nil {
		f.onSuccess(integration)
	}

	return &StripeResult{
		Integration:   integration,
		Message:       "Stripe Connected Successfully!",
		RedirectTo:    "/integrations",
		RedirectAfter: stripeRedirectDelay,
	}, nil
}

func (f *StripeFlow) interpretError(err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		return err
	}
	var backendErr *domain.BackendError
	if errors.As(err, &backendErr) && backendErr.Message != "" {
		return err
	}
	// Network failure or a rejection without a message: generic fallback.
	return &domain.BackendError{Message: stripeConnectFailedMessage}
}

func (f *StripeFlow) publishConnected(integration *domain.Integration) {
	event := &domain.IntegrationEvent{
		Type:       domain.EventConnected,
		Platform:   domain.PlatformStripe,
		OccurredAt: time.Now(),
	}
	if integration != nil {
		event.IntegrationID = integration.ID
	}
	f.events.Publish(event)
}
