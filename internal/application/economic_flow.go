package application

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	// grantTokenLength is E-conomic's fixed grant token length. Shorter or
	// longer strings are rejected before any network call.
	grantTokenLength = 26

	grantTokenLengthMessage      = "The grant token must be exactly 26 characters"
	authorizationMissingMessage  = "Open the E-conomic authorization page before entering the token"
	economicConnectFailedMessage = "Failed to connect to E-conomic. Please try again."
	economicConnectedMessage     = "E-conomic connected successfully"
)

type economicStep int

const (
	stepInstructions economicStep = iota
	stepToken
)

// economicState is one session's progress through the two-step flow.
type economicState struct {
	step             economicStep
	authorizationURL string
}

// EconomicFlow is the two-step E-conomic grant-token flow. Step one fetches
// the authorization URL from the backend; the token step only unlocks once
// that fetch succeeded. Step two validates and exchanges the pasted grant
// token.
//
// Progress is tracked per session token: one user unlocking their token step
// never unlocks it for anyone else, and one user's completion never resets
// another user mid-flow.
type EconomicFlow struct {
	mu     sync.Mutex
	states map[string]*economicState

	api       ports.BackendClient
	events    ports.EventPublisher
	logger    zerolog.Logger
	onSuccess func()
}

// NewEconomicFlow creates the E-conomic connection flow. onSuccess may be
// nil.
func NewEconomicFlow(api ports.BackendClient, events ports.EventPublisher, logger zerolog.Logger, onSuccess func()) *EconomicFlow {
	return &EconomicFlow{
		states:    make(map[string]*economicState),
		api:       api,
		events:    events,
		logger:    logger,
		onSuccess: onSuccess,
	}
}

// BeginAuthorization fetches the authorization URL and unlocks the token
// step for the calling session. The URL is opened by the user in a separate
// browsing context.
func (f *EconomicFlow) BeginAuthorization(ctx context.Context) (string, error) {
	oauthURL, err := f.api.EconomicOAuthURL(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return "", err
		}
		var backendErr *domain.BackendError
		if errors.As(err, &backendErr) && backendErr.Message != "" {
			return "", err
		}
		return "", &domain.BackendError{Message: economicConnectFailedMessage}
	}

	f.mu.Lock()
	f.states[domain.TokenFromContext(ctx)] = &economicState{
		step:             stepToken,
		authorizationURL: oauthURL,
	}
	f.mu.Unlock()

	f.logger.Info().Msg("E-conomic authorization URL obtained")
	return oauthURL, nil
}

// CanSubmitToken reports whether the token step is unlocked for the calling
// session.
func (f *EconomicFlow) CanSubmitToken(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[domain.TokenFromContext(ctx)]
	return ok && state.step == stepToken
}

// SubmitToken validates and exchanges a pasted grant token. On success the
// calling session's flow resets to its initial state; on failure the token
// step stays active so the user can retry without losing progress.
func (f *EconomicFlow) SubmitToken(ctx context.Context, grantToken string) (string, error) {
	if !f.CanSubmitToken(ctx) {
		return "", &domain.ValidationError{Field: "grant_token", Message: authorizationMissingMessage}
	}
	if utf8.RuneCountInString(grantToken) != grantTokenLength {
		return "", &domain.ValidationError{Field: "grant_token", Message: grantTokenLengthMessage}
	}

	message, err := f.api.CompleteEconomicOAuth(ctx, ports.OAuthCompleteInput{
		GrantToken:   grantToken,
		PlatformName: "E-conomic",
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return "", err
		}
		var backendErr *domain.BackendError
		if errors.As(err, &backendErr) && backendErr.Message != "" {
			return "", err
		}
		return "", &domain.BackendError{Message: economicConnectFailedMessage}
	}

	f.Reset(ctx)
	f.events.Publish(&domain.IntegrationEvent{
		Type:       domain.EventConnected,
		Platform:   domain.PlatformEconomic,
		Message:    message,
		OccurredAt: time.Now(),
	})
	if f.onSuccess != nil {
		f.onSuccess()
	}

	if message == "" {
		message = economicConnectedMessage
	}
	return message, nil
}

// Reset clears the calling session's step and token state, returning it to
// the instructions step.
func (f *EconomicFlow) Reset(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, domain.TokenFromContext(ctx))
}

// AuthorizationURL returns the calling session's last fetched authorization
// URL, or "" before its BeginAuthorization has succeeded.
func (f *EconomicFlow) AuthorizationURL(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, ok := f.states[domain.TokenFromContext(ctx)]; ok {
		return state.authorizationURL
	}
	return ""
}
