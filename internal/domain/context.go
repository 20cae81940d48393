package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	tokenContextKey   contextKey = "session_token"
	sessionContextKey contextKey = "session"
)

// WithToken returns a context carrying the bearer token for the analytics
// backend.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext extracts the bearer token, or "" when absent.
func TokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(tokenContextKey).(string); ok {
		return token
	}
	return ""
}

// WithSession returns a context carrying the resolved session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the session, or nil when absent.
func SessionFromContext(ctx context.Context) *Session {
	if session, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return session
	}
	return nil
}
