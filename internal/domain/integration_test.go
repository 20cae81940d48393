package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectHint(t *testing.T) {
	cases := []struct {
		name      string
		lastError *LastError
		want      string
	}{
		{
			name: "no error",
			want: "",
		},
		{
			name:      "plain sync failure",
			lastError: &LastError{Message: "upstream timed out"},
			want:      "",
		},
		{
			name:      "invalid MAC",
			lastError: &LastError{Message: "webhook MAC is invalid for payload"},
			want:      "Authentication with Stripe failed. Please reconnect the integration.",
		},
		{
			name:      "invalid signature",
			lastError: &LastError{Message: "Invalid signature on callback"},
			want:      "Authentication with Stripe failed. Please reconnect the integration.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			integration := &Integration{Name: "Stripe", LastError: tc.lastError}
			assert.Equal(t, tc.want, integration.ReconnectHint())
		})
	}
}

func TestMatchesPlatform(t *testing.T) {
	stripe := AvailablePlatforms[0]
	shopify := AvailablePlatforms[1]

	t.Run("key match wins", func(t *testing.T) {
		integration := &Integration{Platform: PlatformStripe, Name: "whatever"}
		assert.True(t, integration.MatchesPlatform(stripe))
		assert.False(t, integration.MatchesPlatform(shopify))
	})

	t.Run("legacy records fall back to name substring", func(t *testing.T) {
		integration := &Integration{Name: "My Stripe Account"}
		assert.True(t, integration.MatchesPlatform(stripe))
		assert.False(t, integration.MatchesPlatform(shopify))
	})

	t.Run("legacy match is case insensitive", func(t *testing.T) {
		integration := &Integration{Name: "SHOPIFY Partners EU"}
		assert.True(t, integration.MatchesPlatform(shopify))
	})
}

func TestSessionExpired(t *testing.T) {
	live := &Session{ExpiresAt: time.Now().Add(time.Hour)}
	assert.False(t, live.Expired())

	stale := &Session{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, stale.Expired())
}
