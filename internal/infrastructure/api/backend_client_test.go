package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/infrastructure/metrics"
	"revlens-dashboard-layer/internal/infrastructure/repository"
	"revlens-dashboard-layer/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, ports.SessionRepository, *atomic.Int32) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessions := repository.NewMemorySessionRepository()
	hookCalls := &atomic.Int32{}
	client := NewClient(server.URL, sessions, func(string) {
		hookCalls.Add(1)
	}, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	return client, sessions, hookCalls
}

func authedContext(token string) context.Context {
	return domain.WithToken(context.Background(), token)
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "data": []}`))
	}))

	_, err := client.ListIntegrations(authedContext("tok-123"), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClientDecodesIntegrationList(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DKK", r.URL.Query().Get("currency"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": [
				{"id": 7, "platform": "stripe", "name": "Stripe", "status": "active", "revenue": 1250.5, "currency": "DKK"}
			]
		}`))
	}))

	integrations, err := client.ListIntegrations(authedContext("tok"), "DKK")
	require.NoError(t, err)
	require.Len(t, integrations, 1)
	assert.Equal(t, int64(7), integrations[0].ID)
	assert.Equal(t, domain.PlatformStripe, integrations[0].Platform)
	assert.Equal(t, domain.StatusActive, integrations[0].Status)
	assert.Equal(t, 1250.5, integrations[0].Revenue)
}

func TestClientTreatsMissingSuccessAsFailure(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": []}`))
	}))

	_, err := client.ListIntegrations(authedContext("tok"), "")
	require.Error(t, err)
	var backendErr *domain.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusOK, backendErr.StatusCode)
}

func TestClientTreatsFalseSuccessAsFailure(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "message": "Invalid Stripe credentials"}`))
	}))

	_, err := client.CreateIntegration(authedContext("tok"), ports.CreateIntegrationInput{Platform: "stripe"})
	require.Error(t, err)
	var backendErr *domain.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "Invalid Stripe credentials", backendErr.Message)
}

func TestClientMapsConflict(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success": false, "message": "Organization already connected"}`))
	}))

	_, err := client.ConnectPartner(authedContext("tok"), ports.PartnerConnectInput{})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "Organization already connected")
}

func TestClientUnauthorizedClearsSessionExactlyOnce(t *testing.T) {
	client, sessions, hookCalls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	ctx := authedContext("tok-expired")
	require.NoError(t, sessions.Save(context.Background(), &domain.Session{
		Token:     "tok-expired",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	_, err := client.ListIntegrations(ctx, "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	session, err := sessions.GetByToken(context.Background(), "tok-expired")
	require.NoError(t, err)
	assert.Nil(t, session, "the stored session must be cleared after a 401")
	assert.Equal(t, int32(1), hookCalls.Load())

	// A concurrent request failing with the same stale token must not fire
	// the hook again.
	_, err = client.ListIntegrations(ctx, "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestClientUnauthorizedErrorBodyNeedNotBeJSON(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorized"))
	}))

	_, err := client.ListIntegrations(authedContext("tok"), "")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClientClassifiesNetworkErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	sessions := repository.NewMemorySessionRepository()
	client := NewClient(server.URL, sessions, nil, metrics.New(prometheus.NewRegistry()), zerolog.Nop())

	_, err := client.ListIntegrations(authedContext("tok"), "")
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestClientSurfacesBackendErrorMessage(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "message": "The grant token has expired"}`))
	}))

	_, err := client.CompleteEconomicOAuth(authedContext("tok"), ports.OAuthCompleteInput{
		GrantToken:   "g",
		PlatformName: "E-conomic",
	})
	require.Error(t, err)
	var backendErr *domain.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "The grant token has expired", backendErr.Message)
	assert.Equal(t, http.StatusBadRequest, backendErr.StatusCode)
}

func TestClientEconomicOAuthURL(t *testing.T) {
	t.Run("returned URL", func(t *testing.T) {
		client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": true, "oauth_url": "https://secure.e-conomic.com/secure/api1/requestaccess.aspx?appId=x"}`))
		}))

		url, err := client.EconomicOAuthURL(authedContext("tok"))
		require.NoError(t, err)
		assert.Equal(t, "https://secure.e-conomic.com/secure/api1/requestaccess.aspx?appId=x", url)
	})

	t.Run("missing URL is a failure", func(t *testing.T) {
		client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": true}`))
		}))

		_, err := client.EconomicOAuthURL(authedContext("tok"))
		require.Error(t, err)
	})
}

func TestClientMetricLabelUsesRouteShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(server.Close)

	registry := prometheus.NewRegistry()
	client := NewClient(server.URL, repository.NewMemorySessionRepository(), nil, metrics.New(registry), zerolog.Nop())

	ctx := authedContext("tok")
	require.NoError(t, client.TriggerSync(ctx, 1))
	require.NoError(t, client.TriggerSync(ctx, 2))
	require.NoError(t, client.TriggerSync(ctx, 3))

	families, err := registry.Gather()
	require.NoError(t, err)

	var checked bool
	for _, family := range families {
		if family.GetName() != "revlens_upstream_requests_total" {
			continue
		}
		// Distinct integration IDs must collapse into one series.
		require.Len(t, family.GetMetric(), 1)
		metric := family.GetMetric()[0]
		assert.Equal(t, float64(3), metric.GetCounter().GetValue())
		for _, label := range metric.GetLabel() {
			if label.GetName() == "endpoint" {
				assert.Equal(t, "/integrations/{id}/sync", label.GetValue())
				checked = true
			}
		}
	}
	require.True(t, checked, "upstream request counter was not collected")
}

func TestClientIntegrationActionPaths(t *testing.T) {
	var paths []string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))

	ctx := authedContext("tok")
	require.NoError(t, client.TriggerSync(ctx, 5))
	require.NoError(t, client.Disconnect(ctx, 5))
	require.NoError(t, client.Remove(ctx, 5))
	require.NoError(t, client.StoreShopToken(ctx, 5, "demo.myshopify.com", "shpat_x"))
	require.NoError(t, client.RemoveShopToken(ctx, 5, "demo.myshopify.com"))

	assert.Equal(t, []string{
		"POST /integrations/5/sync",
		"POST /integrations/5/disconnect",
		"DELETE /integrations/5",
		"POST /integrations/5/shops/demo.myshopify.com/token",
		"DELETE /integrations/5/shops/demo.myshopify.com/token",
	}, paths)
}
