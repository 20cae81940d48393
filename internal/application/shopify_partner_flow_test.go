package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartnerFlowRequiresBothFields(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		orgID       string
		wantMessage string
	}{
		{"missing token", "", "12345", "Partner Access Token is required"},
		{"missing org id", "prtapi_token", "", "Organization ID is required"},
		{"both missing reports token first", "", "", "Partner Access Token is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			flow := NewShopifyPartnerFlow(backend, &nopPublisher{}, zerolog.Nop(), nil)

			_, err := flow.Submit(context.Background(), tt.token, tt.orgID)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
			assert.Equal(t, tt.wantMessage, err.Error())
			assert.Empty(t, backend.recorded(), "validation failures must never reach the network")
		})
	}
}

func TestPartnerFlowTriggersBestEffortSync(t *testing.T) {
	backend := &fakeBackend{
		connectPartnerFn: func(input ports.PartnerConnectInput) (*ports.PartnerConnectResult, error) {
			return &ports.PartnerConnectResult{IntegrationID: 9}, nil
		},
	}
	flow := NewShopifyPartnerFlow(backend, &nopPublisher{}, zerolog.Nop(), nil)

	result, err := flow.Submit(context.Background(), "prtapi_token", "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.IntegrationID)
	assert.Equal(t, []string{"ConnectPartner", "TriggerSync(9)"}, backend.recorded(),
		"sync must only run after credential success is confirmed")
}

func TestPartnerFlowSwallowsSyncFailure(t *testing.T) {
	backend := &fakeBackend{
		triggerSyncFn: func(int64) error {
			return fmt.Errorf("sync worker unavailable")
		},
	}
	var successID int64
	flow := NewShopifyPartnerFlow(backend, &nopPublisher{}, zerolog.Nop(), func(id int64) {
		successID = id
	})

	result, err := flow.Submit(context.Background(), "prtapi_token", "12345")
	require.NoError(t, err, "a best-effort sync failure must not fail the connect")
	assert.Equal(t, int64(7), result.IntegrationID)
	assert.Equal(t, int64(7), successID, "the success callback still fires")
}

func TestPartnerFlowTreatsConflictAsAlreadyConnected(t *testing.T) {
	backend := &fakeBackend{
		connectPartnerFn: func(ports.PartnerConnectInput) (*ports.PartnerConnectResult, error) {
			return nil, domain.ErrConflict
		},
	}
	flow := NewShopifyPartnerFlow(backend, &nopPublisher{}, zerolog.Nop(), nil)

	result, err := flow.Submit(context.Background(), "prtapi_token", "12345")
	require.NoError(t, err, "409 is not a retryable error")
	assert.True(t, result.AlreadyConnected)
	assert.Equal(t, "/integrations", result.NavigateTo)
}

func TestPartnerFlowNoIntegrationIDSkipsSync(t *testing.T) {
	backend := &fakeBackend{
		connectPartnerFn: func(ports.PartnerConnectInput) (*ports.PartnerConnectResult, error) {
			return &ports.PartnerConnectResult{}, nil
		},
	}
	flow := NewShopifyPartnerFlow(backend, &nopPublisher{}, zerolog.Nop(), nil)

	_, err := flow.Submit(context.Background(), "prtapi_token", "12345")
	require.NoError(t, err)
	assert.Equal(t, []string{"ConnectPartner"}, backend.recorded())
}

func TestPartnerFlowFallsBackOnNetworkError(t *testing.T) {
	backend := &fakeBackend{
		connectPartnerFn: func(ports.PartnerConnectInput) (*ports.PartnerConnectResult, error) {
			return nil, domain.ErrNetwork
		},
	}
	flow := NewShopifyPartnerFlow(backend, &nopPublisher{}, zerolog.Nop(), nil)

	_, err := flow.Submit(context.Background(), "prtapi_token", "12345")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, "Failed to connect to the Shopify Partner API. Please try again.", err.Error())
}
