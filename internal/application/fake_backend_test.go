package application

import (
	"context"
	"fmt"
	"sync"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/ports"
)

// fakeBackend records every call so tests can assert which network
// operations ran (and, for validation failures, that none did).
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	listIntegrationsFn func(displayCurrency string) ([]*domain.Integration, error)
	createFn           func(input ports.CreateIntegrationInput) (*domain.Integration, error)
	connectPartnerFn   func(input ports.PartnerConnectInput) (*ports.PartnerConnectResult, error)
	oauthURLFn         func() (string, error)
	oauthCompleteFn    func(input ports.OAuthCompleteInput) (string, error)
	triggerSyncFn      func(id int64) error
	disconnectFn       func(id int64) error
	removeFn           func(id int64) error
	listShopsFn        func(id int64) ([]*domain.Shop, error)
	storeShopTokenFn   func(id int64, shopDomain, token string) error
	removeShopTokenFn  func(id int64, shopDomain string) error
}

var _ ports.BackendClient = (*fakeBackend)(nil)

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ListIntegrations(_ context.Context, displayCurrency string) ([]*domain.Integration, error) {
	f.record("ListIntegrations")
	if f.listIntegrationsFn != nil {
		return f.listIntegrationsFn(displayCurrency)
	}
	return nil, nil
}

func (f *fakeBackend) CreateIntegration(_ context.Context, input ports.CreateIntegrationInput) (*domain.Integration, error) {
	f.record("CreateIntegration")
	if f.createFn != nil {
		return f.createFn(input)
	}
	return &domain.Integration{ID: 1, Platform: input.Platform}, nil
}

func (f *fakeBackend) ConnectPartner(_ context.Context, input ports.PartnerConnectInput) (*ports.PartnerConnectResult, error) {
	f.record("ConnectPartner")
	if f.connectPartnerFn != nil {
		return f.connectPartnerFn(input)
	}
	return &ports.PartnerConnectResult{IntegrationID: 7}, nil
}

func (f *fakeBackend) EconomicOAuthURL(_ context.Context) (string, error) {
	f.record("EconomicOAuthURL")
	if f.oauthURLFn != nil {
		return f.oauthURLFn()
	}
	return "https://secure.e-conomic.com/secure/api1/requestaccess.aspx?appId=test", nil
}

func (f *fakeBackend) CompleteEconomicOAuth(_ context.Context, input ports.OAuthCompleteInput) (string, error) {
	f.record("CompleteEconomicOAuth")
	if f.oauthCompleteFn != nil {
		return f.oauthCompleteFn(input)
	}
	return "", nil
}

func (f *fakeBackend) TriggerSync(_ context.Context, id int64) error {
	f.record(fmt.Sprintf("TriggerSync(%d)", id))
	if f.triggerSyncFn != nil {
		return f.triggerSyncFn(id)
	}
	return nil
}

func (f *fakeBackend) Disconnect(_ context.Context, id int64) error {
	f.record(fmt.Sprintf("Disconnect(%d)", id))
	if f.disconnectFn != nil {
		return f.disconnectFn(id)
	}
	return nil
}

func (f *fakeBackend) Remove(_ context.Context, id int64) error {
	f.record(fmt.Sprintf("Remove(%d)", id))
	if f.removeFn != nil {
		return f.removeFn(id)
	}
	return nil
}

func (f *fakeBackend) ListShops(_ context.Context, id int64) ([]*domain.Shop, error) {
	f.record(fmt.Sprintf("ListShops(%d)", id))
	if f.listShopsFn != nil {
		return f.listShopsFn(id)
	}
	return nil, nil
}

func (f *fakeBackend) StoreShopToken(_ context.Context, id int64, shopDomain, token string) error {
	f.record(fmt.Sprintf("StoreShopToken(%d,%s)", id, shopDomain))
	if f.storeShopTokenFn != nil {
		return f.storeShopTokenFn(id, shopDomain, token)
	}
	return nil
}

func (f *fakeBackend) RemoveShopToken(_ context.Context, id int64, shopDomain string) error {
	f.record(fmt.Sprintf("RemoveShopToken(%d,%s)", id, shopDomain))
	if f.removeShopTokenFn != nil {
		return f.removeShopTokenFn(id, shopDomain)
	}
	return nil
}

// nopPublisher collects published events without fan-out.
type nopPublisher struct {
	mu     sync.Mutex
	events []*domain.IntegrationEvent
}

func (p *nopPublisher) Publish(event *domain.IntegrationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *nopPublisher) published() []*domain.IntegrationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.IntegrationEvent(nil), p.events...)
}
