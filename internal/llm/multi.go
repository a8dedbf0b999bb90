package llm

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// MultiClient sends each request to the provider that serves its model.
// Models without a route, or routed to a provider that was never added,
// go to the fallback.
type MultiClient struct {
	fallback  Client
	providers map[string]Client
	routes    map[string]string // model → provider
}

// NewMultiClient returns a router with no routes. fallback may be nil, in
// which case unrouted models fail.
func NewMultiClient(fallback Client) *MultiClient {
	return &MultiClient{
		fallback:  fallback,
		providers: map[string]Client{},
		routes:    map[string]string{},
	}
}

// AddProvider registers the client for provider, replacing any earlier one.
func (m *MultiClient) AddProvider(provider string, c Client) {
	m.providers[provider] = c
}

// HasProvider reports whether provider has a client.
func (m *MultiClient) HasProvider(provider string) bool {
	_, ok := m.providers[provider]
	return ok
}

// AddModel routes model to provider.
func (m *MultiClient) AddModel(model, provider string) {
	m.routes[model] = provider
}

// Providers lists the registered provider names, sorted.
func (m *MultiClient) Providers() []string {
	return slices.Sorted(maps.Keys(m.providers))
}

// Resolve returns the client for model and the provider it was routed
// to, "" meaning the fallback.
func (m *MultiClient) Resolve(model string) (Client, string) {
	if p, ok := m.routes[model]; ok {
		if c := m.providers[p]; c != nil {
			return c, p
		}
	}
	return m.fallback, ""
}

// Chat implements [Client].
func (m *MultiClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	c, _ := m.Resolve(model)
	if c == nil {
		return nil, fmt.Errorf("no provider serves model %q", model)
	}
	return c.Chat(ctx, model, messages, tools)
}
