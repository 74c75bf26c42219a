// Package gateway implements the upstream provider adapters. Each adapter
// owns one provider's request shaping, authentication and response
// normalization; the services only ever see ports.GatewayAdapter.
package gateway

import (
	"net/http"

	"payment-aggregator/internal/core/ports"
)

// HTTPClient is the outbound client interface, substitutable in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registry implements ports.GatewayRegistry over a fixed adapter set built
// at startup from configuration.
type Registry struct {
	adapters map[string]ports.GatewayAdapter
}

// NewRegistry creates a registry holding the given adapters, keyed by name.
func NewRegistry(adapters ...ports.GatewayAdapter) *Registry {
	m := make(map[string]ports.GatewayAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Get resolves a provider name to its adapter.
func (r *Registry) Get(name string) (ports.GatewayAdapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
