package provider

import (
	"strings"

	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/pkg/apperror"
)

// Registry resolves a gateway adapter by its lowercase name.
type Registry struct {
	adapters map[string]ports.ProviderAdapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...ports.ProviderAdapter) *Registry {
	m := make(map[string]ports.ProviderAdapter, len(adapters))
	for _, a := range adapters {
		m[strings.ToLower(a.Name())] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter for name, or an UnknownProvider error.
func (r *Registry) Get(name string) (ports.ProviderAdapter, error) {
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, apperror.ErrUnknownProvider(name)
	}
	return a, nil
}
