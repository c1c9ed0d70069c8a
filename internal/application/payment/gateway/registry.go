package gateway

import (
	vo "github.com/postline-io/postline/internal/domain/payment/valueobjects"
	"github.com/postline-io/postline/internal/shared/errors"
)

// Registry is the closed set of configured provider adapters. It is built
// once at startup; lookups after that are read-only.
type Registry struct {
	gateways map[vo.Provider]PaymentGateway
}

func NewRegistry(gateways ...PaymentGateway) *Registry {
	m := make(map[vo.Provider]PaymentGateway, len(gateways))
	for _, g := range gateways {
		m[g.Name()] = g
	}
	return &Registry{gateways: m}
}

// Get returns the adapter for the provider or a validation error when the
// provider is unknown or not configured.
func (r *Registry) Get(provider vo.Provider) (PaymentGateway, error) {
	g, ok := r.gateways[provider]
	if !ok {
		return nil, errors.NewValidationError("unsupported payment provider: " + provider.String())
	}
	return g, nil
}

// All returns every configured adapter, for health checks.
func (r *Registry) All() []PaymentGateway {
	out := make([]PaymentGateway, 0, len(r.gateways))
	for _, g := range r.gateways {
		out = append(out, g)
	}
	return out
}
