package valueobjects

import "fmt"

// Provider identifies a payment gateway integration. The set is closed:
// gateways are registered once at startup, never discovered at runtime.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPayme  Provider = "payme"
	ProviderClick  Provider = "click"
)

func NewProvider(s string) (Provider, error) {
	p := Provider(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown payment provider: %s", s)
	}
	return p, nil
}

func (p Provider) IsValid() bool {
	switch p {
	case ProviderStripe, ProviderPayme, ProviderClick:
		return true
	default:
		return false
	}
}

func (p Provider) String() string {
	return string(p)
}
