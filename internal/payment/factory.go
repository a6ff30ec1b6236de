package payment

import (
	"strings"

	"github.com/numera-app/numera-payments/internal/domain"
)

// Factory selects the concrete payment provider for a user's region. It is
// the single seam through which all provider selection flows: a new
// provider/region pair is added here and nowhere else. It carries no
// mutable state, so tests can construct one per case with arbitrary
// providers.
type Factory struct {
	stripe   domain.PaymentProvider
	yookassa domain.PaymentProvider
}

// NewFactory creates a factory over the two providers the platform serves.
func NewFactory(stripe, yookassa domain.PaymentProvider) *Factory {
	return &Factory{stripe: stripe, yookassa: yookassa}
}

// ForRegion returns the provider serving the region: YooKassa for RU,
// Stripe for everything else.
func (f *Factory) ForRegion(region domain.Region) domain.PaymentProvider {
	if region == domain.RegionRU {
		return f.yookassa
	}
	return f.stripe
}

// ByName returns the provider with the given identifier, or nil. Used by
// the webhook routes, which are addressed per provider rather than per
// region.
func (f *Factory) ByName(name string) domain.PaymentProvider {
	switch name {
	case f.stripe.Name():
		return f.stripe
	case f.yookassa.Name():
		return f.yookassa
	default:
		return nil
	}
}

// RegionFromCountry maps an ISO 3166-1 alpha-2 country code to a provider
// region.
func RegionFromCountry(code string) domain.Region {
	if strings.ToUpper(code) == "RU" {
		return domain.RegionRU
	}
	return domain.RegionOther
}
