package provider

import (
	"context"
	"errors"
	"fmt"
)

var _ RateProvider = (*ExchangeProviderFacade)(nil)

// ExchangeProviderFacade is an abstraction that calls providers sequentially.
type ExchangeProviderFacade struct {
	providers []RateProvider
}

// NewExchangeProviderFacade creates a new ExchangeProviderFacade with the given list of providers.
func NewExchangeProviderFacade(providers ...RateProvider) *ExchangeProviderFacade {
	return &ExchangeProviderFacade{
		providers: providers,
	}
}

// Quote calls providers sequentially until one succeeds.
func (p *ExchangeProviderFacade) Quote(ctx context.Context, from, to string) (Quote, error) {
	var errs []error
	for _, prov := range p.providers {
		quote, err := prov.Quote(ctx, from, to)
		if err == nil {
			return quote, nil
		}
		errs = append(errs, err)
	}

	return Quote{}, fmt.Errorf("all providers failed: %w", errors.Join(errs...))
}
