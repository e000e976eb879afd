package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a single exchange quote returned by an external provider. The
// provider owns the validity deadline: after ValidUntil the quote is stale.
type Quote struct {
	Rate       decimal.Decimal
	ValidUntil time.Time
}

// RateProvider defines an interface for fetching exchange quotes from
// external sources. One concrete provider is wired per deployment.
type RateProvider interface {
	Quote(ctx context.Context, from, to string) (Quote, error)
}
