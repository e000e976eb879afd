package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CachedRateProviderDecorator wraps a RateProvider with Redis caching. It
// shields the upstream API from repeated fetches for the same pair; the
// durable quote cache in Postgres is a separate concern.
type CachedRateProviderDecorator struct {
	provider     RateProvider
	cache        *redis.Client
	ttl          time.Duration
	providerName string
}

// NewCachedRateProvider creates a new CachedRateProviderDecorator.
func NewCachedRateProvider(provider RateProvider, cache *redis.Client, ttl time.Duration, providerName string) *CachedRateProviderDecorator {
	return &CachedRateProviderDecorator{
		provider:     provider,
		cache:        cache,
		ttl:          ttl,
		providerName: providerName,
	}
}

func (p *CachedRateProviderDecorator) cacheKey(from, to string) string {
	return fmt.Sprintf("provider_cache:%s:{%s:%s}", p.providerName, from, to)
}

// Quote attempts to fetch the quote from cache before calling the underlying provider.
// Cached entries whose validity deadline has passed are ignored.
func (p *CachedRateProviderDecorator) Quote(ctx context.Context, from, to string) (Quote, error) {
	if p.cache == nil {
		return p.provider.Quote(ctx, from, to)
	}

	key := p.cacheKey(from, to)

	// check cache
	vals, err := p.cache.HMGet(ctx, key, "rate", "valid_until").Result()
	if err == nil && len(vals) == 2 && vals[0] != nil && vals[1] != nil {
		rateStr, ok1 := vals[0].(string)
		untilStr, ok2 := vals[1].(string)
		if ok1 && ok2 {
			rate, err1 := decimal.NewFromString(rateStr)
			until, err2 := time.Parse(time.RFC3339, untilStr)
			if err1 == nil && err2 == nil && time.Now().Before(until) {
				return Quote{Rate: rate, ValidUntil: until}, nil
			}
		}
	}

	quote, err := p.provider.Quote(ctx, from, to)
	if err != nil {
		return Quote{}, err
	}

	pipe := p.cache.Pipeline()
	pipe.HSet(ctx, key, "rate", quote.Rate.String(), "valid_until", quote.ValidUntil.Format(time.RFC3339))
	pipe.Expire(ctx, key, p.ttl)
	_, _ = pipe.Exec(ctx)

	return quote, nil
}

var _ RateProvider = (*CachedRateProviderDecorator)(nil)
