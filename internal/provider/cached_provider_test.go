package provider

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCachedRateProvider_Quote(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	from := "USD"
	to := "EUR"
	until := time.Now().Add(time.Hour).Truncate(time.Second).UTC()
	fresh := Quote{Rate: decimal.RequireFromString("0.85"), ValidUntil: until}
	ttl := 10 * time.Second

	t.Run("cache miss then hit", func(t *testing.T) {
		mr.FlushAll()
		mockProv := new(MockProvider)
		mockProv.On("Quote", mock.Anything, from, to).Return(fresh, nil).Once()

		cachedProv := NewCachedRateProvider(mockProv, rdb, ttl, "test_provider")

		// First call - cache miss
		got, err := cachedProv.Quote(context.Background(), from, to)
		assert.NoError(t, err)
		assert.Equal(t, "0.85", got.Rate.String())
		assert.True(t, got.ValidUntil.Equal(until))
		mockProv.AssertExpectations(t)

		// Second call - cache hit (MockProvider should NOT be called again because of .Once())
		got2, err := cachedProv.Quote(context.Background(), from, to)
		assert.NoError(t, err)
		assert.Equal(t, "0.85", got2.Rate.String())
		assert.True(t, got2.ValidUntil.Equal(until))
	})

	t.Run("provider error is not cached", func(t *testing.T) {
		mr.FlushAll()
		mockProv := new(MockProvider)
		mockProv.On("Quote", mock.Anything, from, to).Return(Quote{}, assert.AnError).Once()

		cachedProv := NewCachedRateProvider(mockProv, rdb, ttl, "test_provider")

		// First call - provider error
		_, err := cachedProv.Quote(context.Background(), from, to)
		assert.Error(t, err)

		// Second call - provider should be called again
		mockProv.On("Quote", mock.Anything, from, to).Return(fresh, nil).Once()
		got, err := cachedProv.Quote(context.Background(), from, to)
		assert.NoError(t, err)
		assert.Equal(t, "0.85", got.Rate.String())
		mockProv.AssertExpectations(t)
	})

	t.Run("cache expires", func(t *testing.T) {
		mr.FlushAll()
		mockProv := new(MockProvider)
		mockProv.On("Quote", mock.Anything, from, to).Return(fresh, nil).Once()

		cachedProv := NewCachedRateProvider(mockProv, rdb, ttl, "test_provider")

		_, _ = cachedProv.Quote(context.Background(), from, to)

		mr.FastForward(ttl + time.Second)

		// Second call - cache expired, should call provider again
		mockProv.On("Quote", mock.Anything, from, to).Return(fresh, nil).Once()
		_, err := cachedProv.Quote(context.Background(), from, to)
		assert.NoError(t, err)
		mockProv.AssertExpectations(t)
	})

	t.Run("entry past validity deadline is ignored", func(t *testing.T) {
		mr.FlushAll()
		stale := Quote{Rate: decimal.RequireFromString("0.80"), ValidUntil: time.Now().Add(-time.Minute).UTC()}

		mockProv := new(MockProvider)
		mockProv.On("Quote", mock.Anything, from, to).Return(stale, nil).Once()

		cachedProv := NewCachedRateProvider(mockProv, rdb, ttl, "test_provider")
		_, _ = cachedProv.Quote(context.Background(), from, to)

		// Cached entry exists but its deadline has passed: fetch again.
		mockProv.On("Quote", mock.Anything, from, to).Return(fresh, nil).Once()
		got, err := cachedProv.Quote(context.Background(), from, to)
		assert.NoError(t, err)
		assert.Equal(t, "0.85", got.Rate.String())
		mockProv.AssertExpectations(t)
	})

	t.Run("nil cache passes through", func(t *testing.T) {
		mockProv := new(MockProvider)
		mockProv.On("Quote", mock.Anything, from, to).Return(fresh, nil).Twice()

		cachedProv := NewCachedRateProvider(mockProv, nil, ttl, "test_provider")
		_, err := cachedProv.Quote(context.Background(), from, to)
		assert.NoError(t, err)
		_, err = cachedProv.Quote(context.Background(), from, to)
		assert.NoError(t, err)
		mockProv.AssertExpectations(t)
	})
}
