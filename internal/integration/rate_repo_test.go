//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"limitservice/internal/repository"
)

func newRateRepo() repository.RateRepository {
	return repository.NewPostgresRateRepository(testDB)
}

func rateQuoteCount(t *testing.T, ctx context.Context) int {
	t.Helper()
	var n int
	if err := testDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM rate_quotes").Scan(&n); err != nil {
		t.Fatalf("count rate_quotes: %v", err)
	}
	return n
}

func TestRateSaveAndFind(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)
	repo := newRateRepo()
	until := time.Now().Add(time.Hour).UTC()

	saved, err := repo.Save(ctx, &repository.RateQuote{
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Rate:         decimal.RequireFromString("0.85"),
		ValidUntil:   until,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.FindByPair(ctx, "USD", "EUR")
	if err != nil {
		t.Fatalf("FindByPair: %v", err)
	}
	if got == nil || got.ID != saved.ID {
		t.Fatalf("expected row %s, got %+v", saved.ID, got)
	}
	if got.Rate.String() != "0.85" {
		t.Fatalf("expected rate 0.85, got %s", got.Rate)
	}
	if !got.ValidUntil.UTC().Truncate(time.Millisecond).Equal(until.Truncate(time.Millisecond)) {
		t.Fatalf("expected valid_until %v, got %v", until, got.ValidUntil)
	}
}

func TestRateFindByPair_NotFound(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)
	repo := newRateRepo()

	got, err := repo.FindByPair(ctx, "GBP", "JPY")
	if err != nil {
		t.Fatalf("FindByPair: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown pair, got %+v", got)
	}
}

func TestRateSave_UpsertKeepsIDAndRowCount(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)
	repo := newRateRepo()

	first, err := repo.Save(ctx, &repository.RateQuote{
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Rate:         decimal.RequireFromString("0.85"),
		ValidUntil:   time.Now().Add(time.Hour).UTC(),
	})
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}

	second, err := repo.Save(ctx, &repository.RateQuote{
		FromCurrency: "USD",
		ToCurrency:   "EUR",
		Rate:         decimal.RequireFromString("0.90"),
		ValidUntil:   time.Now().Add(2 * time.Hour).UTC(),
	})
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected stable id %s across refresh, got %s", first.ID, second.ID)
	}
	if second.Rate.String() != "0.9" {
		t.Fatalf("expected refreshed rate 0.9, got %s", second.Rate)
	}
	if n := rateQuoteCount(t, ctx); n != 1 {
		t.Fatalf("expected 1 row per pair, got %d", n)
	}

	// The reverse pair is a separate row.
	if _, err := repo.Save(ctx, &repository.RateQuote{
		FromCurrency: "EUR",
		ToCurrency:   "USD",
		Rate:         decimal.RequireFromString("1.17"),
		ValidUntil:   time.Now().Add(time.Hour).UTC(),
	}); err != nil {
		t.Fatalf("reverse Save: %v", err)
	}
	if n := rateQuoteCount(t, ctx); n != 2 {
		t.Fatalf("expected 2 rows after reverse pair, got %d", n)
	}
}
