// Package service implements the core business logic: the month-limit ledger,
// the transaction recorder and the rate exchange cache.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"limitservice/internal/repository"
)

// LimitLedger owns the month-limit debit arithmetic and the exceed signal.
// It performs no I/O of its own: storage is reached only through the
// LimitStore handle passed in, so the same logic runs inside or outside a
// unit of work.
type LimitLedger struct{}

// ResolveLimit returns the most recent MonthLimit for the client and month.
// When none exists a default-balance row is created — a write observable as
// a side effect of the read. The default value belongs to the store.
func (LimitLedger) ResolveLimit(ctx context.Context, store repository.LimitStore, clientID string, month time.Time) (*repository.MonthLimit, error) {
	limit, err := store.FindLatest(ctx, clientID, month)
	if err != nil {
		return nil, err
	}
	if limit != nil {
		return limit, nil
	}
	return store.CreateDefault(ctx, clientID, month)
}

// Debit returns a copy of limit with amount subtracted from the balance.
// Pure arithmetic, no I/O. The balance is allowed to go negative.
func (LimitLedger) Debit(limit repository.MonthLimit, amount decimal.Decimal) repository.MonthLimit {
	limit.LimitBalance = limit.LimitBalance.Sub(amount)
	return limit
}

// Exceeded reports whether the post-debit balance has gone negative.
// Negativity is the exceed signal, not an error.
func (LimitLedger) Exceeded(limit repository.MonthLimit) bool {
	return limit.LimitBalance.IsNegative()
}
