package api

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"limitservice/internal/service"
)

type mockTransactionService struct {
	recordFunc       func(ctx context.Context, op service.ConsumableOperation) (string, error)
	exceededFunc     func(ctx context.Context, clientID string) ([]service.ExceededResult, error)
	currentLimitFunc func(ctx context.Context, clientID string, month time.Time) (*service.LimitResult, error)
	setLimitFunc     func(ctx context.Context, clientID string, month time.Time, balance decimal.Decimal) (*service.LimitResult, error)
}

func (m *mockTransactionService) Record(ctx context.Context, op service.ConsumableOperation) (string, error) {
	return m.recordFunc(ctx, op)
}

func (m *mockTransactionService) ExceededTransactions(ctx context.Context, clientID string) ([]service.ExceededResult, error) {
	return m.exceededFunc(ctx, clientID)
}

func (m *mockTransactionService) CurrentLimit(ctx context.Context, clientID string, month time.Time) (*service.LimitResult, error) {
	return m.currentLimitFunc(ctx, clientID, month)
}

func (m *mockTransactionService) SetLimit(ctx context.Context, clientID string, month time.Time, balance decimal.Decimal) (*service.LimitResult, error) {
	return m.setLimitFunc(ctx, clientID, month, balance)
}

type mockRateService struct {
	getRateFunc func(ctx context.Context, from, to string) (*service.RateResult, error)
}

func (m *mockRateService) GetRate(ctx context.Context, from, to string) (*service.RateResult, error) {
	return m.getRateFunc(ctx, from, to)
}

func (m *mockRateService) RefreshPair(_ context.Context, _, _ string) error {
	return nil
}
