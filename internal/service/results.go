package service

import (
	"time"

	"limitservice/internal/repository"
)

// LimitResult represents a month limit returned by the service layer.
type LimitResult struct {
	ID        string
	ClientID  string
	Month     string // YYYY-MM
	Balance   string
	CreatedAt string
}

func limitResultFromRepo(l *repository.MonthLimit) *LimitResult {
	return &LimitResult{
		ID:        l.ID,
		ClientID:  l.ClientID,
		Month:     l.MonthStart.Format("2006-01"),
		Balance:   l.LimitBalance.String(),
		CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ExceededResult is one row of the exceeded-transactions report: the flagged
// transaction together with the limit row it referenced at write time.
type ExceededResult struct {
	TransactionID string
	Currency      string
	Amount        string
	OperationTime string
	Limit         LimitResult
}

func exceededResultFromRepo(e repository.ExceededTransaction) ExceededResult {
	return ExceededResult{
		TransactionID: e.Transaction.ID,
		Currency:      e.Transaction.Currency,
		Amount:        e.Transaction.Amount.String(),
		OperationTime: e.Transaction.OperationTime.UTC().Format(time.RFC3339),
		Limit:         *limitResultFromRepo(&e.Limit),
	}
}

// RateResult represents an exchange quote returned by the service layer.
type RateResult struct {
	From       string
	To         string
	Rate       string
	ValidUntil string
}

func rateResultFromRepo(q *repository.RateQuote) *RateResult {
	return &RateResult{
		From:       q.FromCurrency,
		To:         q.ToCurrency,
		Rate:       q.Rate.String(),
		ValidUntil: q.ValidUntil.UTC().Format(time.RFC3339),
	}
}
