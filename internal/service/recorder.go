package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"limitservice/internal/repository"
)

// ConsumableOperation is an inbound monetary operation. It is not persisted
// as-is; it drives the debit and the transaction record derived from it.
type ConsumableOperation struct {
	ClientID      string
	OperationTime time.Time
	Amount        decimal.Decimal
	Currency      string
}

// TransactionServiceInterface defines the operations available for recording
// operations and managing month limits.
type TransactionServiceInterface interface {
	Record(ctx context.Context, op ConsumableOperation) (string, error)
	ExceededTransactions(ctx context.Context, clientID string) ([]ExceededResult, error)
	CurrentLimit(ctx context.Context, clientID string, month time.Time) (*LimitResult, error)
	SetLimit(ctx context.Context, clientID string, month time.Time, balance decimal.Decimal) (*LimitResult, error)
}

// TransactionRecorder orchestrates the limit ledger and the persistence of
// transaction records. It holds no logic beyond sequencing: resolve, debit,
// persist limit, persist transaction — all inside one unit of work.
type TransactionRecorder struct {
	limits    repository.LimitRepository
	ledger    LimitLedger
	validator Validator
	log       *zap.SugaredLogger
}

// NewTransactionRecorder creates a new TransactionRecorder.
func NewTransactionRecorder(limits repository.LimitRepository, validator Validator, logger *zap.SugaredLogger) *TransactionRecorder {
	return &TransactionRecorder{
		limits:    limits,
		validator: validator,
		log:       logger,
	}
}

// Record debits the operation amount from the client's limit for the
// operation's calendar month and persists an immutable transaction record
// whose exceeded flag reflects the post-debit balance. The whole sequence
// runs atomically per (client, month): a failure leaves both the limit and
// the transaction log untouched.
func (r *TransactionRecorder) Record(ctx context.Context, op ConsumableOperation) (string, error) {
	if _, err := uuid.Parse(op.ClientID); err != nil {
		return "", ErrInvalidClientID
	}
	currency, err := normalizeCurrency(op.Currency, r.validator)
	if err != nil {
		return "", err
	}
	if !op.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	month := MonthOf(op.OperationTime)

	var txID string
	var exceeded bool
	err = r.limits.InTx(ctx, op.ClientID, month, func(store repository.LimitStore) error {
		limit, err := r.ledger.ResolveLimit(ctx, store, op.ClientID, month)
		if err != nil {
			return err
		}

		updated := r.ledger.Debit(*limit, op.Amount)
		saved, err := store.Save(ctx, &updated)
		if err != nil {
			return err
		}

		exceeded = r.ledger.Exceeded(*saved)
		txID, err = store.SaveTransaction(ctx, &repository.TransactionRecord{
			ClientID:      op.ClientID,
			Currency:      currency,
			Amount:        op.Amount,
			OperationTime: op.OperationTime,
			LimitExceeded: exceeded,
			MonthLimitID:  saved.ID,
		})
		return err
	})
	if err != nil {
		r.log.Errorw("Record operation failed", "client_id", op.ClientID, "month", month.Format("2006-01"), "error", err)
		return "", ErrInternal
	}

	r.log.Infow("Recorded operation",
		"transaction_id", txID,
		"client_id", op.ClientID,
		"amount", op.Amount.String(),
		"currency", currency,
		"limit_exceeded", exceeded,
	)
	return txID, nil
}

// ExceededTransactions returns the client's transactions that were flagged at
// write time, each with the limit row it referenced.
func (r *TransactionRecorder) ExceededTransactions(ctx context.Context, clientID string) ([]ExceededResult, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return nil, ErrInvalidClientID
	}

	rows, err := r.limits.FindExceeded(ctx, clientID)
	if err != nil {
		r.log.Errorw("DB error fetching exceeded transactions", "client_id", clientID, "error", err)
		return nil, ErrInternal
	}

	out := make([]ExceededResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, exceededResultFromRepo(row))
	}
	return out, nil
}

// CurrentLimit returns the latest limit row for the client and month, without
// creating one.
func (r *TransactionRecorder) CurrentLimit(ctx context.Context, clientID string, month time.Time) (*LimitResult, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return nil, ErrInvalidClientID
	}

	limit, err := r.limits.FindLatest(ctx, clientID, MonthOf(month))
	if err != nil {
		r.log.Errorw("DB error fetching month limit", "client_id", clientID, "error", err)
		return nil, ErrInternal
	}
	if limit == nil {
		return nil, ErrNotFound
	}
	return limitResultFromRepo(limit), nil
}

// SetLimit appends a new limit row for the client and month. The new row
// supersedes any earlier rows for the same key; it does not rewrite them.
func (r *TransactionRecorder) SetLimit(ctx context.Context, clientID string, month time.Time, balance decimal.Decimal) (*LimitResult, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return nil, ErrInvalidClientID
	}

	created, err := r.limits.Create(ctx, &repository.MonthLimit{
		ClientID:     clientID,
		MonthStart:   MonthOf(month),
		LimitBalance: balance,
	})
	if err != nil {
		r.log.Errorw("DB error creating month limit", "client_id", clientID, "error", err)
		return nil, ErrInternal
	}

	r.log.Infow("Set month limit", "client_id", clientID, "month", created.MonthStart.Format("2006-01"), "balance", balance.String())
	return limitResultFromRepo(created), nil
}

func normalizeCurrency(code string, v Validator) (string, error) {
	if !IsValidCurrencyCode(code) {
		return "", ErrInvalidCurrencyCode
	}
	if err := v.Validate(code); err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}
