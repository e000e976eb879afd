package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateQuote is the cached exchange quote for one currency pair. Exactly one
// row exists per (from, to); refreshes overwrite rate and valid_until under
// the same id.
type RateQuote struct {
	ID           string
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	ValidUntil   time.Time
	UpdatedAt    time.Time
}

// RateRepository defines DB operations for the rate quote cache.
type RateRepository interface {
	FindByPair(ctx context.Context, from, to string) (*RateQuote, error)
	Save(ctx context.Context, quote *RateQuote) (*RateQuote, error)
}

// PostgresRateRepository is an implementation of RateRepository using PostgreSQL.
type PostgresRateRepository struct {
	db *sql.DB
}

// NewPostgresRateRepository creates a new PostgresRateRepository.
func NewPostgresRateRepository(db *sql.DB) RateRepository {
	return &PostgresRateRepository{db: db}
}

// FindByPair returns the quote row for (from, to), or (nil, nil) when the
// pair has never been cached.
func (r *PostgresRateRepository) FindByPair(ctx context.Context, from, to string) (*RateQuote, error) {
	query := `SELECT id::text, from_currency, to_currency, rate, valid_until, updated_at
              FROM rate_quotes
              WHERE from_currency=$1 AND to_currency=$2`

	row := r.db.QueryRowContext(ctx, query, from, to)
	return scanRateQuote(row)
}

// Save upserts a quote row. The unique (from, to) constraint keeps the table
// at one row per pair even under concurrent first-time misses; on conflict the
// existing row's id is preserved and only rate, valid_until and updated_at
// change, so a pair's identifier is stable across refreshes.
func (r *PostgresRateRepository) Save(ctx context.Context, quote *RateQuote) (*RateQuote, error) {
	id := quote.ID
	if id == "" {
		id = uuid.New().String()
	}

	query := `INSERT INTO rate_quotes (id, from_currency, to_currency, rate, valid_until, updated_at)
              VALUES ($1::uuid, $2, $3, $4, $5, NOW())
              ON CONFLICT (from_currency, to_currency)
              DO UPDATE SET rate = EXCLUDED.rate,
                            valid_until = EXCLUDED.valid_until,
                            updated_at = NOW()
              RETURNING id::text, from_currency, to_currency, rate, valid_until, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		id, quote.FromCurrency, quote.ToCurrency, quote.Rate, quote.ValidUntil)
	saved, err := scanRateQuote(row)
	if err != nil {
		return nil, fmt.Errorf("save rate quote %s/%s: %w", quote.FromCurrency, quote.ToCurrency, err)
	}
	return saved, nil
}

// scanRateQuote maps a single row into a RateQuote, returning (nil, nil) for sql.ErrNoRows.
func scanRateQuote(row *sql.Row) (*RateQuote, error) {
	var q RateQuote
	err := row.Scan(&q.ID, &q.FromCurrency, &q.ToCurrency, &q.Rate, &q.ValidUntil, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}
