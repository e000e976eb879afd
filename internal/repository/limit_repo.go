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

// MonthLimit is a spending limit row for one client and one calendar month.
// The table is append/find-latest: several rows may exist for the same
// (client, month), the most recently created one is the live limit.
type MonthLimit struct {
	ID           string
	ClientID     string
	MonthStart   time.Time
	LimitBalance decimal.Decimal
	CreatedAt    time.Time
}

// TransactionRecord is an immutable record of a consumable operation.
// LimitExceeded is fixed at write time and never recomputed.
type TransactionRecord struct {
	ID            string
	ClientID      string
	Currency      string
	Amount        decimal.Decimal
	OperationTime time.Time
	LimitExceeded bool
	MonthLimitID  string
	CreatedAt     time.Time
}

// ExceededTransaction pairs a flagged transaction with the limit row that was
// live when it was written.
type ExceededTransaction struct {
	Transaction TransactionRecord
	Limit       MonthLimit
}

// LimitStore defines month-limit and transaction operations. The same
// contract is served by the connection pool and by a transaction-scoped store
// handed out by LimitRepository.InTx.
type LimitStore interface {
	FindLatest(ctx context.Context, clientID string, month time.Time) (*MonthLimit, error)
	CreateDefault(ctx context.Context, clientID string, month time.Time) (*MonthLimit, error)
	Create(ctx context.Context, limit *MonthLimit) (*MonthLimit, error)
	Save(ctx context.Context, limit *MonthLimit) (*MonthLimit, error)
	SaveTransaction(ctx context.Context, rec *TransactionRecord) (string, error)
	FindExceeded(ctx context.Context, clientID string) ([]ExceededTransaction, error)
}

// LimitRepository is a LimitStore that can also open an atomic unit of work
// serialized per (clientID, month).
type LimitRepository interface {
	LimitStore
	InTx(ctx context.Context, clientID string, month time.Time, fn func(LimitStore) error) error
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresLimitRepository is a LimitRepository backed by PostgreSQL.
// The default limit balance is owned here, not by the services above.
type PostgresLimitRepository struct {
	limitStore
	db *sql.DB
}

// NewPostgresLimitRepository creates a new PostgresLimitRepository.
func NewPostgresLimitRepository(db *sql.DB, defaultBalance decimal.Decimal) *PostgresLimitRepository {
	return &PostgresLimitRepository{
		limitStore: limitStore{q: db, defaultBalance: defaultBalance},
		db:         db,
	}
}

// InTx runs fn inside a REPEATABLE READ transaction. A pg_advisory_xact_lock
// keyed on (clientID, month) is taken before any read, so two units of work
// for the same client and month never interleave, while unrelated keys
// proceed in parallel. Repeatable read alone would not stop the lost-update
// race on the limit row. The transaction-scoped store additionally locks the
// limit row it reads with FOR UPDATE.
func (r *PostgresLimitRepository) InTx(ctx context.Context, clientID string, month time.Time, fn func(LimitStore) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin limit transaction: %w", err)
	}

	lockKey := clientID + ":" + month.Format("2006-01")
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire month lock for %s: %w", lockKey, err)
	}

	store := limitStore{q: tx, forUpdate: true, defaultBalance: r.defaultBalance}
	if err := fn(&store); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit limit transaction: %w", err)
	}
	return nil
}

// limitStore implements LimitStore over either the pool or a transaction.
type limitStore struct {
	q              querier
	forUpdate      bool
	defaultBalance decimal.Decimal
}

// FindLatest returns the most recent MonthLimit for the client and month, or
// (nil, nil) when no row exists.
func (s *limitStore) FindLatest(ctx context.Context, clientID string, month time.Time) (*MonthLimit, error) {
	query := `SELECT id::text, client_id::text, month_start, limit_balance, created_at
              FROM month_limits
              WHERE client_id=$1::uuid AND month_start=$2::date
              ORDER BY created_at DESC, id
              LIMIT 1`
	if s.forUpdate {
		query += ` FOR UPDATE`
	}

	row := s.q.QueryRowContext(ctx, query, clientID, month)
	return scanMonthLimit(row)
}

// CreateDefault creates the lazily-initialized limit row for a client's first
// operation in a month, using the store-owned default balance.
func (s *limitStore) CreateDefault(ctx context.Context, clientID string, month time.Time) (*MonthLimit, error) {
	return s.Create(ctx, &MonthLimit{
		ClientID:     clientID,
		MonthStart:   month,
		LimitBalance: s.defaultBalance,
	})
}

// Create appends a new MonthLimit row. An appended row supersedes any earlier
// rows for the same (client, month).
func (s *limitStore) Create(ctx context.Context, limit *MonthLimit) (*MonthLimit, error) {
	out := *limit
	if out.ID == "" {
		out.ID = uuid.New().String()
	}

	query := `INSERT INTO month_limits (id, client_id, month_start, limit_balance)
              VALUES ($1::uuid, $2::uuid, $3::date, $4)
              RETURNING created_at`
	err := s.q.QueryRowContext(ctx, query, out.ID, out.ClientID, out.MonthStart, out.LimitBalance).Scan(&out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create month limit: %w", err)
	}
	return &out, nil
}

// Save persists a new balance on an existing MonthLimit row.
func (s *limitStore) Save(ctx context.Context, limit *MonthLimit) (*MonthLimit, error) {
	query := `UPDATE month_limits SET limit_balance=$1 WHERE id=$2::uuid`
	result, err := s.q.ExecContext(ctx, query, limit.LimitBalance, limit.ID)
	if err != nil {
		return nil, fmt.Errorf("save month limit %s: %w", limit.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("month limit %s not found", limit.ID)
	}
	return limit, nil
}

// SaveTransaction inserts an immutable transaction record and returns its id.
func (s *limitStore) SaveTransaction(ctx context.Context, rec *TransactionRecord) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}

	query := `INSERT INTO transactions (id, client_id, currency, amount, operation_time, limit_exceeded, month_limit_id)
              VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7::uuid)
              RETURNING id::text`
	var returnedID string
	err := s.q.QueryRowContext(ctx, query,
		id, rec.ClientID, rec.Currency, rec.Amount, rec.OperationTime, rec.LimitExceeded, rec.MonthLimitID,
	).Scan(&returnedID)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	return returnedID, nil
}

// FindExceeded returns the client's flagged transactions joined with the
// limit row each one referenced at write time.
func (s *limitStore) FindExceeded(ctx context.Context, clientID string) ([]ExceededTransaction, error) {
	query := `SELECT t.id::text, t.client_id::text, t.currency, t.amount, t.operation_time,
                     t.limit_exceeded, t.month_limit_id::text, t.created_at,
                     l.id::text, l.client_id::text, l.month_start, l.limit_balance, l.created_at
              FROM transactions t
              JOIN month_limits l ON l.id = t.month_limit_id
              WHERE t.client_id=$1::uuid AND t.limit_exceeded
              ORDER BY t.operation_time`

	rows, err := s.q.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("find exceeded transactions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // best-effort close

	var out []ExceededTransaction
	for rows.Next() {
		var e ExceededTransaction
		err := rows.Scan(
			&e.Transaction.ID, &e.Transaction.ClientID, &e.Transaction.Currency, &e.Transaction.Amount,
			&e.Transaction.OperationTime, &e.Transaction.LimitExceeded, &e.Transaction.MonthLimitID,
			&e.Transaction.CreatedAt,
			&e.Limit.ID, &e.Limit.ClientID, &e.Limit.MonthStart, &e.Limit.LimitBalance, &e.Limit.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exceeded transaction: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// scanMonthLimit maps a single row into a MonthLimit, returning (nil, nil) for sql.ErrNoRows.
func scanMonthLimit(row *sql.Row) (*MonthLimit, error) {
	var l MonthLimit
	err := row.Scan(&l.ID, &l.ClientID, &l.MonthStart, &l.LimitBalance, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
