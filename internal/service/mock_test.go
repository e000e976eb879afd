package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"limitservice/internal/provider"
	"limitservice/internal/repository"
)

var errStorage = errors.New("storage failure")

// Mock rate repository
type mockRateRepo struct {
	findByPairFunc func(ctx context.Context, from, to string) (*repository.RateQuote, error)
	saveFunc       func(ctx context.Context, quote *repository.RateQuote) (*repository.RateQuote, error)
	saveCalls      int
}

func (m *mockRateRepo) FindByPair(ctx context.Context, from, to string) (*repository.RateQuote, error) {
	return m.findByPairFunc(ctx, from, to)
}

func (m *mockRateRepo) Save(ctx context.Context, quote *repository.RateQuote) (*repository.RateQuote, error) {
	m.saveCalls++
	return m.saveFunc(ctx, quote)
}

// Mock provider
type mockRateProvider struct {
	quoteFunc func(ctx context.Context, from, to string) (provider.Quote, error)
	calls     int
}

func (m *mockRateProvider) Quote(ctx context.Context, from, to string) (provider.Quote, error) {
	m.calls++
	return m.quoteFunc(ctx, from, to)
}

// Mock refresh enqueuer
type mockEnqueuer struct {
	payloads []RefreshRatePayload
	err      error
}

func (m *mockEnqueuer) EnqueueRefresh(_ context.Context, payload RefreshRatePayload) error {
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, payload)
	return nil
}

// fakeLimitRepository is an in-memory LimitRepository. InTx serializes units
// of work behind a mutex and restores a snapshot on error, mirroring the
// locking and all-or-nothing semantics of the Postgres implementation.
type fakeLimitRepository struct {
	mu             sync.Mutex
	defaultBalance decimal.Decimal
	limits         []repository.MonthLimit
	txs            []repository.TransactionRecord
	nextID         int

	failSave            bool
	failSaveTransaction bool
}

func newFakeLimitRepository(defaultBalance string) *fakeLimitRepository {
	return &fakeLimitRepository{defaultBalance: decimal.RequireFromString(defaultBalance)}
}

func (f *fakeLimitRepository) InTx(_ context.Context, _ string, _ time.Time, fn func(repository.LimitStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	limitsSnap := append([]repository.MonthLimit(nil), f.limits...)
	txsSnap := append([]repository.TransactionRecord(nil), f.txs...)

	if err := fn((*fakeLimitStore)(f)); err != nil {
		f.limits = limitsSnap
		f.txs = txsSnap
		return err
	}
	return nil
}

func (f *fakeLimitRepository) FindLatest(ctx context.Context, clientID string, month time.Time) (*repository.MonthLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (*fakeLimitStore)(f).FindLatest(ctx, clientID, month)
}

func (f *fakeLimitRepository) CreateDefault(ctx context.Context, clientID string, month time.Time) (*repository.MonthLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (*fakeLimitStore)(f).CreateDefault(ctx, clientID, month)
}

func (f *fakeLimitRepository) Create(ctx context.Context, limit *repository.MonthLimit) (*repository.MonthLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (*fakeLimitStore)(f).Create(ctx, limit)
}

func (f *fakeLimitRepository) Save(ctx context.Context, limit *repository.MonthLimit) (*repository.MonthLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (*fakeLimitStore)(f).Save(ctx, limit)
}

func (f *fakeLimitRepository) SaveTransaction(ctx context.Context, rec *repository.TransactionRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (*fakeLimitStore)(f).SaveTransaction(ctx, rec)
}

func (f *fakeLimitRepository) FindExceeded(ctx context.Context, clientID string) ([]repository.ExceededTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (*fakeLimitStore)(f).FindExceeded(ctx, clientID)
}

// latestLimit returns the newest row for the key, for test assertions.
func (f *fakeLimitRepository) latestLimit(clientID string, month time.Time) *repository.MonthLimit {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.limits) - 1; i >= 0; i-- {
		if f.limits[i].ClientID == clientID && f.limits[i].MonthStart.Equal(month) {
			l := f.limits[i]
			return &l
		}
	}
	return nil
}

// fakeLimitStore is the store view used both inside and outside InTx. The
// mutex is held by the caller.
type fakeLimitStore fakeLimitRepository

func (s *fakeLimitStore) genID(prefix string) string {
	s.nextID++
	return prefix + "-" + strconv.Itoa(s.nextID)
}

func (s *fakeLimitStore) FindLatest(_ context.Context, clientID string, month time.Time) (*repository.MonthLimit, error) {
	// Later index means more recently created.
	for i := len(s.limits) - 1; i >= 0; i-- {
		if s.limits[i].ClientID == clientID && s.limits[i].MonthStart.Equal(month) {
			l := s.limits[i]
			return &l, nil
		}
	}
	return nil, nil
}

func (s *fakeLimitStore) CreateDefault(ctx context.Context, clientID string, month time.Time) (*repository.MonthLimit, error) {
	return s.Create(ctx, &repository.MonthLimit{
		ClientID:     clientID,
		MonthStart:   month,
		LimitBalance: s.defaultBalance,
	})
}

func (s *fakeLimitStore) Create(_ context.Context, limit *repository.MonthLimit) (*repository.MonthLimit, error) {
	out := *limit
	if out.ID == "" {
		out.ID = s.genID("limit")
	}
	out.CreatedAt = time.Now().UTC()
	s.limits = append(s.limits, out)
	return &out, nil
}

func (s *fakeLimitStore) Save(_ context.Context, limit *repository.MonthLimit) (*repository.MonthLimit, error) {
	if s.failSave {
		return nil, errStorage
	}
	for i := range s.limits {
		if s.limits[i].ID == limit.ID {
			s.limits[i].LimitBalance = limit.LimitBalance
			return limit, nil
		}
	}
	return nil, errStorage
}

func (s *fakeLimitStore) SaveTransaction(_ context.Context, rec *repository.TransactionRecord) (string, error) {
	if s.failSaveTransaction {
		return "", errStorage
	}
	out := *rec
	if out.ID == "" {
		out.ID = s.genID("tx")
	}
	out.CreatedAt = time.Now().UTC()
	s.txs = append(s.txs, out)
	return out.ID, nil
}

func (s *fakeLimitStore) FindExceeded(_ context.Context, clientID string) ([]repository.ExceededTransaction, error) {
	var out []repository.ExceededTransaction
	for _, tx := range s.txs {
		if tx.ClientID != clientID || !tx.LimitExceeded {
			continue
		}
		e := repository.ExceededTransaction{Transaction: tx}
		for i := range s.limits {
			if s.limits[i].ID == tx.MonthLimitID {
				e.Limit = s.limits[i]
			}
		}
		out = append(out, e)
	}
	return out, nil
}
