package testutils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"stock_checker/internal/domain"

	"github.com/shopspring/decimal"
)

// FakeAnonymizer is a cheap deterministic stand-in for bcrypt.
// Each Anonymize call embeds a fresh counter so equal addresses still give different credentials.
type FakeAnonymizer struct {
	seq         atomic.Uint64
	VerifyCalls atomic.Int64
	Fail        error
}

func (f *FakeAnonymizer) Anonymize(rawAddr string) (string, error) {
	if f.Fail != nil {
		return "", f.Fail
	}
	return fmt.Sprintf("fake$%d$%s", f.seq.Add(1), rawAddr), nil
}

func (f *FakeAnonymizer) Verify(rawAddr, credential string) bool {
	f.VerifyCalls.Add(1)
	parts := strings.SplitN(credential, "$", 3)
	if len(parts) != 3 || parts[0] != "fake" {
		return false
	}
	return parts[2] == rawAddr
}

// MockStore simulates a RecordStore in memory
type MockStore struct {
	Mu      sync.Mutex
	Records map[string]*domain.StockRecord
	Creates int
	Err     error // returned by every call when set
}

func NewMockStore() *MockStore {
	return &MockStore{Records: make(map[string]*domain.StockRecord)}
}

func (m *MockStore) FindOrCreate(ctx context.Context, symbol string) (*domain.StockRecord, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, domain.NewStoreError("find_or_create", m.Err)
	}
	rec, ok := m.Records[symbol]
	if !ok {
		rec = domain.NewStockRecord(symbol)
		m.Records[symbol] = rec
		m.Creates++
	}
	return clone(rec), nil
}

func (m *MockStore) Get(ctx context.Context, symbol string) (*domain.StockRecord, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, domain.NewStoreError("get", m.Err)
	}
	rec, ok := m.Records[symbol]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return clone(rec), nil
}

func (m *MockStore) ApplyLike(ctx context.Context, symbol, credential string) (*domain.StockRecord, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, domain.NewStoreError("apply_like", m.Err)
	}
	rec, ok := m.Records[symbol]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	rec.Likes++
	rec.Credentials = append(rec.Credentials, credential)
	return clone(rec), nil
}

func (m *MockStore) Ping(ctx context.Context) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return domain.NewStoreError("ping", m.Err)
}

func (m *MockStore) Close() error { return nil }

// Seed installs a record directly, bypassing ApplyLike
func (m *MockStore) Seed(rec *domain.StockRecord) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Records[rec.Symbol] = clone(rec)
}

func clone(rec *domain.StockRecord) *domain.StockRecord {
	c := *rec
	c.Credentials = append([]string(nil), rec.Credentials...)
	return &c
}

// MockPriceFetcher returns fixed prices; symbols missing from Prices are unavailable
type MockPriceFetcher struct {
	Mu     sync.Mutex
	Prices map[string]float64
	Calls  []string
}

func NewMockPriceFetcher(prices map[string]float64) *MockPriceFetcher {
	return &MockPriceFetcher{Prices: prices}
}

func (m *MockPriceFetcher) Fetch(ctx context.Context, symbol string) (*domain.Quote, error) {
	m.Mu.Lock()
	m.Calls = append(m.Calls, symbol)
	price, ok := m.Prices[symbol]
	m.Mu.Unlock()

	if !ok {
		return nil, domain.NewFatalQuoteError(symbol, errors.New("unknown symbol"))
	}
	return &domain.Quote{Symbol: symbol, Price: decimal.NewFromFloat(price)}, nil
}
