package domain

import (
	"context"
)

// Anonymizer turns raw network addresses into salted one-way credentials.
// Credentials must only be checked with Verify, never compared to each other.
type Anonymizer interface {
	Anonymize(rawAddr string) (string, error)
	Verify(rawAddr, credential string) bool
}

// RecordStore persists StockRecords keyed by symbol
type RecordStore interface {
	// FindOrCreate returns the record for symbol, creating it exactly once if absent.
	FindOrCreate(ctx context.Context, symbol string) (*StockRecord, error)
	// Get returns ErrRecordNotFound when no record exists.
	Get(ctx context.Context, symbol string) (*StockRecord, error)
	// ApplyLike appends credential and increments Likes by one.
	ApplyLike(ctx context.Context, symbol, credential string) (*StockRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// PriceFetcher defines the interface for stock price sources
type PriceFetcher interface {
	Fetch(ctx context.Context, symbol string) (*Quote, error)
}
