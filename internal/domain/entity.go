package domain

import (
	"time"
)

// StockRecord is the persisted like state for one ticker symbol
type StockRecord struct {
	Symbol    string    `gorm:"primaryKey;size:16" json:"symbol"`
	Likes     int64     `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Credentials holds the one-way address credentials that already liked this symbol.
	// Loaded by the store; never compared with each other, only via Anonymizer.Verify.
	Credentials []string `gorm:"-" json:"-"`
}

// LikeCredential is one stored address credential (SQL backends)
type LikeCredential struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"size:16;not null;index"`
	Hash      string    `gorm:"not null"`
	CreatedAt time.Time
}

// NewStockRecord returns the initial state for a lazily created record
func NewStockRecord(symbol string) *StockRecord {
	return &StockRecord{Symbol: symbol}
}
