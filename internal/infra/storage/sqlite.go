package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stock_checker/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Compile-time check to ensure SQLiteStore implements RecordStore
var _ domain.RecordStore = (*SQLiteStore)(nil)

// SQLiteStore persists stock records in a local SQLite database
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newSQLiteStore(db)
}

func newSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite allows a single writer; one connection keeps writes serialized instead of "database is locked".
	sqlDB.SetMaxOpenConns(1)

	// Auto Migration
	if err := db.AutoMigrate(&domain.StockRecord{}, &domain.LikeCredential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ======================================================================================
// Record Operations
// ======================================================================================

// FindOrCreate returns the record for symbol, inserting the initial state if absent.
// The primary key plus ON CONFLICT DO NOTHING keeps concurrent first lookups to one row.
func (s *SQLiteStore) FindOrCreate(ctx context.Context, symbol string) (*domain.StockRecord, error) {
	db := s.db.WithContext(ctx)

	rec := domain.NewStockRecord(symbol)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec).Error; err != nil {
		return nil, domain.NewStoreError("find_or_create", err)
	}

	found, err := load(db, symbol)
	if err != nil {
		return nil, wrapLoadErr("find_or_create", err)
	}
	return found, nil
}

// Get retrieves a record by symbol
func (s *SQLiteStore) Get(ctx context.Context, symbol string) (*domain.StockRecord, error) {
	rec, err := load(s.db.WithContext(ctx), symbol)
	if err != nil {
		return nil, wrapLoadErr("get", err)
	}
	return rec, nil
}

// ApplyLike increments the like counter and stores credential in one transaction
func (s *SQLiteStore) ApplyLike(ctx context.Context, symbol, credential string) (*domain.StockRecord, error) {
	var rec *domain.StockRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.StockRecord{}).
			Where("symbol = ?", symbol).
			Updates(map[string]any{
				"likes":      gorm.Expr("likes + ?", 1),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRecordNotFound
		}

		if err := tx.Create(&domain.LikeCredential{Symbol: symbol, Hash: credential}).Error; err != nil {
			return err
		}

		var err error
		rec, err = load(tx, symbol)
		return err
	})
	if err != nil {
		return nil, wrapLoadErr("apply_like", err)
	}
	return rec, nil
}

// Ping checks the underlying connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return domain.NewStoreError("ping", err)
	}
	return domain.NewStoreError("ping", sqlDB.PingContext(ctx))
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func load(db *gorm.DB, symbol string) (*domain.StockRecord, error) {
	var rec domain.StockRecord
	if err := db.First(&rec, "symbol = ?", symbol).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&domain.LikeCredential{}).
		Where("symbol = ?", symbol).
		Order("id").
		Pluck("hash", &rec.Credentials).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func wrapLoadErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, domain.ErrRecordNotFound) {
		return domain.ErrRecordNotFound
	}
	return domain.NewStoreError(op, err)
}
