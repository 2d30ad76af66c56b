package service

import (
	"context"
	"fmt"
	"log/slog"

	"stock_checker/internal/domain"
	"stock_checker/internal/infra"
)

// LikeResult is the like state of a symbol after Process
type LikeResult struct {
	Symbol  string
	Likes   int64
	Applied bool // true when this call incremented the counter
}

// LikeEngine applies at most one like per address per symbol.
// The store stays the only authority for counts; the engine keeps no cache.
type LikeEngine struct {
	store      domain.RecordStore
	anonymizer domain.Anonymizer
	locks      *keyedMutex
	metrics    *infra.Metrics
}

// NewLikeEngine creates a new LikeEngine instance
func NewLikeEngine(store domain.RecordStore, anonymizer domain.Anonymizer, metrics *infra.Metrics) *LikeEngine {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &LikeEngine{
		store:      store,
		anonymizer: anonymizer,
		locks:      newKeyedMutex(),
		metrics:    metrics,
	}
}

// Process returns the like count for symbol, first registering a like from
// rawAddr when wantsLike is set and no stored credential verifies against it.
func (e *LikeEngine) Process(ctx context.Context, symbol, rawAddr string, wantsLike bool) (LikeResult, error) {
	if !wantsLike {
		rec, err := e.store.FindOrCreate(ctx, symbol)
		if err != nil {
			return LikeResult{}, fmt.Errorf("find %s: %w", symbol, err)
		}
		return LikeResult{Symbol: symbol, Likes: rec.Likes}, nil
	}

	// Read-verify-write must not interleave with another like on the same symbol.
	unlock := e.locks.Lock(symbol)
	defer unlock()

	rec, err := e.store.FindOrCreate(ctx, symbol)
	if err != nil {
		return LikeResult{}, fmt.Errorf("find %s: %w", symbol, err)
	}

	if e.alreadyLiked(rawAddr, rec.Credentials) {
		e.metrics.RecordDuplicateLike()
		slog.DebugContext(ctx, "Like ignored, address already counted", slog.String("symbol", symbol))
		return LikeResult{Symbol: symbol, Likes: rec.Likes}, nil
	}

	credential, err := e.anonymizer.Anonymize(rawAddr)
	if err != nil {
		return LikeResult{}, fmt.Errorf("anonymize address: %w", err)
	}

	updated, err := e.store.ApplyLike(ctx, symbol, credential)
	if err != nil {
		return LikeResult{}, fmt.Errorf("apply like %s: %w", symbol, err)
	}

	e.metrics.RecordLike()
	slog.InfoContext(ctx, "Like applied", slog.String("symbol", symbol), slog.Int64("likes", updated.Likes))
	return LikeResult{Symbol: symbol, Likes: updated.Likes, Applied: true}, nil
}

// alreadyLiked checks membership with Verify only; freshly salted
// credentials never compare equal, so string matching would always miss.
func (e *LikeEngine) alreadyLiked(rawAddr string, credentials []string) bool {
	for _, c := range credentials {
		if e.anonymizer.Verify(rawAddr, c) {
			return true
		}
	}
	return false
}
