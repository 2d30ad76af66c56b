package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"stock_checker/internal/domain"
	"stock_checker/internal/infra"
)

// QuoteService joins prices and like counts for one or two symbols
type QuoteService struct {
	prices  domain.PriceFetcher
	likes   *LikeEngine
	metrics *infra.Metrics
}

// NewQuoteService creates a new QuoteService instance
func NewQuoteService(prices domain.PriceFetcher, likes *LikeEngine, metrics *infra.Metrics) *QuoteService {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &QuoteService{prices: prices, likes: likes, metrics: metrics}
}

type lookupResult struct {
	entry domain.StockEntry
	likes int64
	err   error // store failure; fails the whole request
}

// GetQuote resolves req for the caller at callerAddr.
// Price failures stay on the affected entry; store failures abort the request.
func (s *QuoteService) GetQuote(ctx context.Context, req domain.StockRequest, callerAddr string) (domain.StockData, error) {
	results := make([]lookupResult, len(req.Symbols))

	var wg sync.WaitGroup
	for i, sym := range req.Symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "Stock lookup panic recovered", slog.String("symbol", sym), slog.Any("panic", r))
					results[i] = lookupResult{err: fmt.Errorf("lookup %s: panic: %v", sym, r)}
				}
			}()
			results[i] = s.lookup(ctx, sym, callerAddr, req.Like)
		}(i, sym)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return domain.StockData{}, r.err
		}
	}

	data := domain.StockData{Kind: req.Kind, Entries: make([]domain.StockEntry, len(results))}
	switch req.Kind {
	case domain.StockPair:
		relA, relB := domain.RelativeLikes(results[0].likes, results[1].likes)
		data.Entries[0], data.Entries[1] = results[0].entry, results[1].entry
		data.Entries[0].RelLikes = &relA
		data.Entries[1].RelLikes = &relB
	default:
		likes := results[0].likes
		data.Entries[0] = results[0].entry
		data.Entries[0].Likes = &likes
	}
	return data, nil
}

// lookup runs the price fetch and like processing for one symbol
func (s *QuoteService) lookup(ctx context.Context, symbol, callerAddr string, wantsLike bool) lookupResult {
	entry := domain.StockEntry{Stock: symbol}

	q, err := s.prices.Fetch(ctx, symbol)
	if err != nil {
		s.metrics.RecordQuoteFailure()
		entry.Err = err
	} else {
		price := q.Price
		entry.Price = &price
	}

	res, err := s.likes.Process(ctx, symbol, callerAddr, wantsLike)
	if err != nil {
		return lookupResult{err: err}
	}
	return lookupResult{entry: entry, likes: res.Likes}
}
