package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is a single price observation from the price source
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// RequestKind tags a StockRequest as a single or dual lookup
type RequestKind int

const (
	SingleStock RequestKind = iota + 1
	StockPair
)

// StockRequest is a validated stock query
type StockRequest struct {
	Kind    RequestKind
	Symbols []string // len 1 for SingleStock, 2 for StockPair, caller order
	Like    bool
}

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// NormalizeSymbol trims and upper-cases a ticker and checks its shape
func NormalizeSymbol(raw string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(sym) {
		return "", ErrInvalidSymbol
	}
	return sym, nil
}

// ParseLike maps a boolean-ish query token to a strict boolean.
// Absent or unrecognised tokens mean false.
func ParseLike(token string) bool {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// NewStockRequest validates raw symbols and the like token
func NewStockRequest(rawSymbols []string, likeToken string) (StockRequest, error) {
	switch len(rawSymbols) {
	case 0:
		return StockRequest{}, &ValidationError{Field: "stock", Reason: "missing symbol"}
	case 1, 2:
	default:
		return StockRequest{}, &ValidationError{Field: "stock", Reason: "at most two symbols"}
	}

	symbols := make([]string, 0, len(rawSymbols))
	for _, raw := range rawSymbols {
		sym, err := NormalizeSymbol(raw)
		if err != nil {
			return StockRequest{}, &ValidationError{Field: "stock", Reason: "malformed symbol " + strings.TrimSpace(raw)}
		}
		symbols = append(symbols, sym)
	}

	kind := SingleStock
	if len(symbols) == 2 {
		kind = StockPair
	}
	return StockRequest{Kind: kind, Symbols: symbols, Like: ParseLike(likeToken)}, nil
}

// StockEntry is one symbol's slot in the response.
// Exactly one of Likes / RelLikes is set depending on the request kind.
type StockEntry struct {
	Stock    string
	Price    *decimal.Decimal // nil when the quote was unavailable
	Likes    *int64
	RelLikes *int64
	Err      error // per-symbol quote failure, matches ErrQuoteUnavailable
}

// Available reports whether a price was obtained
func (e StockEntry) Available() bool {
	return e.Price != nil && e.Err == nil
}

// StockData is the aggregated result of a StockRequest
type StockData struct {
	Kind    RequestKind
	Entries []StockEntry
}

// RelativeLikes returns (a-b, b-a); the two values always sum to zero
func RelativeLikes(a, b int64) (int64, int64) {
	return a - b, b - a
}
