package api

import (
	"stock_checker/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

// stockJSON is one entry of stockData on the wire
type stockJSON struct {
	Stock    string   `json:"stock"`
	Price    *float64 `json:"price"` // null when the quote is unavailable
	Likes    *int64   `json:"likes,omitempty"`
	RelLikes *int64   `json:"rel_likes,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// stockResponse wraps either one stockJSON or an ordered pair
type stockResponse struct {
	StockData any `json:"stockData"`
}

func newStockResponse(data domain.StockData) stockResponse {
	entries := make([]stockJSON, len(data.Entries))
	for i, e := range data.Entries {
		entries[i] = toStockJSON(e)
	}

	if data.Kind == domain.StockPair {
		return stockResponse{StockData: entries}
	}
	return stockResponse{StockData: entries[0]}
}

func toStockJSON(e domain.StockEntry) stockJSON {
	out := stockJSON{
		Stock:    e.Stock,
		Likes:    e.Likes,
		RelLikes: e.RelLikes,
	}
	if e.Available() {
		price := e.Price.InexactFloat64()
		out.Price = &price
	} else {
		out.Error = domain.ErrQuoteUnavailable.Error()
	}
	return out
}
