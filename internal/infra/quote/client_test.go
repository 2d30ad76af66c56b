package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stock_checker/internal/domain"

	"github.com/shopspring/decimal"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Fetch(t *testing.T) {
	var gotPath string
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"symbol":"GOOG","companyName":"Alphabet Inc.","latestPrice":786.9}`))
	})

	client := NewClient(Options{BaseURL: server.URL})
	q, err := client.Fetch(context.Background(), "GOOG")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotPath != "/v1/stock/GOOG/quote" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if q.Symbol != "GOOG" {
		t.Errorf("Expected symbol GOOG, got %s", q.Symbol)
	}
	if !q.Price.Equal(decimal.NewFromFloat(786.9)) {
		t.Errorf("Expected price 786.9, got %s", q.Price)
	}
}

func TestClient_FetchFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retriable bool
	}{
		{"unknown symbol", http.StatusOK, `"Unknown symbol"`, false},
		{"malformed payload", http.StatusOK, `{"latestPrice":`, false},
		{"missing price", http.StatusOK, `{"symbol":"GOOG"}`, false},
		{"not found", http.StatusNotFound, `not found`, false},
		{"server error", http.StatusBadGateway, `oops`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			client := NewClient(Options{BaseURL: server.URL})
			q, err := client.Fetch(context.Background(), "GOOG")
			if q != nil {
				t.Errorf("expected no quote, got %+v", q)
			}
			if !errors.Is(err, domain.ErrQuoteUnavailable) {
				t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
			}
			if domain.IsRetriable(err) != tt.retriable {
				t.Errorf("IsRetriable = %v, want %v", domain.IsRetriable(err), tt.retriable)
			}
		})
	}
}

func TestClient_TimeoutNoRetry(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.Fetch(context.Background(), "GOOG")
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fetch was not bounded by timeout: %s", elapsed)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 upstream call, got %d", n)
	}
}

func TestClient_RateLimitedWaitHonoursDeadline(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"GOOG","latestPrice":1}`))
	})

	// One token per minute: the second call cannot get a token within its timeout.
	client := NewClient(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond, RPS: 1.0 / 60, Burst: 1})

	if _, err := client.Fetch(context.Background(), "GOOG"); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	_, err := client.Fetch(context.Background(), "GOOG")
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}
