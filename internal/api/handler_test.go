package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stock_checker/internal/infra"
	"stock_checker/internal/service"
	"stock_checker/internal/testutils"
)

func setup(prices map[string]float64) (http.Handler, *testutils.MockStore, *infra.Metrics) {
	store := testutils.NewMockStore()
	metrics := &infra.Metrics{}
	engine := service.NewLikeEngine(store, &testutils.FakeAnonymizer{}, metrics)
	quotes := service.NewQuoteService(testutils.NewMockPriceFetcher(prices), engine, metrics)
	h := NewHandler(quotes, store, metrics, false)
	return WithMiddleware(h.Routes(), metrics), store, metrics
}

func get(t *testing.T, h http.Handler, target, remote string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %q", rec.Body.String())
	}
	return rec, body
}

func TestStockPrices_Single(t *testing.T) {
	h, _, _ := setup(map[string]float64{"GOOG": 786.9})

	rec, body := get(t, h, "/api/stock-prices?stock=GOOG", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	data, ok := body["stockData"].(map[string]any)
	if !ok {
		t.Fatalf("stockData should be an object: %v", body)
	}
	if data["stock"] != "GOOG" {
		t.Errorf("stock = %v", data["stock"])
	}
	if price, ok := data["price"].(float64); !ok || price != 786.9 {
		t.Errorf("price = %v", data["price"])
	}
	if likes, ok := data["likes"].(float64); !ok || likes < 0 {
		t.Errorf("likes = %v", data["likes"])
	}
	if _, ok := data["rel_likes"]; ok {
		t.Error("single response should not have rel_likes")
	}
}

func TestStockPrices_LikeTwiceSameAddress(t *testing.T) {
	h, _, metrics := setup(map[string]float64{"GOOG": 786.9})

	_, first := get(t, h, "/api/stock-prices?stock=GOOG&like=true", "198.51.100.4:5000")
	_, second := get(t, h, "/api/stock-prices?stock=GOOG&like=true", "198.51.100.4:6001")

	l1 := first["stockData"].(map[string]any)["likes"].(float64)
	l2 := second["stockData"].(map[string]any)["likes"].(float64)
	if l1 != 1 || l2 != l1 {
		t.Errorf("likes = %v then %v, want 1 then 1", l1, l2)
	}

	snap := metrics.Snapshot()
	if snap.LikesApplied != 1 || snap.DuplicateLikes != 1 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestStockPrices_LikeFromDifferentAddresses(t *testing.T) {
	h, _, _ := setup(map[string]float64{"GOOG": 786.9})

	get(t, h, "/api/stock-prices?stock=GOOG&like=true", "198.51.100.4:5000")
	_, body := get(t, h, "/api/stock-prices?stock=GOOG&like=true", "198.51.100.5:5000")

	if likes := body["stockData"].(map[string]any)["likes"].(float64); likes != 2 {
		t.Errorf("likes = %v, want 2", likes)
	}
}

func TestStockPrices_Pair(t *testing.T) {
	h, _, _ := setup(map[string]float64{"GOOG": 786.9, "MSFT": 62.3})

	get(t, h, "/api/stock-prices?stock=GOOG&like=true", "")
	rec, body := get(t, h, "/api/stock-prices?stock=MSFT&stock=GOOG", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	pair, ok := body["stockData"].([]any)
	if !ok || len(pair) != 2 {
		t.Fatalf("stockData should be a pair: %v", body)
	}
	a, b := pair[0].(map[string]any), pair[1].(map[string]any)
	if a["stock"] != "MSFT" || b["stock"] != "GOOG" {
		t.Errorf("order = %v, %v", a["stock"], b["stock"])
	}
	for _, e := range []map[string]any{a, b} {
		if _, ok := e["price"].(float64); !ok {
			t.Errorf("%v: price missing", e["stock"])
		}
		if _, ok := e["likes"]; ok {
			t.Errorf("%v: pair entries should not have likes", e["stock"])
		}
	}
	ra, rb := a["rel_likes"].(float64), b["rel_likes"].(float64)
	if ra != -1 || rb != 1 || ra+rb != 0 {
		t.Errorf("rel_likes = %v, %v", ra, rb)
	}
}

func TestStockPrices_PairOneUnavailable(t *testing.T) {
	h, _, metrics := setup(map[string]float64{"GOOG": 786.9})

	rec, body := get(t, h, "/api/stock-prices?stock=GOOG&stock=ZZZZ", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	pair := body["stockData"].([]any)
	good, bad := pair[0].(map[string]any), pair[1].(map[string]any)
	if _, ok := good["price"].(float64); !ok {
		t.Error("available symbol lost its price")
	}
	if bad["price"] != nil {
		t.Errorf("unavailable price should be null, got %v", bad["price"])
	}
	if bad["error"] != "quote unavailable" {
		t.Errorf("error = %v", bad["error"])
	}
	if metrics.Snapshot().QuoteFailures != 1 {
		t.Error("quote failure not counted")
	}
}

func TestStockPrices_Validation(t *testing.T) {
	h, _, _ := setup(nil)

	for _, target := range []string{
		"/api/stock-prices",
		"/api/stock-prices?stock=",
		"/api/stock-prices?stock=A&stock=B&stock=C",
		"/api/stock-prices?stock=%3Cscript%3E",
	} {
		rec, body := get(t, h, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
		if body["error"] != "invalid request" {
			t.Errorf("%s: body = %v", target, body)
		}
	}
}

func TestStockPrices_StoreUnavailable(t *testing.T) {
	h, store, metrics := setup(map[string]float64{"GOOG": 1})
	store.Err = errors.New("dial tcp: connection refused")

	rec, body := get(t, h, "/api/stock-prices?stock=GOOG", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["error"] != "internal error" || len(body) != 1 {
		t.Errorf("internal detail leaked: %v", body)
	}
	if metrics.Snapshot().ErrorsTotal != 1 {
		t.Error("error not counted")
	}
}

func TestHealth(t *testing.T) {
	h, store, _ := setup(nil)

	rec, _ := get(t, h, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	store.Err = errors.New("down")
	rec, _ = get(t, h, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := setup(map[string]float64{"GOOG": 1})
	get(t, h, "/api/stock-prices?stock=GOOG", "")

	rec, body := get(t, h, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if n, _ := body["requests_total"].(float64); n < 1 {
		t.Errorf("requests_total = %v", body["requests_total"])
	}
}

func TestClientAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := ClientAddr(req, false); got != "2001:db8::1" {
		t.Errorf("untrusted: got %q", got)
	}
	if got := ClientAddr(req, true); got != "203.0.113.9" {
		t.Errorf("trusted: got %q", got)
	}

	req.RemoteAddr = "pipe"
	req.Header.Del("X-Forwarded-For")
	if got := ClientAddr(req, true); got != "pipe" {
		t.Errorf("no port: got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	metrics := &infra.Metrics{}
	h := WithMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), metrics)

	rec, body := get(t, h, "/", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if body["error"] != "internal error" {
		t.Errorf("body = %v", body)
	}
	if metrics.Snapshot().ErrorsTotal != 1 {
		t.Error("panic not counted")
	}
}
