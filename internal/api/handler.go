package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"stock_checker/internal/domain"
	"stock_checker/internal/infra"
	"stock_checker/internal/service"
)

// Handler serves the stock price API
type Handler struct {
	quotes     *service.QuoteService
	store      domain.RecordStore
	metrics    *infra.Metrics
	trustProxy bool
}

// NewHandler creates the API handler; store is used only for health checks
func NewHandler(quotes *service.QuoteService, store domain.RecordStore, metrics *infra.Metrics, trustProxy bool) *Handler {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Handler{
		quotes:     quotes,
		store:      store,
		metrics:    metrics,
		trustProxy: trustProxy,
	}
}

// Routes registers the API endpoints on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stock-prices", h.stockPrices)
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /metrics", h.metricsSnapshot)
	return mux
}

func (h *Handler) stockPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req, err := domain.NewStockRequest(q["stock"], q.Get("like"))
	if err != nil {
		slog.InfoContext(r.Context(), "Rejected stock request",
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request"})
		return
	}

	data, err := h.quotes.GetQuote(r.Context(), req, ClientAddr(r, h.trustProxy))
	if err != nil {
		h.metrics.RecordError()
		level := slog.LevelError
		if errors.Is(err, context.Canceled) {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "Stock request failed",
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.Any("symbols", req.Symbols),
			slog.Bool("store_unavailable", errors.Is(err, domain.ErrStoreUnavailable)),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, newStockResponse(data))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Health check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) metricsSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// ClientAddr returns the caller's network address without port.
// X-Forwarded-For is honoured only when trustProxy is set.
func ClientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		slog.Warn("Failed to encode response", slog.Any("error", err))
	}
}
