package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock_checker/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public stock price proxy
	DefaultBaseURL = "https://stock-price-checker-proxy.freecodecamp.rocks"

	// DefaultUserAgent identifies this service to the price proxy
	DefaultUserAgent = "stock-checker/1.0 (+https://github.com)"

	maxBodyBytes = 1 << 20
)

// proxyQuote is the subset of the proxy's IEX-style quote payload we read
type proxyQuote struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	LatestPrice *float64 `json:"latestPrice"`
}

var _ domain.PriceFetcher = (*Client)(nil)

// Client fetches latest prices from the stock price proxy.
// Each fetch is a single attempt bounded by timeout; there is no retry.
type Client struct {
	baseURL    string
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
}

// Options configures a Client; zero values use defaults
type Options struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64 // upstream pacing, 0 = unlimited
	Burst   int
}

// NewClient creates a new quote client
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: 5 * time.Second,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Timeout > 0 {
		c.timeout = opts.Timeout
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	c.httpClient = &http.Client{Transport: transport}
	return c
}

// Fetch returns the latest price for symbol.
// All failures are *domain.QuoteError and match domain.ErrQuoteUnavailable.
func (c *Client) Fetch(ctx context.Context, symbol string) (*domain.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Pacing shares the deadline; a long queue surfaces as a timeout for this symbol only.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.NewQuoteError(symbol, fmt.Errorf("rate wait: %w", err))
	}

	start := time.Now()
	q, err := c.doFetch(ctx, symbol)
	if err != nil {
		slog.WarnContext(ctx, "Quote fetch failed",
			slog.String("symbol", symbol),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return nil, err
	}

	slog.DebugContext(ctx, "Quote fetched",
		slog.String("symbol", symbol),
		slog.String("price", q.Price.String()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return q, nil
}

func (c *Client) doFetch(ctx context.Context, symbol string) (*domain.Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/stock/%s/quote", c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewFatalQuoteError(symbol, err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewQuoteError(symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewQuoteError(symbol, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, domain.NewQuoteError(symbol, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, domain.NewFatalQuoteError(symbol, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	return parseQuote(symbol, body)
}

// parseQuote decodes a proxy body. The proxy answers unknown tickers with a
// 200 and a bare JSON string such as "Unknown symbol".
func parseQuote(symbol string, body []byte) (*domain.Quote, error) {
	var msg string
	if err := json.Unmarshal(body, &msg); err == nil {
		return nil, domain.NewFatalQuoteError(symbol, errors.New(strings.ToLower(msg)))
	}

	var data proxyQuote
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, domain.NewFatalQuoteError(symbol, fmt.Errorf("malformed payload: %w", err))
	}
	if data.LatestPrice == nil {
		return nil, domain.NewFatalQuoteError(symbol, errors.New("missing latestPrice"))
	}

	return &domain.Quote{
		Symbol: symbol,
		Price:  decimal.NewFromFloat(*data.LatestPrice),
	}, nil
}
