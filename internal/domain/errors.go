package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable.
// Nothing in the request path retries automatically; callers use this to classify.
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

var (
	// ErrInvalidRequest is returned when the stock query is missing or malformed. Not retriable.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidSymbol is returned when a ticker symbol is malformed. Not retriable.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrQuoteUnavailable is returned when the price source cannot produce a quote for a symbol
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrStoreUnavailable is returned when the record store cannot be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRecordNotFound is returned by RecordStore.Get for an unknown symbol
	ErrRecordNotFound = errors.New("record not found")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)

// ValidationError reports a caller error rejected at the boundary
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// QuoteError represents a per-symbol price source failure
type QuoteError struct {
	Symbol    string
	Err       error
	Retriable bool // timeouts and 5xx; unknown symbols are not
}

func (e *QuoteError) Error() string {
	return "quote " + e.Symbol + ": " + e.Err.Error()
}

func (e *QuoteError) IsRetriable() bool {
	return e.Retriable
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}

func (e *QuoteError) Is(target error) bool {
	return target == ErrQuoteUnavailable
}

// NewQuoteError creates a retriable quote error (network, timeout, 5xx)
func NewQuoteError(symbol string, err error) *QuoteError {
	return &QuoteError{Symbol: symbol, Err: err, Retriable: true}
}

// NewFatalQuoteError creates a non-retriable quote error (unknown symbol, bad payload)
func NewFatalQuoteError(symbol string, err error) *QuoteError {
	return &QuoteError{Symbol: symbol, Err: err, Retriable: false}
}

// StoreError wraps a persistence failure
type StoreError struct {
	Op  string // "find_or_create", "get", "apply_like", ...
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) IsRetriable() bool {
	return true
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreError wraps err unless it is nil
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
