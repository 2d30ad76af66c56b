package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"stock_checker/internal/api"
	"stock_checker/internal/domain"
	"stock_checker/internal/infra"
	"stock_checker/internal/infra/anonymizer"
	"stock_checker/internal/infra/quote"
	"stock_checker/internal/infra/storage"
	"stock_checker/internal/service"

	"github.com/redis/go-redis/v9"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Store   domain.RecordStore
	Metrics *infra.Metrics
	Quotes  *service.QuoteService
	Handler http.Handler
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{Metrics: &infra.Metrics{}}
}

// Initialize performs core system initialization (config, logger, store, services)
func (b *Bootstrap) Initialize(ctx context.Context, configPath string, overrides Overrides) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	overrides.apply(cfg)
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping Stock Price Checker...", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (DB)
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Record store initialized", slog.String("driver", cfg.Storage.Driver))

	// 4. Wire services
	anon := anonymizer.NewBcrypt(cfg.Security.HashCost)
	prices := quote.NewClient(quote.Options{
		BaseURL: cfg.Quote.BaseURL,
		Timeout: cfg.QuoteTimeout(),
		RPS:     cfg.Quote.RPS,
		Burst:   cfg.Quote.Burst,
	})
	engine := service.NewLikeEngine(store, anon, b.Metrics)
	b.Quotes = service.NewQuoteService(prices, engine, b.Metrics)

	h := api.NewHandler(b.Quotes, store, b.Metrics, cfg.Server.TrustProxy)
	b.Handler = api.WithMiddleware(h.Routes(), b.Metrics)
	slog.Info("✅ Services ready", slog.String("quote_url", cfg.Quote.BaseURL))

	return nil
}

// Server builds the HTTP server for the initialized handler
func (b *Bootstrap) Server() *api.Server {
	return api.NewServer(api.ServerOptions{
		Addr:         b.Config.Server.Addr,
		ReadTimeout:  time.Duration(b.Config.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(b.Config.Server.WriteTimeoutSec) * time.Second,
	}, b.Handler)
}

// Close releases the record store
func (b *Bootstrap) Close() error {
	if b.Store == nil {
		return nil
	}
	return b.Store.Close()
}

func openStore(ctx context.Context, cfg *infra.Config) (domain.RecordStore, error) {
	switch cfg.Storage.Driver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		store := storage.NewRedisStore(rdb)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, nil
	default:
		return storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	}
}

// Overrides carries command-line values that take precedence over config and env
type Overrides struct {
	Addr     string
	LogLevel string
}

func (o Overrides) apply(cfg *infra.Config) {
	if o.Addr != "" {
		cfg.Server.Addr = o.Addr
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
}
