package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock_checker/internal/app"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config   string `short:"c" long:"config" env:"STOCK_CONFIG" description:"Path to YAML config file" default:"configs/config.yaml"`
	Addr     string `short:"a" long:"addr" description:"Listen address, overrides server.addr"`
	LogLevel string `short:"l" long:"log-level" description:"Log level (debug, info, warn, error)"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// 1. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, opts.Config, app.Overrides{Addr: opts.Addr, LogLevel: opts.LogLevel}); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := bootstrap.Close(); err != nil {
			slog.Error("Failed to close record store", slog.Any("error", err))
		}
	}()

	// 3. HTTP Server
	srv := bootstrap.Server()
	errCh := srv.Start()

	slog.InfoContext(ctx, "✨ Stock Price Checker fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal or listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server failed", slog.Any("error", err))
		}
	}

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", slog.Any("error", err))
	}
}
