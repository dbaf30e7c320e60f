// ladderbot runs an automated grid market maker over a single order-book
// market: a fixed price ladder of bids and asks is kept resting around the
// order book's mid price, recomputed every iteration to track it.
//
// Architecture:
//
//	main.go                     — entry point: load config, wire components, wait for SIGINT/SIGTERM
//	internal/ladder/builder.go  — pure function: latest price + strategy config -> target ladder
//	internal/reconcile          — pure functions: target ladder + open orders -> make/cancel requests
//	internal/control/loop.go    — orchestrator: fetch -> build -> reconcile -> dispatch, on a timer
//	internal/exchange           — Exchange port the control loop depends on
//	internal/exchange/clob      — CLOB adapter: REST client, auth, rate limiting, WS book mirror
//	internal/audit              — write-only SQLite trail of iteration outcomes
//	internal/statusapi          — read-only HTTP/WebSocket surface over the loop's current state
//
// How it makes money:
//
//	The ladder posts bids below and asks above the latest price at fixed
//	increments. A fill on one side is expected to be offset later by a fill
//	on the other as the price moves through the grid, capturing the spread
//	between rungs. It does not predict direction; it only maintains the
//	grid and lets fills happen as the market walks through it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/laddermaker/ladderbot/internal/audit"
	"github.com/laddermaker/ladderbot/internal/config"
	"github.com/laddermaker/ladderbot/internal/control"
	"github.com/laddermaker/ladderbot/internal/exchange/clob"
	"github.com/laddermaker/ladderbot/internal/statusapi"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("LADDER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	client, err := clob.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create exchange client", "error", err)
		os.Exit(1)
	}

	if !client.HasCredentials() {
		deriveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := client.DeriveCredentials(deriveCtx)
		cancel()
		if err != nil {
			logger.Error("failed to derive API credentials", "error", err)
			os.Exit(1)
		}
	}

	var recorder control.Recorder
	var auditLog *audit.Log
	if cfg.Audit.Enabled {
		auditLog, err = audit.Open(cfg.Audit.DataDir)
		if err != nil {
			logger.Error("failed to open audit log", "error", err)
			os.Exit(1)
		}
		recorder = auditLog
	}

	loop := control.New(client, cfg.Strategy, recorder, logger)

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE - no real orders will be placed")
	}
	logger.Info("ladderbot starting",
		"market_id", cfg.Exchange.MarketID,
		"order_size", cfg.Strategy.OrderSize,
		"increment", cfg.Strategy.Increment,
		"levels_per_side", cfg.Strategy.MaxOrdersPerDirection,
		"dry_run", cfg.DryRun,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return client.Book().Run(gctx) })
	g.Go(func() error { return loop.Run(gctx) })

	if cfg.StatusAPI.Enabled {
		var auditSource statusapi.AuditSource
		if auditLog != nil {
			auditSource = auditLog
		}
		server := statusapi.New(cfg.StatusAPI, loop, client.Book(), auditSource, cfg.Strategy.IterationInterval, logger)
		g.Go(func() error { return server.Run(gctx) })
		logger.Info("status api started", "url", fmt.Sprintf("http://localhost:%d", cfg.StatusAPI.Port))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-gctx.Done():
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("component failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
