// Package control runs the market-making control loop: fetch a snapshot,
// compute the target ladder, reconcile it against what's resting, dispatch
// placements and cancellations, sleep, repeat. It holds no state across
// iterations beyond the last result it keeps for observability — a missed
// or failed iteration is simply followed by the next one.
package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/laddermaker/ladderbot/internal/config"
	"github.com/laddermaker/ladderbot/internal/exchange"
	"github.com/laddermaker/ladderbot/internal/ladder"
	"github.com/laddermaker/ladderbot/internal/reconcile"
	"github.com/laddermaker/ladderbot/pkg/types"
)

// Recorder persists a record of one iteration for observability. It is
// write-only from the loop's perspective: the loop never reads a record
// back, so a Recorder failure never influences trading decisions.
type Recorder interface {
	RecordIteration(ctx context.Context, result IterationResult) error
}

// IterationResult is a snapshot of what one iteration of the loop did.
type IterationResult struct {
	Timestamp time.Time
	Stats     types.Stats
	Target    []types.MakeOrderRequest
	Made      []types.MakeOrderRequest
	Cancelled []types.CancelOrderRequest
	Err       error
}

// Loop is the market-making control loop.
type Loop struct {
	exchange exchange.Exchange
	cfg      config.StrategyConfig
	recorder Recorder
	logger   *slog.Logger

	mu   sync.RWMutex
	last IterationResult
}

// New creates a Loop. recorder may be nil to disable the audit trail.
func New(exch exchange.Exchange, cfg config.StrategyConfig, recorder Recorder, logger *slog.Logger) *Loop {
	return &Loop{
		exchange: exch,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.With("component", "control_loop"),
	}
}

// Run executes iterations until ctx is cancelled. An iteration error is
// logged and never propagated past the sleep that follows it — the loop
// does not crash, retry, or catch up on missed work.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result := l.runIteration(ctx)

		l.mu.Lock()
		l.last = result
		l.mu.Unlock()

		if result.Err != nil {
			l.logger.Error("iteration failed", "error", result.Err)
		} else {
			l.logger.Info("iteration complete",
				"latest_price", result.Stats.LatestPrice,
				"made", len(result.Made),
				"cancelled", len(result.Cancelled),
			)
		}

		if l.recorder != nil {
			recCtx, cancel := context.WithTimeout(context.Background(), l.cfg.IterationInterval)
			if err := l.recorder.RecordIteration(recCtx, result); err != nil {
				l.logger.Warn("audit record failed", "error", err)
			}
			cancel()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.IterationInterval):
		}
	}
}

// runIteration performs one pass: fetch, build, reconcile, dispatch. It
// never returns an error directly — failures are carried in the returned
// IterationResult so the caller can log and record them uniformly.
func (l *Loop) runIteration(ctx context.Context) IterationResult {
	result := IterationResult{Timestamp: time.Now()}

	stats, err := l.exchange.Stats(ctx)
	if err != nil {
		result.Err = err
		return result
	}
	result.Stats = stats

	target := ladder.Build(stats.LatestPrice, l.cfg)
	result.Target = target

	toCancel := reconcile.OrdersToCancel(stats.OpenOrders, target, l.cfg.MaxOrdersToCancelPerIteration)
	toMake := reconcile.OrdersToMake(stats.OpenOrders, target, l.cfg.MinOrderSize, l.cfg.MaxOrdersToMakePerIteration)
	result.Cancelled = toCancel
	result.Made = toMake

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.exchange.MakeOrders(gctx, toMake) })
	g.Go(func() error { return l.exchange.CancelOrders(gctx, toCancel) })
	result.Err = g.Wait()

	return result
}

// Last returns the most recently completed iteration's result. It is
// safe to call concurrently with Run, and exists solely so an
// observability surface can report current state; the loop itself never
// reads this back.
func (l *Loop) Last() IterationResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}
