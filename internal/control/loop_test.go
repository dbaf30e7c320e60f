package control

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/laddermaker/ladderbot/internal/config"
	"github.com/laddermaker/ladderbot/pkg/types"
)

type fakeExchange struct {
	mu sync.Mutex

	stats    types.Stats
	statsErr error

	made      []types.MakeOrderRequest
	cancelled []types.CancelOrderRequest
	makeErr   error
	cancelErr error
}

func (f *fakeExchange) Stats(ctx context.Context) (types.Stats, error) {
	return f.stats, f.statsErr
}

func (f *fakeExchange) MakeOrders(ctx context.Context, orders []types.MakeOrderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.made = orders
	return f.makeErr
}

func (f *fakeExchange) CancelOrders(ctx context.Context, orders []types.CancelOrderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = orders
	return f.cancelErr
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []IterationResult
}

func (r *fakeRecorder) RecordIteration(ctx context.Context, result IterationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, result)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStrategyConfig() config.StrategyConfig {
	return config.StrategyConfig{
		Increment:                     10,
		OrderSize:                     100,
		MinOrderSize:                  10,
		MaxBuyPrice:                   0,
		MinSellPrice:                  math.MaxUint64,
		MaxOrdersPerDirection:         3,
		MaxOrdersToMakePerIteration:   10,
		MaxOrdersToCancelPerIteration: 10,
		IterationInterval:             time.Millisecond,
	}
}

func TestRunIterationBuildsAndDispatches(t *testing.T) {
	t.Parallel()

	exch := &fakeExchange{stats: types.Stats{LatestPrice: 1000}}
	loop := New(exch, testStrategyConfig(), nil, testLogger())

	result := loop.runIteration(context.Background())

	if result.Err != nil {
		t.Fatalf("runIteration() error = %v", result.Err)
	}
	if len(result.Target) != 6 {
		t.Fatalf("target ladder has %d orders, want 6", len(result.Target))
	}
	if len(result.Made) != 6 {
		t.Errorf("made %d orders, want 6 (no open orders to reconcile against)", len(result.Made))
	}
	if len(result.Cancelled) != 0 {
		t.Errorf("cancelled %d orders, want 0", len(result.Cancelled))
	}
}

func TestRunIterationStopsAtStatsError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("stats unavailable")
	exch := &fakeExchange{statsErr: wantErr}
	loop := New(exch, testStrategyConfig(), nil, testLogger())

	result := loop.runIteration(context.Background())

	if !errors.Is(result.Err, wantErr) {
		t.Fatalf("runIteration() error = %v, want %v", result.Err, wantErr)
	}
	if result.Made != nil || result.Cancelled != nil {
		t.Errorf("no dispatch should happen when Stats fails, got made=%v cancelled=%v", result.Made, result.Cancelled)
	}
}

func TestRunIterationReportsDispatchError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("make orders failed")
	exch := &fakeExchange{
		stats:   types.Stats{LatestPrice: 1000},
		makeErr: wantErr,
	}
	loop := New(exch, testStrategyConfig(), nil, testLogger())

	result := loop.runIteration(context.Background())

	if !errors.Is(result.Err, wantErr) {
		t.Fatalf("runIteration() error = %v, want %v", result.Err, wantErr)
	}
}

func TestRunRecordsEveryIterationAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	exch := &fakeExchange{stats: types.Stats{LatestPrice: 1000}}
	rec := &fakeRecorder{}
	loop := New(exch, testStrategyConfig(), rec, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context cancellation", err)
	}

	rec.mu.Lock()
	n := len(rec.records)
	rec.mu.Unlock()
	if n == 0 {
		t.Error("expected at least one recorded iteration")
	}
}

func TestLastReflectsMostRecentIteration(t *testing.T) {
	t.Parallel()

	exch := &fakeExchange{stats: types.Stats{LatestPrice: 2000}}
	loop := New(exch, testStrategyConfig(), nil, testLogger())

	if zero := loop.Last(); !zero.Timestamp.IsZero() {
		t.Fatalf("Last() before any iteration should be zero value, got %+v", zero)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = loop.Run(ctx)

	last := loop.Last()
	if last.Stats.LatestPrice != 2000 {
		t.Errorf("Last().Stats.LatestPrice = %d, want 2000", last.Stats.LatestPrice)
	}
}
