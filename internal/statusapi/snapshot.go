// Package statusapi exposes a read-only HTTP and WebSocket surface over the
// control loop's current state. It never accepts commands: every handler
// only ever reads from internal/control.Loop and internal/audit.Log, so the
// status server can crash, hang, or be disconnected entirely without any
// effect on trading.
package statusapi

import (
	"context"
	"time"

	"github.com/laddermaker/ladderbot/internal/audit"
	"github.com/laddermaker/ladderbot/internal/control"
	"github.com/laddermaker/ladderbot/pkg/types"
)

// Snapshot is the complete point-in-time view served over /api/snapshot and
// pushed to WebSocket clients.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	LatestPrice uint64 `json:"latest_price"`
	MidPrice    string `json:"mid_price,omitempty"`
	BookStale   bool   `json:"book_stale"`

	TargetLadder  []types.MakeOrderRequest   `json:"target_ladder"`
	OpenOrders    []types.Order              `json:"open_orders"`
	LastMade      []types.MakeOrderRequest   `json:"last_made"`
	LastCancelled []types.CancelOrderRequest `json:"last_cancelled"`

	LastIterationAt  time.Time `json:"last_iteration_at"`
	LastIterationErr string    `json:"last_iteration_error,omitempty"`

	Recent []audit.IterationRecord `json:"recent,omitempty"`
}

// LoopSource is the subset of internal/control.Loop the status server
// depends on.
type LoopSource interface {
	Last() control.IterationResult
}

// BookSource reports the mid-price mirror kept by the exchange's WebSocket
// feed. A nil BookSource is handled by Server by simply omitting mid-price
// fields.
type BookSource interface {
	MidPrice() (string, bool)
	IsStale(maxAge time.Duration) bool
}

// AuditSource is the subset of internal/audit.Log the status server reads.
// A nil AuditSource omits the Recent field entirely.
type AuditSource interface {
	Recent(ctx context.Context, count int) ([]audit.IterationRecord, error)
}

const (
	staleBookThreshold = 2 * time.Minute
	recentHistoryCount = 20
)

func buildSnapshot(ctx context.Context, loop LoopSource, book BookSource, auditLog AuditSource) Snapshot {
	last := loop.Last()

	snap := Snapshot{
		Timestamp:       time.Now(),
		LatestPrice:     last.Stats.LatestPrice,
		TargetLadder:    last.Target,
		OpenOrders:      last.Stats.OpenOrders,
		LastMade:        last.Made,
		LastCancelled:   last.Cancelled,
		LastIterationAt: last.Timestamp,
	}

	if last.Err != nil {
		snap.LastIterationErr = last.Err.Error()
	}

	if book != nil {
		if mid, ok := book.MidPrice(); ok {
			snap.MidPrice = mid
		}
		snap.BookStale = book.IsStale(staleBookThreshold)
	}

	if auditLog != nil {
		if recent, err := auditLog.Recent(ctx, recentHistoryCount); err == nil {
			snap.Recent = recent
		}
	}

	return snap
}
