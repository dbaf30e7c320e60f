package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/laddermaker/ladderbot/internal/control"
	"github.com/laddermaker/ladderbot/pkg/types"
)

func TestRecordIterationAndRecent(t *testing.T) {
	t.Parallel()

	log, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ctx := context.Background()

	results := []control.IterationResult{
		{
			Timestamp: time.Now(),
			Stats:     types.Stats{LatestPrice: 1000},
			Target:    make([]types.MakeOrderRequest, 6),
			Made:      make([]types.MakeOrderRequest, 6),
			Cancelled: nil,
		},
		{
			Timestamp: time.Now(),
			Stats:     types.Stats{LatestPrice: 1010},
			Err:       errors.New("dispatch failed"),
		},
	}

	for _, r := range results {
		if err := log.RecordIteration(ctx, r); err != nil {
			t.Fatalf("RecordIteration() error = %v", err)
		}
	}

	recent, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent() returned %d records, want 2", len(recent))
	}

	// newest first
	if recent[0].LatestPrice != 1010 {
		t.Errorf("recent[0].LatestPrice = %d, want 1010", recent[0].LatestPrice)
	}
	if recent[0].Error != "dispatch failed" {
		t.Errorf("recent[0].Error = %q, want %q", recent[0].Error, "dispatch failed")
	}
	if recent[1].LatestPrice != 1000 {
		t.Errorf("recent[1].LatestPrice = %d, want 1000", recent[1].LatestPrice)
	}
	if recent[1].MadeCount != 6 {
		t.Errorf("recent[1].MadeCount = %d, want 6", recent[1].MadeCount)
	}
}

func TestRecentRespectsCount(t *testing.T) {
	t.Parallel()

	log, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := log.RecordIteration(ctx, control.IterationResult{Timestamp: time.Now()}); err != nil {
			t.Fatalf("RecordIteration() error = %v", err)
		}
	}

	recent, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("Recent(2) returned %d records, want 2", len(recent))
	}
}
