package statusapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/laddermaker/ladderbot/internal/audit"
	"github.com/laddermaker/ladderbot/internal/control"
	"github.com/laddermaker/ladderbot/pkg/types"
)

type fakeLoop struct {
	result control.IterationResult
}

func (f fakeLoop) Last() control.IterationResult { return f.result }

type fakeBook struct {
	mid     string
	ok      bool
	isStale bool
}

func (f fakeBook) MidPrice() (string, bool)        { return f.mid, f.ok }
func (f fakeBook) IsStale(maxAge time.Duration) bool { return f.isStale }

type fakeAudit struct {
	records []audit.IterationRecord
	err     error
}

func (f fakeAudit) Recent(ctx context.Context, count int) ([]audit.IterationRecord, error) {
	return f.records, f.err
}

func TestBuildSnapshotPopulatesFromLoop(t *testing.T) {
	t.Parallel()

	loop := fakeLoop{result: control.IterationResult{
		Timestamp: time.Unix(100, 0),
		Stats:     types.Stats{LatestPrice: 1000, OpenOrders: []types.Order{{OrderType: types.Bid, Price: 990, Amount: 100}}},
		Target:    []types.MakeOrderRequest{{OrderType: types.Bid, Price: 990, Amount: 100}},
		Made:      []types.MakeOrderRequest{{OrderType: types.Bid, Price: 990, Amount: 100}},
	}}

	snap := buildSnapshot(context.Background(), loop, nil, nil)

	if snap.LatestPrice != 1000 {
		t.Errorf("LatestPrice = %d, want 1000", snap.LatestPrice)
	}
	if len(snap.TargetLadder) != 1 || len(snap.OpenOrders) != 1 || len(snap.LastMade) != 1 {
		t.Errorf("snapshot did not carry through loop fields: %+v", snap)
	}
	if !snap.LastIterationAt.Equal(time.Unix(100, 0)) {
		t.Errorf("LastIterationAt = %v, want %v", snap.LastIterationAt, time.Unix(100, 0))
	}
	if snap.LastIterationErr != "" {
		t.Errorf("LastIterationErr = %q, want empty", snap.LastIterationErr)
	}
}

func TestBuildSnapshotCarriesIterationError(t *testing.T) {
	t.Parallel()

	loop := fakeLoop{result: control.IterationResult{Err: errors.New("dispatch failed")}}
	snap := buildSnapshot(context.Background(), loop, nil, nil)

	if snap.LastIterationErr != "dispatch failed" {
		t.Errorf("LastIterationErr = %q, want %q", snap.LastIterationErr, "dispatch failed")
	}
}

func TestBuildSnapshotOmitsMidPriceWhenBookNil(t *testing.T) {
	t.Parallel()

	snap := buildSnapshot(context.Background(), fakeLoop{}, nil, nil)
	if snap.MidPrice != "" {
		t.Errorf("MidPrice = %q, want empty with nil book", snap.MidPrice)
	}
}

func TestBuildSnapshotIncludesMidPriceWhenBookSet(t *testing.T) {
	t.Parallel()

	book := fakeBook{mid: "0.52", ok: true, isStale: false}
	snap := buildSnapshot(context.Background(), fakeLoop{}, book, nil)

	if snap.MidPrice != "0.52" {
		t.Errorf("MidPrice = %q, want %q", snap.MidPrice, "0.52")
	}
	if snap.BookStale {
		t.Error("BookStale = true, want false")
	}
}

func TestBuildSnapshotIncludesRecentWhenAuditSet(t *testing.T) {
	t.Parallel()

	al := fakeAudit{records: []audit.IterationRecord{{LatestPrice: 1000}, {LatestPrice: 1010}}}
	snap := buildSnapshot(context.Background(), fakeLoop{}, nil, al)

	if len(snap.Recent) != 2 {
		t.Errorf("Recent has %d entries, want 2", len(snap.Recent))
	}
}

func TestBuildSnapshotOmitsRecentOnAuditError(t *testing.T) {
	t.Parallel()

	al := fakeAudit{err: errors.New("db gone")}
	snap := buildSnapshot(context.Background(), fakeLoop{}, nil, al)

	if snap.Recent != nil {
		t.Errorf("Recent = %v, want nil on audit error", snap.Recent)
	}
}
