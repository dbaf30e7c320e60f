package clob

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func newTestBook() *Book {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBook("wss://example.org/market", "test-market", logger)
}

func TestBookMidPriceEmptyIsNotOK(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice() ok = true on empty book, want false")
	}
}

func TestBookApplyMessageUpdatesMidPrice(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	msg := []byte(`{"event_type":"book","market":"test-market","buys":[{"price":"0.49","size":"100"}],"sells":[{"price":"0.51","size":"100"}]}`)
	b.applyMessage(msg)

	mid, ok := b.MidPrice()
	if !ok {
		t.Fatal("MidPrice() ok = false after applying a book event")
	}
	if mid != "0.5" {
		t.Errorf("MidPrice() = %q, want %q", mid, "0.5")
	}
}

func TestBookApplyMessageIgnoresOtherMarkets(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	msg := []byte(`{"event_type":"book","market":"other-market","buys":[{"price":"0.49","size":"100"}],"sells":[{"price":"0.51","size":"100"}]}`)
	b.applyMessage(msg)

	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice() ok = true after event for a different market, want false")
	}
}

func TestBookApplyMessageIgnoresNonBookEvents(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	msg := []byte(`{"event_type":"last_trade_price","market":"test-market"}`)
	b.applyMessage(msg)

	if _, ok := b.MidPrice(); ok {
		t.Error("MidPrice() ok = true after a non-book event, want false")
	}
}

func TestBookIsStale(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	if !b.IsStale(time.Second) {
		t.Error("IsStale() = false on an unpopulated book, want true")
	}

	msg := []byte(`{"event_type":"book","market":"test-market","buys":[{"price":"0.49","size":"100"}],"sells":[{"price":"0.51","size":"100"}]}`)
	b.applyMessage(msg)

	if b.IsStale(time.Minute) {
		t.Error("IsStale() = true right after an update, want false")
	}
}
