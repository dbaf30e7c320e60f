// book.go maintains a local mirror of the order book for the single
// instrument this bot quotes, fed by the venue's market data WebSocket.
// Stats() reads the mirror synchronously instead of polling a REST
// endpoint every control loop iteration.
package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	pingInterval     = 50 * time.Second
)

type priceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookEvent struct {
	EventType string       `json:"event_type"`
	MarketID  string       `json:"market"`
	Bids      []priceLevel `json:"buys"`
	Asks      []priceLevel `json:"sells"`
}

// Book is a concurrency-safe mirror of the best bid/ask for one market,
// updated from a market-data WebSocket feed.
type Book struct {
	url      string
	marketID string
	logger   *slog.Logger

	mu      sync.RWMutex
	bestBid decimal.Decimal
	bestAsk decimal.Decimal
	updated time.Time
}

// NewBook creates a book mirror for the given market, subscribed over wsURL.
func NewBook(wsURL, marketID string, logger *slog.Logger) *Book {
	return &Book{
		url:      wsURL,
		marketID: marketID,
		logger:   logger.With("component", "clob_book"),
	}
}

// Run connects to the market feed and maintains the mirror until ctx is
// cancelled, reconnecting with exponential backoff on any failure.
func (b *Book) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := b.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warn("market feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (b *Book) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sub := struct {
		Type     string   `json:"type"`
		AssetIDs []string `json:"assets_ids"`
	}{Type: "market", AssetIDs: []string{b.marketID}}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	b.logger.Info("market feed connected", "market", b.marketID)

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		b.applyMessage(msg)
	}
}

func (b *Book) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				b.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (b *Book) applyMessage(data []byte) {
	var evt bookEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return
	}
	if evt.EventType != "book" || evt.MarketID != b.marketID {
		return
	}
	if len(evt.Bids) == 0 || len(evt.Asks) == 0 {
		return
	}

	bid, errBid := decimal.NewFromString(evt.Bids[0].Price)
	ask, errAsk := decimal.NewFromString(evt.Asks[0].Price)
	if errBid != nil || errAsk != nil {
		return
	}

	b.mu.Lock()
	b.bestBid = bid
	b.bestAsk = ask
	b.updated = time.Now()
	b.mu.Unlock()
}

// MidPrice returns the mid of the best bid/ask as a decimal string
// suitable for fromVenuePrice, and whether the book has ever been
// populated.
func (b *Book) MidPrice() (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.updated.IsZero() {
		return "", false
	}
	mid := b.bestBid.Add(b.bestAsk).Div(decimal.NewFromInt(2))
	return mid.String(), true
}

// IsStale reports whether the mirror hasn't updated within maxAge.
func (b *Book) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.updated.IsZero() {
		return true
	}
	return time.Since(b.updated) > maxAge
}
