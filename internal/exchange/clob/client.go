// Package clob implements the Exchange port against a CLOB-style venue:
// a REST API for order management authenticated with the same L1/L2
// scheme as the teacher's Polymarket client, rate-limited per endpoint
// category, fronted by a local WebSocket book mirror so Stats() only
// fetches the book over REST while the mirror has no data yet.
package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/laddermaker/ladderbot/internal/config"
	"github.com/laddermaker/ladderbot/pkg/types"
)

// Client is the CLOB REST API client. It implements internal/exchange.Exchange.
type Client struct {
	http     *resty.Client
	auth     *Auth
	rl       *RateLimiter
	book     *Book
	marketID string
	dryRun   bool
	logger   *slog.Logger
}

// New creates a Client wired from configuration. It also constructs (but
// does not start) the book mirror; the caller is expected to run
// Book().Run(ctx) in its own goroutine before relying on Stats().
func New(cfg config.Config, logger *slog.Logger) (*Client, error) {
	auth, err := NewAuth(cfg)
	if err != nil {
		return nil, fmt.Errorf("new auth: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Exchange.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     httpClient,
		auth:     auth,
		rl:       NewRateLimiter(),
		book:     NewBook(cfg.Exchange.WSURL, cfg.Exchange.MarketID, logger),
		marketID: cfg.Exchange.MarketID,
		dryRun:   cfg.DryRun,
		logger:   logger.With("component", "clob_client"),
	}, nil
}

// Book returns the local book mirror so the caller can run its feed loop.
func (c *Client) Book() *Book { return c.book }

// HasCredentials reports whether L2 (HMAC) credentials are already
// configured, so the caller knows whether it must call DeriveCredentials
// before the client can place or cancel orders.
func (c *Client) HasCredentials() bool { return c.auth.HasCredentials() }

type orderPayload struct {
	Market string `json:"market"`
	Side   string `json:"side"`
	Price  string `json:"price"`
	Size   string `json:"size"`
	Maker  string `json:"maker"`
	Signer string `json:"signer"`
}

type orderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderID"`
	Error   string `json:"errorMsg"`
}

type cancelResponse struct {
	Canceled []string `json:"canceled"`
}

type openOrder struct {
	ID     string `json:"id"`
	Side   string `json:"side"`
	Price  string `json:"price"`
	Size   string `json:"original_size"`
	Filled string `json:"size_matched"`
}

// Stats returns the latest observed price from the book mirror and the
// trader's currently open orders for the configured market, fetched over
// REST. If the book mirror has no data yet (feed not connected, or not
// started), Stats falls back to a direct book read.
func (c *Client) Stats(ctx context.Context) (types.Stats, error) {
	priceStr, ok := c.book.MidPrice()
	if !ok {
		var err error
		priceStr, err = c.fetchMidPriceREST(ctx)
		if err != nil {
			return types.Stats{}, fmt.Errorf("fetch mid price: %w", err)
		}
	}

	latestPrice, err := fromVenuePrice(priceStr)
	if err != nil {
		return types.Stats{}, fmt.Errorf("parse mid price: %w", err)
	}

	openOrders, err := c.fetchOpenOrders(ctx)
	if err != nil {
		return types.Stats{}, fmt.Errorf("fetch open orders: %w", err)
	}

	return types.Stats{LatestPrice: latestPrice, OpenOrders: openOrders}, nil
}

func (c *Client) fetchMidPriceREST(ctx context.Context) (string, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return "", err
	}

	var result struct {
		Bids []priceLevel `json:"bids"`
		Asks []priceLevel `json:"asks"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("token_id", c.marketID).
		SetResult(&result).
		Get("/book")
	if err != nil {
		return "", fmt.Errorf("get book: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("get book: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Bids) == 0 || len(result.Asks) == 0 {
		return "", fmt.Errorf("empty book for market %s", c.marketID)
	}

	bid, err := parseDecimalString(result.Bids[0].Price)
	if err != nil {
		return "", err
	}
	ask, err := parseDecimalString(result.Asks[0].Price)
	if err != nil {
		return "", err
	}
	return midString(bid, ask), nil
}

func (c *Client) fetchOpenOrders(ctx context.Context) ([]types.Order, error) {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return nil, err
	}

	headers, err := c.auth.L2Headers("GET", "/orders", "")
	if err != nil {
		return nil, fmt.Errorf("l2 headers: %w", err)
	}

	var result []openOrder
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("market", c.marketID).
		SetResult(&result).
		Get("/orders")
	if err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	orders := make([]types.Order, 0, len(result))
	for _, o := range result {
		price, err := fromVenuePrice(o.Price)
		if err != nil {
			return nil, err
		}
		size, err := fromVenueAmount(o.Size)
		if err != nil {
			return nil, err
		}
		filled, err := fromVenueAmount(o.Filled)
		if err != nil {
			return nil, err
		}

		orderType := types.Bid
		if o.Side == "SELL" {
			orderType = types.Ask
		}

		remaining := uint64(0)
		if size > filled {
			remaining = size - filled
		}

		orders = append(orders, types.Order{
			OrderType: orderType,
			ID:        o.ID,
			Price:     price,
			Amount:    remaining,
		})
	}
	return orders, nil
}

// MakeOrders places the given orders against the configured market.
func (c *Client) MakeOrders(ctx context.Context, orders []types.MakeOrderRequest) error {
	if len(orders) == 0 {
		return nil
	}
	if c.dryRun {
		c.logger.Info("dry-run: would place orders", "count", len(orders))
		return nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return err
	}

	payloads := make([]orderPayload, len(orders))
	for i, o := range orders {
		side := "BUY"
		if o.OrderType == types.Ask {
			side = "SELL"
		}
		payloads[i] = orderPayload{
			Market: c.marketID,
			Side:   side,
			Price:  toVenuePrice(o.Price),
			Size:   toVenueAmount(o.Amount),
			Maker:  c.auth.FunderAddress().Hex(),
			Signer: c.auth.Address().Hex(),
		}
	}

	body, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("marshal orders: %w", err)
	}
	headers, err := c.auth.L2Headers("POST", "/orders", string(body))
	if err != nil {
		return fmt.Errorf("l2 headers: %w", err)
	}

	var results []orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(payloads).
		SetResult(&results).
		Post("/orders")
	if err != nil {
		return fmt.Errorf("post orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("post orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	for _, r := range results {
		if !r.Success {
			return fmt.Errorf("order rejected: %s", r.Error)
		}
	}

	c.logger.Info("orders placed", "count", len(results))
	return nil
}

// CancelOrders cancels the given orders by id.
func (c *Client) CancelOrders(ctx context.Context, orders []types.CancelOrderRequest) error {
	if len(orders) == 0 {
		return nil
	}
	if c.dryRun {
		c.logger.Info("dry-run: would cancel orders", "count", len(orders))
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	body, err := json.Marshal(struct {
		OrderIDs []string `json:"orderIDs"`
	}{OrderIDs: ids})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}
	headers, err := c.auth.L2Headers("DELETE", "/orders", string(body))
	if err != nil {
		return fmt.Errorf("l2 headers: %w", err)
	}

	var result cancelResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(json.RawMessage(body)).
		SetResult(&result).
		Delete("/orders")
	if err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("cancel orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.Info("orders cancelled", "count", len(result.Canceled))
	return nil
}

// DeriveCredentials derives L2 API credentials via L1 authentication and
// installs them on the client's Auth, for first-run bootstrap.
func (c *Client) DeriveCredentials(ctx context.Context) error {
	headers, err := c.auth.L1Headers(0)
	if err != nil {
		return fmt.Errorf("l1 headers: %w", err)
	}

	var result Credentials
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get("/auth/derive-api-key")
	if err != nil {
		return fmt.Errorf("derive api key: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("derive api key: status %d: %s", resp.StatusCode(), resp.String())
	}

	c.auth.SetCredentials(result)
	c.logger.Info("api credentials derived", "api_key", result.APIKey)
	return nil
}
