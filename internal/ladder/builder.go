// Package ladder computes the target set of resting orders the strategy
// wants on the book for the latest observed price. It is pure, total, and
// deterministic: the same (latestPrice, config) pair always yields the
// same ladder, and it touches neither the network nor the clock.
package ladder

import (
	"github.com/laddermaker/ladderbot/internal/config"
	"github.com/laddermaker/ladderbot/pkg/types"
)

// Build derives the target ladder from the latest price and the strategy
// configuration. Bids descend from one increment below latestPrice, asks
// ascend from one increment above it, each side capped at
// MaxOrdersPerDirection entries and every price a multiple of Increment.
//
// The two sides underflow independently. When latestPrice is below one
// increment, no grid point lies strictly below it, so bids are dropped
// entirely (startingBid would underflow); asks have no analogous risk and
// are still built as long as latestPrice is nonzero (startingAsk's only
// underflow case is latestPrice == 0, since it subtracts 1 before
// dividing). A market quoted at a low enough price that it sits below one
// increment still gets a resting ask side.
//
// The price guards are a head-skip (skip_while), not a filter: bids are
// dropped from the front of the descending sequence while price is still
// at or below MaxBuyPrice, asks from the front of the ascending sequence
// while price is still at or above MinSellPrice. Because each sequence
// moves monotonically away from latestPrice, the guard can only ever be
// a no-op (the starting price already clears the threshold, so nothing
// is ever skipped) or a full kill of that side (the starting price fails
// the threshold, so every subsequent price fails it too): it is a
// per-side circuit breaker, not a partial ladder truncation. With the
// defaults used to disable a guard (MaxBuyPrice=0, MinSellPrice=
// math.MaxUint64) the starting price always clears, so the full ladder
// survives; see original_source/src/lib.rs's skip_while.
func Build(latestPrice uint64, cfg config.StrategyConfig) []types.MakeOrderRequest {
	if cfg.Increment == 0 {
		return nil
	}

	orders := make([]types.MakeOrderRequest, 0, 2*cfg.MaxOrdersPerDirection)

	if latestPrice >= cfg.Increment {
		orders = appendBids(orders, latestPrice, cfg)
	}
	if latestPrice >= 1 {
		orders = appendAsks(orders, latestPrice, cfg)
	}

	return orders
}

func appendBids(orders []types.MakeOrderRequest, latestPrice uint64, cfg config.StrategyConfig) []types.MakeOrderRequest {
	increment := cfg.Increment
	start := startingBid(latestPrice, increment)

	skipping := true
	for i := uint64(0); i < cfg.MaxOrdersPerDirection; i++ {
		step := increment * i
		if step > start {
			// start - step would underflow; no more bids can be emitted.
			break
		}
		price := start - step

		if skipping {
			if price <= cfg.MaxBuyPrice {
				continue
			}
			skipping = false
		}

		orders = append(orders, types.MakeOrderRequest{
			OrderType: types.Bid,
			Price:     price,
			Amount:    cfg.OrderSize,
		})
	}
	return orders
}

func appendAsks(orders []types.MakeOrderRequest, latestPrice uint64, cfg config.StrategyConfig) []types.MakeOrderRequest {
	increment := cfg.Increment
	start := startingAsk(latestPrice, increment)

	skipping := true
	for i := uint64(0); i < cfg.MaxOrdersPerDirection; i++ {
		price := start + increment*i

		if skipping {
			if price >= cfg.MinSellPrice {
				continue
			}
			skipping = false
		}

		orders = append(orders, types.MakeOrderRequest{
			OrderType: types.Ask,
			Price:     price,
			Amount:    cfg.OrderSize,
		})
	}
	return orders
}

// startingBid is the best (highest) bid price the ladder will ever place:
// one full increment below the grid point at or below latestPrice.
func startingBid(latestPrice, increment uint64) uint64 {
	return (latestPrice/increment - 1) * increment
}

// startingAsk is the best (lowest) ask price the ladder will ever place.
// The -1 before dividing forces a genuine gap even when latestPrice
// already sits exactly on a grid point.
func startingAsk(latestPrice, increment uint64) uint64 {
	return ((latestPrice-1)/increment + 2) * increment
}
