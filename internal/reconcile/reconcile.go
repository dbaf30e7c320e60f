// Package reconcile compares the live order book against the target
// ladder and derives the minimal set of placements and cancellations
// needed to converge on it. Like internal/ladder it is pure and total:
// given the same open orders and target ladder it always returns the
// same result, and it touches neither the network nor the clock.
package reconcile

import (
	"sort"

	"github.com/laddermaker/ladderbot/pkg/types"
)

// OrdersToMake returns the placements still needed to fill out the target
// ladder. For every target price that already has a resting order at that
// exact price, the open order's amount is subtracted from the target
// (saturating at zero); if what remains is below minOrderSize the target
// is dropped rather than placed at a token size. Surviving targets are
// interleaved bid-descending/ask-ascending, starting with the bid closest
// to the market, and capped at maxToMake.
func OrdersToMake(open []types.Order, target []types.MakeOrderRequest, minOrderSize uint64, maxToMake int) []types.MakeOrderRequest {
	bids := map[uint64]types.MakeOrderRequest{}
	asks := map[uint64]types.MakeOrderRequest{}
	for _, o := range target {
		switch o.OrderType {
		case types.Bid:
			bids[o.Price] = o
		case types.Ask:
			asks[o.Price] = o
		}
	}

	for _, o := range open {
		table := bids
		if o.OrderType == types.Ask {
			table = asks
		}
		entry, ok := table[o.Price]
		if !ok {
			continue
		}
		entry.Amount = saturatingSub(entry.Amount, o.Amount)
		if entry.Amount < minOrderSize {
			delete(table, o.Price)
		} else {
			table[o.Price] = entry
		}
	}

	bidPrices := sortedKeysDesc(bids)
	askPrices := sortedKeysAsc(asks)

	result := make([]types.MakeOrderRequest, 0, len(bidPrices)+len(askPrices))
	for i := 0; i < len(bidPrices) || i < len(askPrices); i++ {
		if i < len(bidPrices) {
			result = append(result, bids[bidPrices[i]])
		}
		if i < len(askPrices) {
			result = append(result, asks[askPrices[i]])
		}
	}

	if len(result) > maxToMake {
		result = result[:maxToMake]
	}
	return result
}

// OrdersToCancel returns the cancellations needed to clear open orders
// that no longer belong on the target ladder: any resting order whose
// price is not exactly one of the target prices on its side. Survivors
// are interleaved bid-descending/ask-ascending, starting with the bid
// closest to the market, and capped at maxToCancel.
func OrdersToCancel(open []types.Order, target []types.MakeOrderRequest, maxToCancel int) []types.CancelOrderRequest {
	targetBidPrices := map[uint64]struct{}{}
	targetAskPrices := map[uint64]struct{}{}
	for _, o := range target {
		switch o.OrderType {
		case types.Bid:
			targetBidPrices[o.Price] = struct{}{}
		case types.Ask:
			targetAskPrices[o.Price] = struct{}{}
		}
	}

	var bids, asks []types.Order
	for _, o := range open {
		switch o.OrderType {
		case types.Bid:
			if _, ok := targetBidPrices[o.Price]; !ok {
				bids = append(bids, o)
			}
		case types.Ask:
			if _, ok := targetAskPrices[o.Price]; !ok {
				asks = append(asks, o)
			}
		}
	}

	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	result := make([]types.CancelOrderRequest, 0, len(bids)+len(asks))
	for i := 0; i < len(bids) || i < len(asks); i++ {
		if i < len(bids) {
			result = append(result, types.CancelOrderRequest{ID: bids[i].ID})
		}
		if i < len(asks) {
			result = append(result, types.CancelOrderRequest{ID: asks[i].ID})
		}
	}

	if len(result) > maxToCancel {
		result = result[:maxToCancel]
	}
	return result
}

func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func sortedKeysDesc(m map[uint64]types.MakeOrderRequest) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	return keys
}

func sortedKeysAsc(m map[uint64]types.MakeOrderRequest) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
