// Package types defines the shared vocabulary of the ladder market maker:
// order sides, the live/target order shapes, and the exchange snapshot.
// It has no dependency on any internal package, so it can be imported by
// every layer from the pure core up to the concrete exchange adapter.
package types

// OrderType is the side of an order: a resting buy (Bid) or sell (Ask).
type OrderType int

const (
	Bid OrderType = iota
	Ask
)

// String renders the order type the way logs and the status API want it.
func (t OrderType) String() string {
	switch t {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// Order is a live order observed resting on the exchange. Amount is the
// currently remaining (unfilled) size, not the size it was originally
// placed with. Price and Amount are unsigned fixed-point integers in
// whatever scale the exchange adapter uses consistently; the core never
// interprets the scale.
type Order struct {
	OrderType OrderType
	ID        string
	Price     uint64
	Amount    uint64
}

// MakeOrderRequest is a desired placement, produced by the ladder builder
// or the reconciler and consumed by the exchange port.
type MakeOrderRequest struct {
	OrderType OrderType
	Price     uint64
	Amount    uint64
}

// CancelOrderRequest is a desired cancellation, identified by the id the
// exchange assigned when the order was placed.
type CancelOrderRequest struct {
	ID string
}

// Stats is a point-in-time snapshot of the market and the trader's own
// open orders, as returned by the exchange port's Stats call. It is
// immutable within an iteration and discarded at the end of it.
type Stats struct {
	LatestPrice uint64
	OpenOrders  []Order
}
