// Package exchange declares the boundary between the pure control loop
// and a concrete trading venue. Nothing in this package touches the
// network; internal/exchange/clob provides the one implementation this
// repo ships.
package exchange

import (
	"context"

	"github.com/laddermaker/ladderbot/pkg/types"
)

// Exchange is everything the control loop needs from a venue: a snapshot
// of the market and the trader's own resting orders, and the ability to
// place and cancel orders. Implementations own all venue-specific
// concerns (auth, rate limiting, wire encoding, price scaling); the
// control loop only ever sees pkg/types values.
type Exchange interface {
	// Stats returns the latest observed price and the trader's currently
	// open orders. It does not block on a fresh network round trip if a
	// live local mirror is available.
	Stats(ctx context.Context) (types.Stats, error)

	// MakeOrders places the given orders. A partial failure is reported
	// as a single error; the control loop does not retry within the
	// iteration that produced it.
	MakeOrders(ctx context.Context, orders []types.MakeOrderRequest) error

	// CancelOrders cancels the given orders by id.
	CancelOrders(ctx context.Context, orders []types.CancelOrderRequest) error
}
