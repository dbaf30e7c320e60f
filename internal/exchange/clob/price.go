package clob

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale is the fixed-point scale the core operates in: a core price
// of 1 represents 1/PriceScale of a unit of the venue's quote currency.
// The venue's wire format is a decimal string; toVenuePrice/fromVenuePrice
// are the one place this boundary is crossed, using shopspring/decimal
// rather than float64 so the conversion never loses precision.
const PriceScale = 100000000

var priceScaleDec = decimal.NewFromInt(PriceScale)

// toVenuePrice converts a core scaled-uint64 price to the decimal string
// the venue's order payload expects.
func toVenuePrice(price uint64) string {
	return decimal.NewFromInt(int64(price)).DivRound(priceScaleDec, 8).String()
}

// fromVenuePrice converts a decimal-string price from the venue (book
// levels, order acks) to the core's scaled-uint64 representation.
func fromVenuePrice(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse venue price %q: %w", s, err)
	}
	scaled := d.Mul(priceScaleDec)
	if scaled.IsNegative() {
		return 0, fmt.Errorf("venue price %q is negative", s)
	}
	return uint64(scaled.Round(0).IntPart()), nil
}

// toVenueAmount and fromVenueAmount mirror the price conversion for order
// sizes, which the venue also reports as decimal strings.
func toVenueAmount(amount uint64) string {
	return decimal.NewFromInt(int64(amount)).DivRound(priceScaleDec, 8).String()
}

func fromVenueAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse venue amount %q: %w", s, err)
	}
	scaled := d.Mul(priceScaleDec)
	if scaled.IsNegative() {
		return 0, fmt.Errorf("venue amount %q is negative", s)
	}
	return uint64(scaled.Round(0).IntPart()), nil
}

// parseDecimalString parses a venue wire-format decimal string without
// scaling, for intermediate arithmetic (e.g. averaging a bid and an ask)
// that happens before the single fromVenuePrice scaling step.
func parseDecimalString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// midString returns the average of two venue decimal prices, still in
// venue wire format.
func midString(a, b decimal.Decimal) string {
	return a.Add(b).Div(decimal.NewFromInt(2)).String()
}
