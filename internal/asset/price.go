package asset

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Price is an exchange rate between two assets: units of quote per one unit
// of base. A zero rate is a valid, representable value meaning "no liquidity
// path"; it is distinct from a failed query.
type Price struct {
	rate      decimal.Decimal
	base      *Asset
	quote     *Asset
	timestamp time.Time
}

// NewPrice creates a price observed at the given time.
func NewPrice(base, quote *Asset, rate decimal.Decimal, timestamp time.Time) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate.IsNegative() {
		panic("asset: negative price rate")
	}
	return Price{rate: rate, base: base, quote: quote, timestamp: timestamp}
}

// NewPriceNow creates a price observed now.
func NewPriceNow(base, quote *Asset, rate decimal.Decimal) Price {
	return NewPrice(base, quote, rate, time.Now())
}

// Rate returns the rate in quote units per base unit.
func (p Price) Rate() decimal.Decimal {
	return p.rate
}

// Base returns the asset being priced.
func (p Price) Base() *Asset {
	return p.base
}

// Quote returns the unit of the price.
func (p Price) Quote() *Asset {
	return p.quote
}

// Timestamp returns when this price was observed.
func (p Price) Timestamp() time.Time {
	return p.timestamp
}

// IsZero returns true for a zero rate.
func (p Price) IsZero() bool {
	return p.rate.IsZero()
}

// Invert returns the reciprocal price with base and quote swapped. Inverting
// a zero price yields a zero price.
func (p Price) Invert() Price {
	inv := decimal.Zero
	if !p.rate.IsZero() {
		inv = decimal.New(1, 0).Div(p.rate)
	}
	return Price{rate: inv, base: p.quote, quote: p.base, timestamp: p.timestamp}
}

// Pair returns the pair label (e.g. "WETH/USDC").
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "???/???"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// String returns a human-readable representation.
func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.rate.String(), p.Pair())
}
