package domain

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// DecimalScale is the number of fractional digits kept on derived price
// ratios. Rounding is half to even.
const DecimalScale = 10

// ErrZeroMinPrice reports a normalized-price request on stats whose minimum
// price is exactly zero. The division is undefined in that case and callers
// receive this error instead of a panic.
var ErrZeroMinPrice = errors.New("minimum price is zero, normalized price is undefined")

// AggregateStats summarises an asset's full stored price history with four
// prices: the minimum, maximum, first and last. The four values are queried
// independently from storage, so first/last are not validated against
// [min, max].
//
// Derived values (range, difference, normalized price) are computed once and
// cached for the lifetime of the object.
type AggregateStats struct {
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	FirstPrice decimal.Decimal
	LastPrice  decimal.Decimal

	once       sync.Once
	priceRange decimal.Decimal
	priceDiff  decimal.Decimal
	normalized decimal.Decimal
	normErr    error
}

// NewAggregateStats builds stats over the given prices and eagerly computes
// the derived values.
func NewAggregateStats(minPrice, maxPrice, firstPrice, lastPrice decimal.Decimal) *AggregateStats {
	s := &AggregateStats{
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		FirstPrice: firstPrice,
		LastPrice:  lastPrice,
	}
	s.compute()
	return s
}

// compute fills the cached derived values. The once guard also covers stats
// constructed as literals rather than through NewAggregateStats.
func (s *AggregateStats) compute() {
	s.once.Do(func() {
		s.priceRange = s.MaxPrice.Sub(s.MinPrice)
		s.priceDiff = s.LastPrice.Sub(s.FirstPrice)
		s.normalized, s.normErr = NormalizedPrice(s.MinPrice, s.MaxPrice)
	})
}

// PriceRange returns maxPrice - minPrice.
func (s *AggregateStats) PriceRange() decimal.Decimal {
	s.compute()
	return s.priceRange
}

// PriceDifference returns lastPrice - firstPrice.
func (s *AggregateStats) PriceDifference() decimal.Decimal {
	s.compute()
	return s.priceDiff
}

// NormalizedPrice returns (max - min) / min rounded to DecimalScale
// fractional digits, half to even. Repeated calls return the cached value.
// ErrZeroMinPrice is returned when the minimum price is zero.
func (s *AggregateStats) NormalizedPrice() (decimal.Decimal, error) {
	s.compute()
	return s.normalized, s.normErr
}

// Gain reports whether the last price is above the first.
func (s *AggregateStats) Gain() bool { return s.PriceDifference().IsPositive() }

// Loss reports whether the last price is below the first.
func (s *AggregateStats) Loss() bool { return s.PriceDifference().IsNegative() }

// Flat reports whether the first and last prices are equal.
func (s *AggregateStats) Flat() bool { return s.PriceDifference().IsZero() }

// MarshalJSON serialises the four stored prices together with the derived
// values. The normalized price is omitted when it is undefined.
func (s *AggregateStats) MarshalJSON() ([]byte, error) {
	s.compute()
	out := struct {
		MinPrice        decimal.Decimal  `json:"minPrice"`
		MaxPrice        decimal.Decimal  `json:"maxPrice"`
		FirstPrice      decimal.Decimal  `json:"firstPrice"`
		LastPrice       decimal.Decimal  `json:"lastPrice"`
		PriceRange      decimal.Decimal  `json:"priceRange"`
		PriceDifference decimal.Decimal  `json:"priceDifference"`
		NormalizedPrice *decimal.Decimal `json:"normalizedPrice,omitempty"`
		Gain            bool             `json:"gain"`
		Loss            bool             `json:"loss"`
		Flat            bool             `json:"flat"`
	}{
		MinPrice:        s.MinPrice,
		MaxPrice:        s.MaxPrice,
		FirstPrice:      s.FirstPrice,
		LastPrice:       s.LastPrice,
		PriceRange:      s.priceRange,
		PriceDifference: s.priceDiff,
		Gain:            s.Gain(),
		Loss:            s.Loss(),
		Flat:            s.Flat(),
	}
	if s.normErr == nil {
		out.NormalizedPrice = &s.normalized
	}
	return json.Marshal(out)
}

// NormalizedPrice computes (max - min) / min rounded to DecimalScale
// fractional digits, half to even. It is the scale-free volatility proxy
// used for ranking assets.
func NormalizedPrice(minPrice, maxPrice decimal.Decimal) (decimal.Decimal, error) {
	if minPrice.IsZero() {
		return decimal.Decimal{}, ErrZeroMinPrice
	}
	// DivRound at extra precision, then bankers-round to the target scale.
	q := maxPrice.Sub(minPrice).DivRound(minPrice, DecimalScale+4)
	return q.RoundBank(DecimalScale), nil
}
