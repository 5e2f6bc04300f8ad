// Package domain defines the core data types of the coinrank platform:
// individual price points and the per-asset aggregate statistics derived
// from them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used throughout the platform.
const DateLayout = "2006-01-02"

// PricePoint is a single observed price of an asset at an instant.
// Immutable once constructed. The asset itself is not part of the point;
// it is encoded in the storage unit the point belongs to.
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// NewPricePoint builds a PricePoint from an epoch-millisecond timestamp and
// an exact decimal price. The timestamp is normalised to UTC.
func NewPricePoint(epochMillis int64, price decimal.Decimal) PricePoint {
	return PricePoint{
		Timestamp: time.UnixMilli(epochMillis).UTC(),
		Price:     price,
	}
}
