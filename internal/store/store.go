// Package store defines the narrow durable-storage contract for per-asset
// price series and provides SQLite and Parquet backed implementations.
package store

import (
	"context"
	"time"

	"coinrank/internal/domain"
)

// PriceStore persists and retrieves per-asset price series. Each asset owns
// an isolated storage unit (a table or a file), so implementations must
// support concurrent writes to distinct assets.
type PriceStore interface {
	// CreateSeries ensures the storage unit for the given asset exists.
	CreateSeries(ctx context.Context, id string) error

	// InsertPrices replaces the asset's stored series with the given points.
	InsertPrices(ctx context.Context, id string, points []domain.PricePoint) error

	// PriceStats returns the minimum, maximum, first and last price over the
	// asset's full stored series. A series with no stored points yields
	// (nil, nil); it is not an error.
	PriceStats(ctx context.Context, id string) (*domain.AggregateStats, error)

	// PricesOnDate returns the asset's points recorded on the given UTC
	// calendar date, in timestamp order. The result may be empty.
	PricesOnDate(ctx context.Context, id string, day time.Time) ([]domain.PricePoint, error)

	// SaveCatalog replaces the stored catalogue of known asset identifiers.
	SaveCatalog(ctx context.Context, ids []string) error
}

// dayBoundsMillis returns the UTC epoch-millisecond range [start, end)
// covering the calendar date of day.
func dayBoundsMillis(day time.Time) (int64, int64) {
	d := day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start.UnixMilli(), start.AddDate(0, 0, 1).UnixMilli()
}
