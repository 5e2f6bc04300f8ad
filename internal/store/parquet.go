package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"coinrank/internal/domain"
)

// Compile-time interface check.
var _ PriceStore = (*ParquetStore)(nil)

// ParquetStore implements PriceStore using one Parquet file per asset under
// a data directory. Like the SQLite backend, prices travel as their exact
// decimal strings.
type ParquetStore struct {
	DataDir string

	// Writes to distinct assets hit distinct files; the mutex only guards
	// the shared catalogue file.
	catalogMu sync.Mutex
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// priceRecord is the Parquet schema for a stored price point.
type priceRecord struct {
	Timestamp int64  `parquet:"ts,timestamp(millisecond)"` // Unix ms
	Price     string `parquet:"price"`
}

// catalogRecord is the Parquet schema for a known asset identifier.
type catalogRecord struct {
	Name string `parquet:"name"`
}

// CreateSeries ensures the prices directory exists. The asset's file itself
// is created on first insert.
func (s *ParquetStore) CreateSeries(_ context.Context, id string) error {
	if err := os.MkdirAll(filepath.Dir(s.seriesPath(id)), 0o755); err != nil {
		return fmt.Errorf("creating series dir for %s: %w", id, err)
	}
	return nil
}

// InsertPrices replaces the asset's stored series with the given points.
func (s *ParquetStore) InsertPrices(_ context.Context, id string, points []domain.PricePoint) error {
	records := make([]priceRecord, 0, len(points))
	for _, p := range points {
		records = append(records, priceRecord{
			Timestamp: p.Timestamp.UnixMilli(),
			Price:     p.Price.String(),
		})
	}

	path := s.seriesPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating series dir for %s: %w", id, err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing prices for %s: %w", id, err)
	}
	return nil
}

// PriceStats scans the asset's file for the extrema and endpoints. A missing
// or empty file yields (nil, nil).
func (s *ParquetStore) PriceStats(_ context.Context, id string) (*domain.AggregateStats, error) {
	records, err := parquet.ReadFile[priceRecord](s.seriesPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading prices for %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	first, err := decimal.NewFromString(records[0].Price)
	if err != nil {
		return nil, fmt.Errorf("decoding stored price %q for %s: %w", records[0].Price, id, err)
	}
	minPrice, maxPrice, firstPrice, lastPrice := first, first, first, first
	firstTS, lastTS := records[0].Timestamp, records[0].Timestamp

	for _, r := range records[1:] {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("decoding stored price %q for %s: %w", r.Price, id, err)
		}
		if price.LessThan(minPrice) {
			minPrice = price
		}
		if price.GreaterThan(maxPrice) {
			maxPrice = price
		}
		if r.Timestamp < firstTS {
			firstTS = r.Timestamp
			firstPrice = price
		}
		if r.Timestamp >= lastTS {
			lastTS = r.Timestamp
			lastPrice = price
		}
	}
	return domain.NewAggregateStats(minPrice, maxPrice, firstPrice, lastPrice), nil
}

// PricesOnDate returns the asset's points on the given UTC calendar date in
// stored (file) order. A missing file yields an empty result.
func (s *ParquetStore) PricesOnDate(_ context.Context, id string, day time.Time) ([]domain.PricePoint, error) {
	records, err := parquet.ReadFile[priceRecord](s.seriesPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading prices for %s: %w", id, err)
	}

	start, end := dayBoundsMillis(day)
	var points []domain.PricePoint
	for _, r := range records {
		if r.Timestamp < start || r.Timestamp >= end {
			continue
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, fmt.Errorf("decoding stored price %q for %s: %w", r.Price, id, err)
		}
		points = append(points, domain.NewPricePoint(r.Timestamp, price))
	}
	return points, nil
}

// SaveCatalog replaces the catalogue of known asset identifiers.
func (s *ParquetStore) SaveCatalog(_ context.Context, ids []string) error {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()

	records := make([]catalogRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, catalogRecord{Name: id})
	}

	path := filepath.Join(s.DataDir, "assets.parquet")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing catalogue: %w", err)
	}
	return nil
}

// seriesPath returns the Parquet file path for an asset's price series.
// Layout: <dataDir>/prices/<ID>.parquet
func (s *ParquetStore) seriesPath(id string) string {
	return filepath.Join(s.DataDir, "prices", id+".parquet")
}
