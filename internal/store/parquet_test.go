package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coinrank/internal/domain"
)

func TestParquetStore(t *testing.T) {
	runPriceStoreTests(t, NewParquetStore(t.TempDir()))
}

func TestParquetStoreMissingSeries(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	// A series that was never written behaves like an empty one.
	st, err := s.PriceStats(ctx, "GHOST")
	if err != nil {
		t.Fatalf("PriceStats: %v", err)
	}
	if st != nil {
		t.Errorf("PriceStats = %+v, want nil for missing series", st)
	}

	points, err := s.PricesOnDate(ctx, "GHOST", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PricesOnDate: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points for missing series, want 0", len(points))
	}
}

func TestParquetStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewParquetStore(dir)
	ctx := context.Background()
	jan1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.CreateSeries(ctx, "BTC"); err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	if err := s.InsertPrices(ctx, "BTC", []domain.PricePoint{pt(t, jan1.UnixMilli(), "100.00")}); err != nil {
		t.Fatalf("InsertPrices: %v", err)
	}
	if err := s.SaveCatalog(ctx, []string{"BTC"}); err != nil {
		t.Fatalf("SaveCatalog: %v", err)
	}

	for _, path := range []string{
		filepath.Join(dir, "prices", "BTC.parquet"),
		filepath.Join(dir, "assets.parquet"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected file %s: %v", path, err)
		}
	}
}

func TestParquetStoreUnorderedTimestamps(t *testing.T) {
	// The file scan derives first/last from timestamps, not file order.
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()
	jan1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.CreateSeries(ctx, "OOO"); err != nil {
		t.Fatalf("CreateSeries: %v", err)
	}
	points := []domain.PricePoint{
		pt(t, jan1.Add(6*time.Hour).UnixMilli(), "120.00"),
		pt(t, jan1.UnixMilli(), "100.00"),
		pt(t, jan1.Add(12*time.Hour).UnixMilli(), "150.00"),
	}
	if err := s.InsertPrices(ctx, "OOO", points); err != nil {
		t.Fatalf("InsertPrices: %v", err)
	}

	st, err := s.PriceStats(ctx, "OOO")
	if err != nil {
		t.Fatalf("PriceStats: %v", err)
	}
	if !st.FirstPrice.Equal(dec(t, "100")) {
		t.Errorf("FirstPrice = %v, want 100", st.FirstPrice)
	}
	if !st.LastPrice.Equal(dec(t, "150")) {
		t.Errorf("LastPrice = %v, want 150", st.LastPrice)
	}
}
