package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coinrank/internal/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func points(t *testing.T, baseMillis int64, prices ...string) []domain.PricePoint {
	t.Helper()
	out := make([]domain.PricePoint, 0, len(prices))
	for i, p := range prices {
		out = append(out, domain.NewPricePoint(baseMillis+int64(i)*3_600_000, dec(t, p)))
	}
	return out
}

func memWithAssets(t *testing.T, ids ...string) *Store {
	t.Helper()
	mem := NewStore()
	for _, id := range ids {
		mem.Add(id, mkStats(t, "1", "2"))
	}
	return mem
}

func TestBestPerformer(t *testing.T) {
	date := day(t, "2022-01-01")
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	db := &fakeStore{byDate: map[string][]domain.PricePoint{
		"BTC|2022-01-01": points(t, base, "100.00", "120.00", "150.00"), // norm 0.5
		"ETH|2022-01-01": points(t, base, "8.00", "10.00"),              // norm 0.25
		"XRP|2022-01-01": points(t, base, "1.00", "3.00"),               // norm 2
	}}
	q := NewBestPerformerQuery(db, memWithAssets(t, "BTC", "ETH", "XRP"), 4, testLogger())

	best, err := q.Run(context.Background(), date)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.ID != "XRP" {
		t.Errorf("best.ID = %q, want XRP", best.ID)
	}
	if !best.NormalizedPrice.Equal(dec(t, "2")) {
		t.Errorf("best.NormalizedPrice = %v, want 2", best.NormalizedPrice)
	}
}

func TestBestPerformerSkipsAssetsWithoutData(t *testing.T) {
	date := day(t, "2022-01-01")
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	// ETH is a known asset but has nothing on the date.
	db := &fakeStore{byDate: map[string][]domain.PricePoint{
		"BTC|2022-01-01": points(t, base, "100.00", "150.00"),
	}}
	q := NewBestPerformerQuery(db, memWithAssets(t, "BTC", "ETH"), 4, testLogger())

	best, err := q.Run(context.Background(), date)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.ID != "BTC" {
		t.Errorf("best.ID = %q, want BTC", best.ID)
	}
}

func TestBestPerformerNoData(t *testing.T) {
	db := &fakeStore{}
	q := NewBestPerformerQuery(db, memWithAssets(t, "BTC", "ETH"), 4, testLogger())

	if _, err := q.Run(context.Background(), day(t, "1999-01-01")); !errors.Is(err, ErrNoDataForDate) {
		t.Fatalf("error = %v, want ErrNoDataForDate", err)
	}

	// No known assets at all is the same empty outcome.
	q = NewBestPerformerQuery(db, NewStore(), 4, testLogger())
	if _, err := q.Run(context.Background(), day(t, "1999-01-01")); !errors.Is(err, ErrNoDataForDate) {
		t.Fatalf("error = %v, want ErrNoDataForDate", err)
	}
}

func TestBestPerformerTieBreak(t *testing.T) {
	date := day(t, "2022-01-01")
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	// Identical normalized price: the smaller identifier wins.
	db := &fakeStore{byDate: map[string][]domain.PricePoint{
		"BBB|2022-01-01": points(t, base, "10.00", "15.00"),
		"AAA|2022-01-01": points(t, base, "100.00", "150.00"),
	}}
	q := NewBestPerformerQuery(db, memWithAssets(t, "AAA", "BBB"), 4, testLogger())

	best, err := q.Run(context.Background(), date)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if best.ID != "AAA" {
		t.Errorf("best.ID = %q, want AAA (tie-break)", best.ID)
	}
}

func TestBestPerformerZeroMinOnDate(t *testing.T) {
	date := day(t, "2022-01-01")
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	db := &fakeStore{byDate: map[string][]domain.PricePoint{
		"ZRO|2022-01-01": points(t, base, "0", "10.00"),
	}}
	q := NewBestPerformerQuery(db, memWithAssets(t, "ZRO"), 4, testLogger())

	if _, err := q.Run(context.Background(), date); !errors.Is(err, domain.ErrZeroMinPrice) {
		t.Fatalf("error = %v, want ErrZeroMinPrice", err)
	}
}

func TestBestPerformerCancelledContext(t *testing.T) {
	date := day(t, "2022-01-01")
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	db := &fakeStore{byDate: map[string][]domain.PricePoint{
		"BTC|2022-01-01": points(t, base, "100.00", "150.00"),
	}}
	q := NewBestPerformerQuery(db, memWithAssets(t, "BTC"), 4, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancellation wins over the empty-result sentinel.
	if _, err := q.Run(ctx, date); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestBestPerformerStorageError(t *testing.T) {
	wantErr := errors.New("storage unavailable")
	db := &fakeStore{dateErr: wantErr}
	q := NewBestPerformerQuery(db, memWithAssets(t, "BTC"), 4, testLogger())

	if _, err := q.Run(context.Background(), day(t, "2022-01-01")); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestBestPerformerSingleAsset(t *testing.T) {
	date := day(t, "2022-01-01")
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	db := &fakeStore{byDate: map[string][]domain.PricePoint{
		"BTC|2022-01-01": points(t, base, "100.00"),
	}}
	q := NewBestPerformerQuery(db, memWithAssets(t, "BTC"), 4, testLogger())

	best, err := q.Run(context.Background(), date)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A single point gives min == max: normalized price 0.
	if !best.NormalizedPrice.Equal(decimal.Zero) {
		t.Errorf("best.NormalizedPrice = %v, want 0", best.NormalizedPrice)
	}
}
