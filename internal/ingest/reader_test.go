package ingest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writePriceFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestReadPriceFile(t *testing.T) {
	path := writePriceFile(t, "BTC.csv",
		"timestamp,symbol,price\n"+
			"1641009600000,BTC,46813.21\n"+
			"1641020400000,BTC,46979.61\n"+
			"1641031200000,BTC,47143.98\n")

	points, err := ReadPriceFile(path)
	if err != nil {
		t.Fatalf("ReadPriceFile: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}

	// File order is preserved.
	wantMillis := []int64{1641009600000, 1641020400000, 1641031200000}
	wantPrices := []string{"46813.21", "46979.61", "47143.98"}
	for i, p := range points {
		if got := p.Timestamp; !got.Equal(time.UnixMilli(wantMillis[i]).UTC()) {
			t.Errorf("point %d: timestamp = %v, want %v", i, got, time.UnixMilli(wantMillis[i]).UTC())
		}
		want, _ := decimal.NewFromString(wantPrices[i])
		if !p.Price.Equal(want) {
			t.Errorf("point %d: price = %v, want %s", i, p.Price, wantPrices[i])
		}
	}
}

func TestReadPriceFilePreservesPrecision(t *testing.T) {
	path := writePriceFile(t, "XRP.csv",
		"timestamp,symbol,price\n"+
			"1641009600000,XRP,0.8298000000000001\n")

	points, err := ReadPriceFile(path)
	if err != nil {
		t.Fatalf("ReadPriceFile: %v", err)
	}
	if got := points[0].Price.String(); got != "0.8298000000000001" {
		t.Errorf("price = %s, want exact 0.8298000000000001", got)
	}
}

func TestReadPriceFileHeaderOnly(t *testing.T) {
	path := writePriceFile(t, "DOGE.csv", "timestamp,symbol,price\n")

	points, err := ReadPriceFile(path)
	if err != nil {
		t.Fatalf("ReadPriceFile: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points, want 0", len(points))
	}
}

func TestReadPriceFileEmpty(t *testing.T) {
	path := writePriceFile(t, "LTC.csv", "")

	points, err := ReadPriceFile(path)
	if err != nil {
		t.Fatalf("ReadPriceFile: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points, want 0", len(points))
	}
}

func TestReadPriceFileMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantRow int
	}{
		{
			"wrong column count",
			"timestamp,symbol,price\n1641009600000,BTC\n",
			1,
		},
		{
			"bad timestamp",
			"timestamp,symbol,price\n1641009600000,BTC,100.0\nnot-a-number,BTC,101.0\n",
			2,
		},
		{
			"bad price",
			"timestamp,symbol,price\n1641009600000,BTC,hello\n",
			1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writePriceFile(t, "BAD.csv", tc.content)

			_, err := ReadPriceFile(path)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if pe.Row != tc.wantRow {
				t.Errorf("ParseError.Row = %d, want %d", pe.Row, tc.wantRow)
			}
			if pe.File != path {
				t.Errorf("ParseError.File = %q, want %q", pe.File, path)
			}
		})
	}
}

func TestReadPriceFileMissing(t *testing.T) {
	_, err := ReadPriceFile(filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	// A missing file is an I/O failure, not a parse failure.
	var pe *ParseError
	if errors.As(err, &pe) {
		t.Errorf("error = %v, want plain I/O error, got *ParseError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestAssetID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"prices/BTC.csv", "BTC"},
		{"/var/data/ETH_values.csv", "ETH_values"},
		{"DOGE.csv", "DOGE"},
	}
	for _, tc := range tests {
		if got := AssetID(tc.path); got != tc.want {
			t.Errorf("AssetID(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
