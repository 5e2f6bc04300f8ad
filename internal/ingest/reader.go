// Package ingest loads historical price files into durable storage: a CSV
// reader for single files and a directory loader that fans parse-and-persist
// work out across a bounded worker pool.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"coinrank/internal/domain"
)

// priceFileColumns is the fixed arity of a price CSV row:
// epochMillis, asset label (ignored), decimal price.
const priceFileColumns = 3

// ParseError describes a malformed row in a price file. It is distinct from
// the I/O errors returned when a file cannot be opened or read.
type ParseError struct {
	File string
	Row  int // 1-based data row number, header excluded
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: row %d: %v", e.File, e.Row, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReadPriceFile parses one price CSV file into points in file order. The
// first line is a header and is skipped. Parsing is all or nothing: any
// malformed row fails the whole file with a *ParseError.
func ReadPriceFile(path string) ([]domain.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = priceFileColumns

	// Header line. A file with no rows at all parses as an empty series.
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &ParseError{File: path, Row: 0, Err: err}
	}

	var points []domain.PricePoint
	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, &ParseError{File: path, Row: row, Err: err}
		}

		millis, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, &ParseError{File: path, Row: row, Err: fmt.Errorf("timestamp %q: %w", record[0], err)}
		}
		price, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, &ParseError{File: path, Row: row, Err: fmt.Errorf("price %q: %w", record[2], err)}
		}
		points = append(points, domain.NewPricePoint(millis, price))
	}
}
