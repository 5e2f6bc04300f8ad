package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"coinrank/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ PriceStore = (*SQLiteStore)(nil)

const catalogTable = "assets"

// SQLiteStore implements PriceStore backed by a SQLite database with one
// price table per asset. Prices are stored as TEXT so the exact decimal
// string survives the round trip; extrema queries order by a numeric cast.
type SQLiteStore struct {
	db *sql.DB

	// serialize forces all writes through a coarse mutex. This is the
	// fallback mode for backends that disallow concurrent DDL; the default
	// leaves concurrency control to the engine.
	serialize bool
	mu        sync.Mutex
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore. When serializeWrites is true, table creation
// and inserts are funnelled through a single mutex.
func NewSQLiteStore(dbPath string, serializeWrites bool) (*SQLiteStore, error) {
	// The pragmas go into the DSN so every pooled connection gets them, not
	// just the one a plain Exec would hit. WAL mode plus a busy timeout let
	// concurrent per-asset writers back off instead of failing immediately.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", dbPath, err)
	}

	return &SQLiteStore{db: db, serialize: serializeWrites}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSeries creates the asset's price table if it does not exist.
func (s *SQLiteStore) CreateSeries(ctx context.Context, id string) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	table := seriesTable(id)
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			ts    INTEGER NOT NULL,
			price TEXT    NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q(ts)`, table+"_ts_idx", table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating series %s: %w", id, err)
		}
	}
	return nil
}

// InsertPrices replaces the asset's stored series with the given points.
func (s *SQLiteStore) InsertPrices(ctx context.Context, id string, points []domain.PricePoint) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	table := seriesTable(id)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert for %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, table)); err != nil {
		return fmt.Errorf("clearing series %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (ts, price) VALUES (?, ?)`, table))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", id, err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Timestamp.UnixMilli(), p.Price.String()); err != nil {
			return fmt.Errorf("inserting price for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// PriceStats queries the extrema and endpoints of the asset's series in a
// single statement. An empty series yields (nil, nil).
func (s *SQLiteStore) PriceStats(ctx context.Context, id string) (*domain.AggregateStats, error) {
	table := seriesTable(id)
	query := fmt.Sprintf(`SELECT
		(SELECT price FROM %[1]q ORDER BY CAST(price AS REAL) ASC  LIMIT 1),
		(SELECT price FROM %[1]q ORDER BY CAST(price AS REAL) DESC LIMIT 1),
		(SELECT price FROM %[1]q ORDER BY ts ASC,  id ASC  LIMIT 1),
		(SELECT price FROM %[1]q ORDER BY ts DESC, id DESC LIMIT 1)`, table)

	var minStr, maxStr, firstStr, lastStr sql.NullString
	err := s.db.QueryRowContext(ctx, query).Scan(&minStr, &maxStr, &firstStr, &lastStr)
	if err != nil {
		return nil, fmt.Errorf("querying stats for %s: %w", id, err)
	}
	if !minStr.Valid {
		// Empty series.
		return nil, nil
	}

	prices := make([]decimal.Decimal, 4)
	for i, raw := range []string{minStr.String, maxStr.String, firstStr.String, lastStr.String} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding stored price %q for %s: %w", raw, id, err)
		}
		prices[i] = d
	}
	return domain.NewAggregateStats(prices[0], prices[1], prices[2], prices[3]), nil
}

// PricesOnDate returns the asset's points on the given UTC calendar date in
// timestamp order.
func (s *SQLiteStore) PricesOnDate(ctx context.Context, id string, day time.Time) ([]domain.PricePoint, error) {
	table := seriesTable(id)
	start, end := dayBoundsMillis(day)

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT ts, price FROM %q WHERE ts >= ? AND ts < ? ORDER BY ts ASC, id ASC`, table),
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying prices of %s for date: %w", id, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var ts int64
		var raw string
		if err := rows.Scan(&ts, &raw); err != nil {
			return nil, fmt.Errorf("scanning price row for %s: %w", id, err)
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding stored price %q for %s: %w", raw, id, err)
		}
		points = append(points, domain.NewPricePoint(ts, price))
	}
	return points, rows.Err()
}

// SaveCatalog replaces the catalogue of known asset identifiers.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, ids []string) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`, catalogTable)); err != nil {
		return fmt.Errorf("creating catalogue table: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalogue update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, catalogTable)); err != nil {
		return fmt.Errorf("clearing catalogue: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (name) VALUES (?)`, catalogTable))
	if err != nil {
		return fmt.Errorf("preparing catalogue insert: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("inserting catalogue entry %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// seriesTable maps an asset identifier to its table name. Identifiers come
// from file names, so anything outside [A-Za-z0-9_] is replaced before the
// name is interpolated into DDL.
func seriesTable(id string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
	return "prices_" + strings.ToUpper(sanitized)
}
