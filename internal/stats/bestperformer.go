package stats

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"coinrank/internal/domain"
	"coinrank/internal/store"
)

// ErrNoDataForDate reports that no known asset has any stored price point on
// the requested date. It is a valid empty outcome, distinct from a date
// whose best normalized price happens to be zero.
var ErrNoDataForDate = errors.New("no price data stored for date")

// BestPerformerQuery computes, on demand, the asset with the highest
// normalized price over a single calendar date. Per-day granularity is not
// pre-aggregated, so each call re-queries durable storage.
type BestPerformerQuery struct {
	db         store.PriceStore
	mem        *Store
	maxWorkers int
	log        *slog.Logger
}

// NewBestPerformerQuery creates a query over the assets known to mem,
// reading points from db. maxWorkers <= 0 selects the default pool bound.
func NewBestPerformerQuery(db store.PriceStore, mem *Store, maxWorkers int, log *slog.Logger) *BestPerformerQuery {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &BestPerformerQuery{
		db:         db,
		mem:        mem,
		maxWorkers: maxWorkers,
		log:        log.With("component", "best-performer"),
	}
}

// Run fans out min(assetCount, maxWorkers) workers, one per known asset,
// each computing the asset's normalized price over just the given date's
// points, and blocks until all of them finish. The entry with the maximum
// normalized price wins; ties go to the lexicographically smaller asset
// identifier, so repeated calls over unchanged data agree.
//
// ErrNoDataForDate is returned when no asset has points on the date.
func (q *BestPerformerQuery) Run(ctx context.Context, day time.Time) (RankedAsset, error) {
	ids := q.mem.SupportedAssetIDs()
	if len(ids) == 0 {
		return RankedAsset{}, ErrNoDataForDate
	}

	idCh := make(chan string, len(ids))
	for _, id := range ids {
		idCh <- id
	}
	close(idCh)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make(map[string]decimal.Decimal, len(ids))
		firstErr error
	)

	workers := min(len(ids), q.maxWorkers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				if ctx.Err() != nil {
					return
				}
				norm, ok, err := q.normalizedOnDate(ctx, id, day)
				if err != nil {
					q.log.Error("per-date mining failed", "asset", id, "error", err)
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				if !ok {
					continue
				}
				mu.Lock()
				results[id] = norm
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return RankedAsset{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return RankedAsset{}, err
	}
	if len(results) == 0 {
		return RankedAsset{}, ErrNoDataForDate
	}

	var bestID string
	var bestNorm decimal.Decimal
	for id, norm := range results {
		if bestID == "" || norm.GreaterThan(bestNorm) || (norm.Equal(bestNorm) && id < bestID) {
			bestID, bestNorm = id, norm
		}
	}
	return RankedAsset{ID: bestID, NormalizedPrice: bestNorm}, nil
}

// normalizedOnDate computes the asset's normalized price over the date's
// stored points. ok is false when the asset has no points on that date.
func (q *BestPerformerQuery) normalizedOnDate(ctx context.Context, id string, day time.Time) (decimal.Decimal, bool, error) {
	points, err := q.db.PricesOnDate(ctx, id, day)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	if len(points) == 0 {
		return decimal.Decimal{}, false, nil
	}

	minPrice, maxPrice := points[0].Price, points[0].Price
	for _, p := range points[1:] {
		if p.Price.LessThan(minPrice) {
			minPrice = p.Price
		}
		if p.Price.GreaterThan(maxPrice) {
			maxPrice = p.Price
		}
	}

	norm, err := domain.NormalizedPrice(minPrice, maxPrice)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	return norm, true, nil
}
