package stats

import (
	"context"
	"log/slog"
	"sync"

	"coinrank/internal/store"
)

// defaultMaxWorkers bounds the per-call worker pools of the calculator and
// the best-performer query.
const defaultMaxWorkers = 10

// Calculator fans out one miner per asset to pull aggregate stats from
// durable storage into the shared in-memory Store.
type Calculator struct {
	db         store.PriceStore
	mem        *Store
	maxWorkers int
	log        *slog.Logger
}

// NewCalculator creates a Calculator reading from db and writing to mem.
// maxWorkers <= 0 selects the default pool bound.
func NewCalculator(db store.PriceStore, mem *Store, maxWorkers int, log *slog.Logger) *Calculator {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &Calculator{
		db:         db,
		mem:        mem,
		maxWorkers: maxWorkers,
		log:        log.With("component", "stats-calculator"),
	}
}

// ComputeAndLoad mines aggregate stats for every given asset with
// min(assetCount, maxWorkers) workers and blocks until all of them finish.
// Assets with no stored data are skipped silently; a storage error aborts
// the run and is returned once every worker has signalled completion.
func (c *Calculator) ComputeAndLoad(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	idCh := make(chan string, len(ids))
	for _, id := range ids {
		idCh <- id
	}
	close(idCh)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	workers := min(len(ids), c.maxWorkers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				if ctx.Err() != nil {
					return
				}
				st, err := c.db.PriceStats(ctx, id)
				if err != nil {
					c.log.Error("mining stats failed", "asset", id, "error", err)
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				if st == nil {
					c.log.Debug("no stored prices", "asset", id)
					continue
				}
				c.mem.Add(id, st)
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
