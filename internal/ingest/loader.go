package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"coinrank/internal/store"
)

// defaultMaxWorkers bounds the per-load worker pool.
const defaultMaxWorkers = 10

// priceFileExt is the recognised price-file extension.
const priceFileExt = ".csv"

// Loader discovers price CSV files in a directory and fans out a bounded
// pool of workers that parse and persist them, one asset per file.
type Loader struct {
	db         store.PriceStore
	maxWorkers int
	log        *slog.Logger
}

// NewLoader creates a Loader writing to the given store. maxWorkers <= 0
// selects the default pool bound.
func NewLoader(db store.PriceStore, maxWorkers int, log *slog.Logger) *Loader {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &Loader{
		db:         db,
		maxWorkers: maxWorkers,
		log:        log.With("component", "loader"),
	}
}

// LoadAll loads every price file in dir with min(fileCount, maxWorkers)
// workers, blocks until all of them finish, and returns the discovered asset
// identifiers in ascending order. A worker failure aborts the load: the
// first error is returned once every worker has signalled completion.
// An empty directory is a valid empty outcome, not an error.
//
// On success the discovered identifiers are also recorded as the storage
// catalogue.
func (l *Loader) LoadAll(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing price files in %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), priceFileExt) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, nil
	}

	fileCh := make(chan string, len(files))
	for _, f := range files {
		fileCh <- f
	}
	close(fileCh)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	workers := min(len(files), l.maxWorkers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileCh {
				if ctx.Err() != nil {
					return
				}
				if err := l.loadFile(ctx, path); err != nil {
					l.log.Error("price file load failed", "file", filepath.Base(path), "error", err)
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, AssetID(f))
	}
	sort.Strings(ids)

	if err := l.db.SaveCatalog(ctx, ids); err != nil {
		return nil, fmt.Errorf("saving asset catalogue: %w", err)
	}
	return ids, nil
}

// loadFile creates the asset's storage unit, parses its file, and persists
// the parsed points.
func (l *Loader) loadFile(ctx context.Context, path string) error {
	id := AssetID(path)
	if err := l.db.CreateSeries(ctx, id); err != nil {
		return fmt.Errorf("creating series for %s: %w", id, err)
	}

	points, err := ReadPriceFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	if err := l.db.InsertPrices(ctx, id, points); err != nil {
		return fmt.Errorf("persisting %s: %w", id, err)
	}
	l.log.Info("price file loaded", "asset", id, "points", len(points))
	return nil
}

// AssetID derives the asset identifier from a price file's base name: the
// stem without the extension.
func AssetID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
