// Package stats maintains the in-memory aggregate statistics of every known
// asset: a thread-safe store, a fan-out calculator that fills it from
// durable storage, and an on-demand per-date best-performer query.
package stats

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"coinrank/internal/domain"
)

// SortOrder selects the direction of a sorted view.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// Entry pairs an asset identifier with its aggregate stats.
type Entry struct {
	ID    string
	Stats *domain.AggregateStats
}

// RankedAsset pairs an asset identifier with a normalized price.
type RankedAsset struct {
	ID              string          `json:"id"`
	NormalizedPrice decimal.Decimal `json:"normalizedPrice"`
}

// Store is a shared, concurrently mutable mapping from asset identifier to
// aggregate stats. It is constructed once at startup and passed by reference
// to every reader and writer; callers need no external locking.
type Store struct {
	mu    sync.RWMutex
	stats map[string]*domain.AggregateStats
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{stats: make(map[string]*domain.AggregateStats)}
}

// Add inserts or overwrites the stats for an asset. Concurrent calls with
// distinct keys are safe; same-key races resolve last-writer-wins.
func (s *Store) Add(id string, st *domain.AggregateStats) {
	s.mu.Lock()
	s.stats[id] = st
	s.mu.Unlock()
}

// Get returns the stats for an asset, or false when the asset is unknown.
func (s *Store) Get(id string) (*domain.AggregateStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[id]
	return st, ok
}

// Contains reports whether the asset has stats in the store.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.stats[id]
	return ok
}

// Snapshot returns a point-in-time copy of all entries in ascending
// lexicographic order of asset identifier.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.stats))
	for id, st := range s.stats {
		entries = append(entries, Entry{ID: id, Stats: st})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// SortedByNormalizedPrice returns the assets ordered by normalized price in
// the requested direction. Ties order by ascending identifier, so one
// snapshot always ranks consistently. Assets whose normalized price is
// undefined (zero minimum) are left out of the view.
func (s *Store) SortedByNormalizedPrice(order SortOrder) []RankedAsset {
	s.mu.RLock()
	ranked := make([]RankedAsset, 0, len(s.stats))
	for id, st := range s.stats {
		norm, err := st.NormalizedPrice()
		if err != nil {
			continue
		}
		ranked = append(ranked, RankedAsset{ID: id, NormalizedPrice: norm})
	}
	s.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		cmp := ranked[i].NormalizedPrice.Cmp(ranked[j].NormalizedPrice)
		if cmp == 0 {
			return ranked[i].ID < ranked[j].ID
		}
		if order == Descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return ranked
}

// SupportedAssetIDs returns the current key set in ascending order.
func (s *Store) SupportedAssetIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.stats))
	for id := range s.stats {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
