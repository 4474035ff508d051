package ledger

import (
	"sort"
	"sync"

	"github.com/rafidhia/implantstock/internal/domain/models"
)

// Store is the authoritative-on-client table of stock rows, keyed by stock
// number. Every value that becomes visible through Get or List has passed the
// total recomputation in Apply, so the arithmetic invariant
// QtyTotal == QtyOnHand + QtyRefilled - QtyUsed always holds for readers.
type Store struct {
	mu   sync.RWMutex
	rows map[int64]models.StockItem
}

// NewStore returns an empty ledger table.
func NewStore() *Store {
	return &Store{rows: make(map[int64]models.StockItem)}
}

// Get returns the row for the given stock number, including soft-deleted
// rows, so history references stay resolvable.
func (s *Store) Get(id int64) (models.StockItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.rows[id]
	return item, ok
}

// List returns the live rows sorted by stock number. Soft-deleted rows are
// excluded.
func (s *Store) List() []models.StockItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.StockItem, 0, len(s.rows))
	for _, item := range s.rows {
		if item.Deleted {
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// Apply replaces the row wholesale. The total is recomputed unconditionally
// from the three counters before the row is accepted; whatever the caller
// supplied for it is overwritten. Returns the stored value.
func (s *Store) Apply(item models.StockItem) models.StockItem {
	item.QtyTotal = item.ComputedTotal()

	s.mu.Lock()
	s.rows[item.ID] = item
	s.mu.Unlock()

	return item
}

// Snapshot captures the current row state for later diffing or rollback.
func (s *Store) Snapshot(id int64) (models.StockItem, bool) {
	return s.Get(id)
}

// Restore puts a previously captured snapshot back verbatim. Used exclusively
// by the mutation service to undo a failed optimistic write; the snapshot was
// taken from the store, so it already satisfies the invariant.
func (s *Store) Restore(item models.StockItem) {
	s.mu.Lock()
	s.rows[item.ID] = item
	s.mu.Unlock()
}

// Replace swaps the whole table for a freshly fetched row set. Totals are
// recomputed so a drifted remote cell cannot leak an inconsistent value.
func (s *Store) Replace(items []models.StockItem) {
	rows := make(map[int64]models.StockItem, len(items))
	for _, item := range items {
		item.QtyTotal = item.ComputedTotal()
		rows[item.ID] = item
	}

	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
}

// KPI aggregates the live rows: item count, rows at or below the low-stock
// threshold, and the summed total quantity.
func (s *Store) KPI(lowStockThreshold int) models.StockKPI {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var kpi models.StockKPI
	for _, item := range s.rows {
		if item.Deleted {
			continue
		}
		kpi.TotalItems++
		kpi.StockSum += item.QtyTotal
		if item.QtyTotal <= lowStockThreshold {
			kpi.LowStock++
		}
	}
	return kpi
}
