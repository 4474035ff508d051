package ledger

import (
	"testing"

	"github.com/rafidhia/implantstock/internal/domain/models"
)

func TestStoreApply_RecomputesTotal(t *testing.T) {
	cases := []struct {
		name     string
		item     models.StockItem
		expected int
	}{
		{"supplied total ignored", models.StockItem{ID: 1, QtyOnHand: 10, QtyRefilled: 2, QtyUsed: 4, QtyTotal: 999}, 8},
		{"zero counters", models.StockItem{ID: 2, QtyTotal: 55}, 0},
		{"negative total permitted", models.StockItem{ID: 3, QtyOnHand: 1, QtyUsed: 5}, -4},
	}

	store := NewStore()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			applied := store.Apply(tc.item)
			if applied.QtyTotal != tc.expected {
				t.Errorf("expected total %d, got %d", tc.expected, applied.QtyTotal)
			}

			stored, ok := store.Get(tc.item.ID)
			if !ok {
				t.Fatal("row missing after apply")
			}
			if stored.QtyTotal != stored.ComputedTotal() {
				t.Errorf("invariant violated: total %d, computed %d", stored.QtyTotal, stored.ComputedTotal())
			}
		})
	}
}

func TestStoreList_ExcludesDeletedAndSorts(t *testing.T) {
	store := NewStore()
	store.Apply(models.StockItem{ID: 3, Reference: "C"})
	store.Apply(models.StockItem{ID: 1, Reference: "A"})
	store.Apply(models.StockItem{ID: 2, Reference: "B", Deleted: true})

	items := store.List()
	if len(items) != 2 {
		t.Fatalf("expected 2 live rows, got %d", len(items))
	}
	if items[0].ID != 1 || items[1].ID != 3 {
		t.Errorf("expected rows sorted by id, got %d, %d", items[0].ID, items[1].ID)
	}

	if _, ok := store.Get(2); !ok {
		t.Error("soft-deleted row must stay reachable through Get")
	}
}

func TestStoreSnapshotRestore(t *testing.T) {
	store := NewStore()
	store.Apply(models.StockItem{ID: 1, Reference: "IMP-001", QtyOnHand: 10})

	snap, ok := store.Snapshot(1)
	if !ok {
		t.Fatal("snapshot of existing row failed")
	}

	store.Apply(models.StockItem{ID: 1, Reference: "IMP-001", QtyOnHand: 3, QtyUsed: 7})
	store.Restore(snap)

	restored, _ := store.Get(1)
	if restored != snap {
		t.Errorf("restore mismatch: expected %+v, got %+v", snap, restored)
	}
}

func TestStoreReplace_RecomputesTotals(t *testing.T) {
	store := NewStore()
	store.Apply(models.StockItem{ID: 99})

	store.Replace([]models.StockItem{
		{ID: 1, QtyOnHand: 5, QtyRefilled: 1, QtyUsed: 2, QtyTotal: 123},
	})

	if _, ok := store.Get(99); ok {
		t.Error("replace must drop rows absent from the new set")
	}

	item, _ := store.Get(1)
	if item.QtyTotal != 4 {
		t.Errorf("replace must recompute totals, got %d", item.QtyTotal)
	}
}

func TestStoreKPI(t *testing.T) {
	store := NewStore()
	store.Apply(models.StockItem{ID: 1, QtyOnHand: 10})
	store.Apply(models.StockItem{ID: 2, QtyOnHand: 3})
	store.Apply(models.StockItem{ID: 3, QtyOnHand: 50, Deleted: true})

	kpi := store.KPI(5)
	if kpi.TotalItems != 2 {
		t.Errorf("expected 2 live items, got %d", kpi.TotalItems)
	}
	if kpi.LowStock != 1 {
		t.Errorf("expected 1 low-stock row, got %d", kpi.LowStock)
	}
	if kpi.StockSum != 13 {
		t.Errorf("expected stock sum 13, got %d", kpi.StockSum)
	}
}
