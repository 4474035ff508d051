package models

import "time"

// Action tags the kind of mutation an audit entry records.
type Action string

const (
	ActionCreate    Action = "CREATE"
	ActionUpdate    Action = "UPDATE"
	ActionDelete    Action = "DELETE"
	ActionDuplicate Action = "DUPLICATE"
	ActionMoveIn    Action = "MOVE_IN"
	ActionMoveOut   Action = "MOVE_OUT"
)

// Change is a single field-level difference between two snapshots.
type Change struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// HistoryRecord is one logical mutation event, either as emitted by the
// mutation service or as reconstructed from the raw log by the aggregator.
type HistoryRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	RowID     int64     `json:"rowId"`
	Actor     string    `json:"actor,omitempty"`
	Changes   []Change  `json:"changes"`
}

// RawHistoryEntry mirrors the stored log shape before merging. The remote log
// gives no guarantees: entries may repeat, one logical mutation may span
// several entries, and Changes is an opaque payload that is usually a JSON
// array but can be a JSON object or a bare string.
type RawHistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	RowID     int64  `json:"rowId"`
	Actor     string `json:"actor"`
	Changes   string `json:"changes"`
}

// KPISnapshot is the daily aggregated ledger summary persisted by the
// scheduler.
type KPISnapshot struct {
	Date       time.Time `bson:"date" json:"date"`
	TotalItems int       `bson:"total_items" json:"totalItems"`
	LowStock   int       `bson:"low_stock" json:"lowStock"`
	StockSum   int       `bson:"stock_sum" json:"sumStock"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}
