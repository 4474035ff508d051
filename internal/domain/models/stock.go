package models

import "strconv"

// Canonical field keys as persisted in the stock sheet and in history change
// payloads.
const (
	FieldReference   = "reference"
	FieldDescription = "description"
	FieldBatch       = "batch"
	FieldQtyOnHand   = "quantityOnHand"
	FieldQtyRefilled = "quantityRefilled"
	FieldQtyUsed     = "quantityUsed"
	FieldQtyTotal    = "quantityTotal"
	FieldNote        = "note"
)

// FieldOrder fixes the column order used for diff output so change lists stay
// deterministic regardless of map iteration.
var FieldOrder = []string{
	FieldReference,
	FieldDescription,
	FieldBatch,
	FieldQtyOnHand,
	FieldQtyRefilled,
	FieldQtyUsed,
	FieldQtyTotal,
	FieldNote,
}

// StockItem is one implant stock ledger row. ID 0 marks a row that has not
// been assigned a number by the remote store yet.
type StockItem struct {
	ID          int64  `json:"id"`
	Reference   string `json:"reference"`
	Description string `json:"description"`
	Batch       string `json:"batch"`
	QtyOnHand   int    `json:"quantityOnHand"`
	QtyRefilled int    `json:"quantityRefilled"`
	QtyUsed     int    `json:"quantityUsed"`
	QtyTotal    int    `json:"quantityTotal"`
	Note        string `json:"note"`
	Deleted     bool   `json:"deleted,omitempty"`
}

// ComputedTotal derives the total quantity from the three counters. QtyTotal
// must always equal this value once a row passes through the ledger store.
func (s StockItem) ComputedTotal() int {
	return s.QtyOnHand + s.QtyRefilled - s.QtyUsed
}

// Snapshot flattens the row into field/value form for diffing and history
// payloads. The row id and the deleted flag are identity, not content, and
// are excluded.
func (s StockItem) Snapshot() Snapshot {
	return Snapshot{
		FieldReference:   s.Reference,
		FieldDescription: s.Description,
		FieldBatch:       s.Batch,
		FieldQtyOnHand:   strconv.Itoa(s.QtyOnHand),
		FieldQtyRefilled: strconv.Itoa(s.QtyRefilled),
		FieldQtyUsed:     strconv.Itoa(s.QtyUsed),
		FieldQtyTotal:    strconv.Itoa(s.QtyTotal),
		FieldNote:        s.Note,
	}
}

// Snapshot is a flat mapping of field name to scalar value coerced to string
// form. A missing key means the field was absent, which is distinct from a
// present-but-empty value.
type Snapshot map[string]string

// CreateFields carries the caller-settable fields for a new row. The total is
// always derived and never accepted as input.
type CreateFields struct {
	Reference   string `json:"reference"`
	Description string `json:"description"`
	Batch       string `json:"batch"`
	QtyOnHand   int    `json:"quantityOnHand"`
	QtyRefilled int    `json:"quantityRefilled"`
	QtyUsed     int    `json:"quantityUsed"`
	Note        string `json:"note"`
}

// UpdateFields carries a partial update; nil pointers leave the current value
// untouched.
type UpdateFields struct {
	Reference   *string `json:"reference"`
	Description *string `json:"description"`
	Batch       *string `json:"batch"`
	QtyOnHand   *int    `json:"quantityOnHand"`
	QtyRefilled *int    `json:"quantityRefilled"`
	QtyUsed     *int    `json:"quantityUsed"`
	Note        *string `json:"note"`
}

// MoveDirection selects which counter a stock move adjusts.
type MoveDirection string

const (
	MoveIn  MoveDirection = "in"
	MoveOut MoveDirection = "out"
)

// Valid reports whether the direction is one of the two known values.
func (d MoveDirection) Valid() bool {
	return d == MoveIn || d == MoveOut
}

// StockKPI summarizes the live ledger for dashboards.
type StockKPI struct {
	TotalItems int `json:"totalItems"`
	LowStock   int `json:"lowStock"`
	StockSum   int `json:"sumStock"`
}
