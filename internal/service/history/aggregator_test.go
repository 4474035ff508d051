package history

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/rafidhia/implantstock/internal/domain/models"
)

func rawEntry(ts, action string, rowID int64, actor string, changes []models.Change) models.RawHistoryEntry {
	payload, _ := json.Marshal(changes)
	return models.RawHistoryEntry{
		Timestamp: ts,
		Action:    action,
		RowID:     rowID,
		Actor:     actor,
		Changes:   string(payload),
	}
}

func TestMerge_GroupsBySecondTruncatedKey(t *testing.T) {
	entries := []models.RawHistoryEntry{
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 3, "sari", []models.Change{{Field: "note", Before: "a", After: "b"}}),
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 3, "sari", []models.Change{{Field: "batch", Before: "B1", After: "B2"}}),
		rawEntry("2026-08-30T10:15:43Z", "UPDATE", 3, "sari", []models.Change{{Field: "note", Before: "b", After: "c"}}),
	}

	records := Merge(entries)
	if len(records) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(records))
	}

	// Descending order: the 10:15:43 entry first.
	if len(records[0].Changes) != 1 {
		t.Errorf("expected single change in newest record, got %d", len(records[0].Changes))
	}
	if len(records[1].Changes) != 2 {
		t.Fatalf("expected concatenated changes in older record, got %d", len(records[1].Changes))
	}
	if records[1].Changes[0].Field != "note" || records[1].Changes[1].Field != "batch" {
		t.Errorf("changes should concatenate in encounter order: %+v", records[1].Changes)
	}
}

func TestMerge_DifferentActorsStaySeparate(t *testing.T) {
	entries := []models.RawHistoryEntry{
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 3, "sari", nil),
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 3, "budi", nil),
	}

	if records := Merge(entries); len(records) != 2 {
		t.Errorf("entries by different actors must not fold together, got %d records", len(records))
	}
}

func TestMerge_KeepsDuplicateFieldEvents(t *testing.T) {
	entries := []models.RawHistoryEntry{
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 1, "", []models.Change{{Field: "note", Before: "a", After: "b"}}),
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 1, "", []models.Change{{Field: "note", Before: "a", After: "b"}}),
	}

	records := Merge(entries)
	if len(records) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(records))
	}
	if len(records[0].Changes) != 2 {
		t.Errorf("duplicate field events must be preserved, got %d changes", len(records[0].Changes))
	}
}

func TestMerge_Idempotent(t *testing.T) {
	entries := []models.RawHistoryEntry{
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 1, "sari", []models.Change{{Field: "note", Before: "a", After: "b"}}),
		rawEntry("2026-08-29T08:00:00Z", "CREATE", 2, "budi", []models.Change{{Field: "reference", After: "IMP-002"}}),
		rawEntry("2026-08-28T12:30:15Z", "MOVE_OUT", 1, "", []models.Change{{Field: "quantityUsed", Before: "0", After: "4"}}),
	}

	once := Merge(entries)

	asRaw := make([]models.RawHistoryEntry, 0, len(once))
	for _, record := range once {
		asRaw = append(asRaw, rawEntry(record.Timestamp.UTC().Format(time.RFC3339), string(record.Action), record.RowID, record.Actor, record.Changes))
	}
	twice := Merge(asRaw)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_UnparsableTimestampsGroupedAtEnd(t *testing.T) {
	entries := []models.RawHistoryEntry{
		{Timestamp: "garbage", Action: "UPDATE", RowID: 1, Changes: `[{"field":"note","before":"a","after":"b"}]`},
		rawEntry("2026-08-30T10:15:42Z", "UPDATE", 2, "", nil),
		{Timestamp: "garbage", Action: "UPDATE", RowID: 1, Changes: `[{"field":"batch","before":"x","after":"y"}]`},
	}

	records := Merge(entries)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RowID != 2 {
		t.Errorf("parseable record should sort first, got row %d", records[0].RowID)
	}

	last := records[1]
	if !last.Timestamp.IsZero() {
		t.Errorf("unparsed group should carry the zero time, got %v", last.Timestamp)
	}
	if len(last.Changes) != 2 {
		t.Errorf("both unparsed entries should fold into one record, got %d changes", len(last.Changes))
	}
}

func TestFilterByRow(t *testing.T) {
	records := []models.HistoryRecord{
		{RowID: 1, Action: models.ActionCreate},
		{RowID: 2, Action: models.ActionUpdate},
		{RowID: 1, Action: models.ActionMoveOut},
	}

	kept := FilterByRow(records, 1)
	if len(kept) != 2 {
		t.Fatalf("expected 2 records for row 1, got %d", len(kept))
	}
	if kept[0].Action != models.ActionCreate || kept[1].Action != models.ActionMoveOut {
		t.Errorf("order must be preserved: %+v", kept)
	}
}

func TestApply_DateRange(t *testing.T) {
	at := func(day int) time.Time {
		return time.Date(2026, 8, day, 14, 30, 0, 0, time.UTC)
	}
	records := []models.HistoryRecord{
		{RowID: 1, Timestamp: at(31)},
		{RowID: 1, Timestamp: at(30)},
		{RowID: 1, Timestamp: at(28)},
	}

	kept := Apply(records, Filter{
		From: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
	})

	if len(kept) != 1 {
		t.Fatalf("expected 1 record in range, got %d", len(kept))
	}
	// The To bound covers its whole day, so 2026-08-30T14:30 is included.
	if !kept[0].Timestamp.Equal(at(30)) {
		t.Errorf("unexpected record kept: %v", kept[0].Timestamp)
	}
}

func TestParseChanges_Array(t *testing.T) {
	changes := ParseChanges(`[{"field":"quantityUsed","before":0,"after":4},{"field":"note","before":null,"after":"refill due"}]`)
	want := []models.Change{
		{Field: "quantityUsed", Before: "0", After: "4"},
		{Field: "note", Before: "", After: "refill due"},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("expected %+v, got %+v", want, changes)
	}
}

func TestParseChanges_ArraySkipsEntriesWithoutField(t *testing.T) {
	changes := ParseChanges(`[{"before":"a","after":"b"},{"field":"note","after":"x"}]`)
	if len(changes) != 1 || changes[0].Field != "note" {
		t.Errorf("entries without a field key must be dropped, got %+v", changes)
	}
}

func TestParseChanges_Object(t *testing.T) {
	changes := ParseChanges(`{"note":"restocked","quantityOnHand":12}`)
	want := []models.Change{
		{Field: "note", After: "restocked"},
		{Field: "quantityOnHand", After: "12"},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("expected %+v, got %+v", want, changes)
	}
}

func TestParseChanges_Degraded(t *testing.T) {
	if changes := ParseChanges("quantityOnHand"); len(changes) != 1 ||
		changes[0].Field != "quantityOnHand" || changes[0].Before != "" || changes[0].After != "" {
		t.Errorf("bare string should degrade to a field-only change, got %+v", changes)
	}

	if changes := ParseChanges(""); changes != nil {
		t.Errorf("empty payload should yield nil, got %+v", changes)
	}

	if changes := ParseChanges(`[{"broken`); changes != nil {
		t.Errorf("unparsable array should yield nil, got %+v", changes)
	}
}
