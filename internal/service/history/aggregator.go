// Package history reconstructs a coherent audit trail from the flat,
// possibly duplicated remote log.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rafidhia/implantstock/internal/domain/diff"
	"github.com/rafidhia/implantstock/internal/domain/models"
	"github.com/rafidhia/implantstock/internal/repository"
)

// unparsedKey groups entries whose timestamp cannot be read, so one bad
// record never blocks the read path.
const unparsedKey = "unparsed"

// timestampLayouts lists the formats the log has been observed to contain.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Aggregator is the read-side counterpart of the mutation service. It only
// reads from the audit log and never touches the ledger store.
type Aggregator struct {
	log    repository.AuditLog
	logger *zap.Logger
}

// NewAggregator wires an aggregator over the given audit log.
func NewAggregator(log repository.AuditLog, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{log: log, logger: logger}
}

// Filter narrows the aggregated history view.
type Filter struct {
	RowID  int64
	Action string
	From   time.Time
	To     time.Time
}

// Load queries the raw log, merges it and applies the filter.
func (a *Aggregator) Load(ctx context.Context, filter Filter) ([]models.HistoryRecord, error) {
	raw, err := a.log.Query(ctx, repository.AuditQuery{RowID: filter.RowID, Action: filter.Action})
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}

	a.logger.Debug("raw history loaded", zap.Int("entries", len(raw)))
	return Apply(Merge(raw), filter), nil
}

// Merge folds raw entries that share a dedup key into one record. The key is
// the action, the row, the timestamp truncated to whole seconds, and the
// actor; a retried write or a per-field entry burst all land on the same key.
// Change lists within a group concatenate in encounter order; duplicate field
// entries are kept, not collapsed, since display code may rely on seeing
// every raw field event. Output is sorted descending by timestamp, with
// unparsable timestamps at the end.
func Merge(entries []models.RawHistoryEntry) []models.HistoryRecord {
	grouped := make(map[string]*models.HistoryRecord, len(entries))
	var order []string

	for _, entry := range entries {
		ts, tsKey := parseTimestamp(entry.Timestamp)
		key := strings.Join([]string{entry.Action, fmt.Sprint(entry.RowID), tsKey, entry.Actor}, "|")

		record, ok := grouped[key]
		if !ok {
			record = &models.HistoryRecord{
				Timestamp: ts,
				Action:    models.Action(entry.Action),
				RowID:     entry.RowID,
				Actor:     entry.Actor,
			}
			grouped[key] = record
			order = append(order, key)
		}

		record.Changes = append(record.Changes, ParseChanges(entry.Changes)...)
	}

	records := make([]models.HistoryRecord, 0, len(order))
	for _, key := range order {
		records = append(records, *grouped[key])
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records
}

// FilterByRow keeps only records for the given row, preserving order.
func FilterByRow(records []models.HistoryRecord, rowID int64) []models.HistoryRecord {
	kept := make([]models.HistoryRecord, 0, len(records))
	for _, record := range records {
		if record.RowID == rowID {
			kept = append(kept, record)
		}
	}
	return kept
}

// Apply narrows records by row, action and inclusive date range. The To bound
// extends to the end of its day so a date-only filter behaves as users
// expect.
func Apply(records []models.HistoryRecord, filter Filter) []models.HistoryRecord {
	if filter.RowID != 0 {
		records = FilterByRow(records, filter.RowID)
	}

	kept := make([]models.HistoryRecord, 0, len(records))
	for _, record := range records {
		if filter.Action != "" && string(record.Action) != filter.Action {
			continue
		}
		if !filter.From.IsZero() && record.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() {
			end := time.Date(filter.To.Year(), filter.To.Month(), filter.To.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), filter.To.Location())
			if record.Timestamp.After(end) {
				continue
			}
		}
		kept = append(kept, record)
	}
	return kept
}

// ParseChanges decodes a raw change payload defensively. A JSON array of
// field/before/after objects is taken as-is with scalars coerced to strings;
// a JSON object becomes one change per key with an absent before; anything
// else degrades to a single change whose field is the raw string. This ladder
// never fails: an unparsable payload yields the least-informative
// representation instead of an error.
func ParseChanges(raw string) []models.Change {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var arr []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
			return nil
		}

		changes := make([]models.Change, 0, len(arr))
		for _, entry := range arr {
			field := diff.CoerceScalar(entry["field"])
			if field == "" {
				continue
			}
			changes = append(changes, models.Change{
				Field:  field,
				Before: diff.CoerceScalar(entry["before"]),
				After:  diff.CoerceScalar(entry["after"]),
			})
		}
		return changes
	}

	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil
		}

		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		changes := make([]models.Change, 0, len(keys))
		for _, key := range keys {
			changes = append(changes, models.Change{Field: key, After: diff.CoerceScalar(obj[key])})
		}
		return changes
	}

	return []models.Change{{Field: raw}}
}

func parseTimestamp(value string) (time.Time, string) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, ts.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05")
		}
	}
	return time.Time{}, unparsedKey
}
