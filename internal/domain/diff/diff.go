// Package diff computes field-level differences between flat row snapshots.
package diff

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/rafidhia/implantstock/internal/domain/models"
)

// ErrMalformedSnapshot indicates a snapshot payload that is not a JSON
// object.
var ErrMalformedSnapshot = errors.New("snapshot payload is not a JSON object")

// Compute returns the field-level changes between two snapshots. Output
// follows the caller-supplied field order; keys present in either snapshot
// but absent from the order are appended afterwards in sorted order so
// unrecognized fields are never silently dropped. A key missing from one side
// is treated as absent, which is not equal to a present empty value.
func Compute(before, after models.Snapshot, order []string) []models.Change {
	seen := make(map[string]bool, len(order))
	var changes []models.Change

	emit := func(key string) {
		if seen[key] {
			return
		}
		seen[key] = true

		bv, bok := before[key]
		av, aok := after[key]
		if bv == av && bok == aok {
			return
		}
		changes = append(changes, models.Change{Field: key, Before: bv, After: av})
	}

	for _, key := range order {
		emit(key)
	}

	var extras []string
	for key := range before {
		if !seen[key] {
			extras = append(extras, key)
		}
	}
	for key := range after {
		if !seen[key] && !contains(extras, key) {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		emit(key)
	}

	return changes
}

// SnapshotFromJSON decodes a persisted snapshot blob into flat field/value
// form, coercing scalars to strings. Non-object input fails with
// ErrMalformedSnapshot.
func SnapshotFromJSON(raw []byte) (models.Snapshot, error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	snap := make(models.Snapshot, len(decoded))
	for key, value := range decoded {
		snap[key] = CoerceScalar(value)
	}
	return snap, nil
}

// CoerceScalar renders a decoded JSON scalar the way the stock sheet stores
// it: integral numbers without a fraction, nil as empty.
func CoerceScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
