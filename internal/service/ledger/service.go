// Package ledger holds the client-side stock table and the mutation service
// that is its only writer.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rafidhia/implantstock/internal/domain/diff"
	"github.com/rafidhia/implantstock/internal/domain/models"
	"github.com/rafidhia/implantstock/internal/repository"
)

// ErrValidation indicates malformed or out-of-range input. Nothing is written
// locally or remotely.
var ErrValidation = errors.New("invalid stock input")

// ErrInsufficientStock indicates a MOVE_OUT exceeding the on-hand quantity.
var ErrInsufficientStock = errors.New("insufficient stock on hand")

// ErrNotFound indicates the operation targets an unknown or unassigned stock
// number.
var ErrNotFound = errors.New("stock row not found")

// Service orchestrates every row-affecting intent: validation, optimistic
// application to the store, the single remote round trip, rollback on
// failure, and audit emission on commit.
type Service struct {
	rows   repository.RowService
	audit  repository.AuditLog
	store  *Store
	logger *zap.Logger
	now    func() time.Time

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex
}

// NewService wires the mutation service with its remote collaborators.
func NewService(rows repository.RowService, audit repository.AuditLog, store *Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		rows:   rows,
		audit:  audit,
		store:  store,
		logger: logger,
		now:    time.Now,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// lockRow serializes mutations against a single stock number so a second
// mutation cannot capture its rollback snapshot from an unconfirmed
// optimistic state. Mutations on distinct rows proceed independently.
func (s *Service) lockRow(id int64) func() {
	s.lockMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.lockMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Reload replaces the local table with the remote row set.
func (s *Service) Reload(ctx context.Context) error {
	items, err := s.rows.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("reload stock rows: %w", err)
	}

	s.store.Replace(items)
	s.logger.Debug("ledger reloaded", zap.Int("rows", len(items)))
	return nil
}

// List returns the live rows.
func (s *Service) List() []models.StockItem {
	return s.store.List()
}

// Get returns one row, soft-deleted or not.
func (s *Service) Get(id int64) (models.StockItem, error) {
	if id == 0 {
		return models.StockItem{}, ErrNotFound
	}
	item, ok := s.store.Get(id)
	if !ok {
		return models.StockItem{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return item, nil
}

// KPI aggregates the live ledger.
func (s *Service) KPI(lowStockThreshold int) models.StockKPI {
	return s.store.KPI(lowStockThreshold)
}

// Create validates the fields, issues the remote create and reloads the full
// row set, since only the remote store knows the assigned stock number. There
// is no optimistic local write on this path.
func (s *Service) Create(ctx context.Context, fields models.CreateFields, actor string) (models.StockItem, error) {
	if err := validateRequired(fields.Reference, fields.Description); err != nil {
		return models.StockItem{}, err
	}

	item := models.StockItem{
		Reference:   fields.Reference,
		Description: fields.Description,
		Batch:       fields.Batch,
		QtyOnHand:   fields.QtyOnHand,
		QtyRefilled: fields.QtyRefilled,
		QtyUsed:     fields.QtyUsed,
		Note:        fields.Note,
	}
	item.QtyTotal = item.ComputedTotal()

	if err := s.rows.Create(ctx, item); err != nil {
		return models.StockItem{}, fmt.Errorf("create stock row: %w", err)
	}
	if err := s.Reload(ctx); err != nil {
		return models.StockItem{}, err
	}

	created, ok := s.newestRow()
	if !ok {
		s.logger.Warn("created row not present after reload")
		return item, nil
	}

	s.appendAudit(ctx, models.ActionCreate, created.ID, actor,
		diff.Compute(models.Snapshot{}, created.Snapshot(), models.FieldOrder))

	return created, nil
}

// Update merges the supplied fields over the current row, applies the result
// optimistically and confirms it remotely. On remote failure the pre-mutation
// snapshot is restored and the error surfaces to the caller.
func (s *Service) Update(ctx context.Context, id int64, fields models.UpdateFields, actor string) (models.StockItem, error) {
	unlock := s.lockRow(id)
	defer unlock()

	prev, err := s.snapshotFor(id)
	if err != nil {
		return models.StockItem{}, err
	}

	next := mergeFields(prev, fields)
	if err := validateRequired(next.Reference, next.Description); err != nil {
		return models.StockItem{}, err
	}

	applied := s.store.Apply(next)

	if err := s.rows.Update(ctx, id, applied); err != nil {
		s.store.Restore(prev)
		return models.StockItem{}, fmt.Errorf("update stock row %d: %w", id, err)
	}

	if changes := diff.Compute(prev.Snapshot(), applied.Snapshot(), models.FieldOrder); len(changes) > 0 {
		s.appendAudit(ctx, models.ActionUpdate, id, actor, changes)
	}

	return applied, nil
}

// Delete soft-deletes the row: the deleted flag flips, the row itself stays
// so history references remain valid. Same optimistic discipline as Update.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	unlock := s.lockRow(id)
	defer unlock()

	prev, err := s.snapshotFor(id)
	if err != nil {
		return err
	}

	marked := prev
	marked.Deleted = true
	s.store.Apply(marked)

	if err := s.rows.SoftDelete(ctx, id); err != nil {
		s.store.Restore(prev)
		return fmt.Errorf("delete stock row %d: %w", id, err)
	}

	s.appendAudit(ctx, models.ActionDelete, id, actor,
		diff.Compute(prev.Snapshot(), models.Snapshot{}, models.FieldOrder))

	return nil
}

// Duplicate creates a remote copy of the source row. Field values carry over
// verbatim, including the used counter, and the remote store assigns a fresh
// stock number, so the path mirrors Create: remote call first, then reload.
func (s *Service) Duplicate(ctx context.Context, id int64, actor string) (models.StockItem, error) {
	source, err := s.Get(id)
	if err != nil {
		return models.StockItem{}, err
	}

	copyRow := source
	copyRow.ID = 0
	copyRow.Deleted = false

	if err := s.rows.Create(ctx, copyRow); err != nil {
		return models.StockItem{}, fmt.Errorf("duplicate stock row %d: %w", id, err)
	}
	if err := s.Reload(ctx); err != nil {
		return models.StockItem{}, err
	}

	created, ok := s.newestRow()
	if !ok {
		s.logger.Warn("duplicated row not present after reload", zap.Int64("source_id", id))
		return copyRow, nil
	}

	s.appendAudit(ctx, models.ActionDuplicate, created.ID, actor,
		diff.Compute(models.Snapshot{}, created.Snapshot(), models.FieldOrder))

	return created, nil
}

// Move adjusts the refill counter (in) or the used counter (out) by qty and
// lets the store recompute the total. An out move may not exceed the on-hand
// quantity. Optimistic with rollback, like Update.
func (s *Service) Move(ctx context.Context, id int64, direction models.MoveDirection, qty int, actor string) (models.StockItem, error) {
	if qty <= 0 {
		return models.StockItem{}, fmt.Errorf("%w: move quantity must be positive", ErrValidation)
	}
	if !direction.Valid() {
		return models.StockItem{}, fmt.Errorf("%w: unknown move direction %q", ErrValidation, direction)
	}

	unlock := s.lockRow(id)
	defer unlock()

	prev, err := s.snapshotFor(id)
	if err != nil {
		return models.StockItem{}, err
	}

	next := prev
	action := models.ActionMoveIn
	switch direction {
	case models.MoveIn:
		next.QtyRefilled += qty
	case models.MoveOut:
		if qty > prev.QtyOnHand {
			return models.StockItem{}, fmt.Errorf("%w: %d exceeds on-hand %d", ErrInsufficientStock, qty, prev.QtyOnHand)
		}
		next.QtyUsed += qty
		action = models.ActionMoveOut
	}

	applied := s.store.Apply(next)

	if err := s.rows.Update(ctx, id, applied); err != nil {
		s.store.Restore(prev)
		return models.StockItem{}, fmt.Errorf("move stock row %d: %w", id, err)
	}

	s.appendAudit(ctx, action, id, actor,
		diff.Compute(prev.Snapshot(), applied.Snapshot(), models.FieldOrder))

	return applied, nil
}

// snapshotFor loads the pre-mutation state, rejecting the unassigned
// placeholder number and unknown rows.
func (s *Service) snapshotFor(id int64) (models.StockItem, error) {
	if id == 0 {
		return models.StockItem{}, fmt.Errorf("%w: stock number not assigned yet", ErrNotFound)
	}
	prev, ok := s.store.Snapshot(id)
	if !ok {
		return models.StockItem{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return prev, nil
}

// appendAudit records the committed mutation. A failed append never rolls the
// row mutation back; the ledger is kept consistent at the price of a gap in
// the log, which is logged for the operator instead.
func (s *Service) appendAudit(ctx context.Context, action models.Action, rowID int64, actor string, changes []models.Change) {
	record := models.HistoryRecord{
		Timestamp: s.now().UTC(),
		Action:    action,
		RowID:     rowID,
		Actor:     actor,
		Changes:   changes,
	}

	if err := s.audit.Append(ctx, record); err != nil {
		s.logger.Error("audit append failed",
			zap.String("action", string(action)),
			zap.Int64("row_id", rowID),
			zap.Error(err))
	}
}

// newestRow finds the highest stock number in the store. The remote store
// assigns numbers by appending, so after a reload that follows a create this
// is the created row.
func (s *Service) newestRow() (models.StockItem, bool) {
	var newest models.StockItem
	var found bool
	for _, item := range s.store.List() {
		if item.ID > newest.ID {
			newest = item
			found = true
		}
	}
	return newest, found
}

func mergeFields(base models.StockItem, fields models.UpdateFields) models.StockItem {
	next := base
	if fields.Reference != nil {
		next.Reference = *fields.Reference
	}
	if fields.Description != nil {
		next.Description = *fields.Description
	}
	if fields.Batch != nil {
		next.Batch = *fields.Batch
	}
	if fields.QtyOnHand != nil {
		next.QtyOnHand = *fields.QtyOnHand
	}
	if fields.QtyRefilled != nil {
		next.QtyRefilled = *fields.QtyRefilled
	}
	if fields.QtyUsed != nil {
		next.QtyUsed = *fields.QtyUsed
	}
	if fields.Note != nil {
		next.Note = *fields.Note
	}
	return next
}

func validateRequired(reference, description string) error {
	if strings.TrimSpace(reference) == "" {
		return fmt.Errorf("%w: reference must not be blank", ErrValidation)
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: description must not be blank", ErrValidation)
	}
	return nil
}
