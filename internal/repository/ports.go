// Package repository declares the remote collaborator contracts the ledger
// depends on. Adapters live in subpackages; services only see these
// interfaces.
package repository

import (
	"context"

	"github.com/rafidhia/implantstock/internal/domain/models"
)

// RowService is the remote authoritative store for stock rows. All calls are
// single request/response round trips; there is no retry loop here.
type RowService interface {
	// Fetch returns every row the remote store knows about, including
	// soft-deleted ones.
	Fetch(ctx context.Context) ([]models.StockItem, error)

	// Create appends a new row. The remote side assigns the row number, so
	// callers must re-fetch to learn it.
	Create(ctx context.Context, item models.StockItem) error

	// Update replaces the row identified by id wholesale.
	Update(ctx context.Context, id int64, item models.StockItem) error

	// SoftDelete flags the row as deleted without removing it.
	SoftDelete(ctx context.Context, id int64) error
}

// AuditQuery narrows an audit log read.
type AuditQuery struct {
	RowID  int64
	Action string
}

// AuditLog is the append-only mutation log. Raw entries come back undeduped
// and unmerged; reconstruction is the history aggregator's job.
type AuditLog interface {
	Append(ctx context.Context, record models.HistoryRecord) error
	Query(ctx context.Context, filter AuditQuery) ([]models.RawHistoryEntry, error)
}
