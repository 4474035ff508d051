// Package sheets implements the row persistence service directly on top of
// the Google Sheets API. The stock sheet has a header row followed by one row
// per stock number, so row N lives at sheet row N+1.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/rafidhia/implantstock/internal/config"
	"github.com/rafidhia/implantstock/internal/domain/models"
	"github.com/rafidhia/implantstock/internal/repository"
)

// StockRepository is a Google Sheets backed repository.RowService.
type StockRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	logger        *zap.Logger
}

var _ repository.RowService = (*StockRepository)(nil)

// NewStockRepository builds a Sheets-backed row service from configuration.
func NewStockRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*StockRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &StockRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.StockSheet,
		logger:        logger,
	}, nil
}

// Fetch reads the full stock range and decodes every parseable row. Rows with
// a missing or non-numeric id are skipped rather than failing the load.
func (r *StockRepository) Fetch(ctx context.Context) ([]models.StockItem, error) {
	readRange := fmt.Sprintf("%s!A2:J", r.sheetName)

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", readRange, err)
	}

	items := make([]models.StockItem, 0, len(resp.Values))
	for i, row := range resp.Values {
		item, err := decodeRow(row)
		if err != nil {
			r.logger.Debug("skip unparseable stock row", zap.Int("sheet_row", i+2), zap.Error(err))
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// Create appends the row with the next free stock number. The remote store is
// the id authority, so the number is derived from the sheet itself rather
// than from the caller.
func (r *StockRepository) Create(ctx context.Context, item models.StockItem) error {
	existing, err := r.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("determine next stock number: %w", err)
	}

	var nextID int64 = 1
	for _, row := range existing {
		if row.ID >= nextID {
			nextID = row.ID + 1
		}
	}
	item.ID = nextID

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{encodeRow(item)}}
	appendRange := fmt.Sprintf("%s!A:J", r.sheetName)

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, appendRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append stock row: %w", err)
	}

	r.logger.Debug("stock row appended", zap.Int64("id", item.ID))
	return nil
}

// Update rewrites the whole row for the given stock number in place.
func (r *StockRepository) Update(ctx context.Context, id int64, item models.StockItem) error {
	if id <= 0 {
		return fmt.Errorf("invalid stock number %d", id)
	}

	item.ID = id
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{encodeRow(item)}}
	writeRange := fmt.Sprintf("%s!A%d:J%d", r.sheetName, id+1, id+1)

	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, writeRange, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("update stock row %d: %w", id, err)
	}

	return nil
}

// SoftDelete writes the deleted flag cell; the row itself stays so history
// references remain resolvable.
func (r *StockRepository) SoftDelete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid stock number %d", id)
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{{"TRUE"}}}
	writeRange := fmt.Sprintf("%s!J%d", r.sheetName, id+1)

	call := r.service.Spreadsheets.Values.Update(r.spreadsheetID, writeRange, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("soft delete stock row %d: %w", id, err)
	}

	return nil
}

func encodeRow(item models.StockItem) []interface{} {
	deleted := ""
	if item.Deleted {
		deleted = "TRUE"
	}
	return []interface{}{
		item.ID,
		item.Reference,
		item.Description,
		item.Batch,
		item.QtyOnHand,
		item.QtyRefilled,
		item.QtyUsed,
		item.QtyTotal,
		item.Note,
		deleted,
	}
}

func decodeRow(row []interface{}) (models.StockItem, error) {
	if len(row) == 0 {
		return models.StockItem{}, fmt.Errorf("empty row")
	}

	id, err := cellInt64(row, 0)
	if err != nil || id <= 0 {
		return models.StockItem{}, fmt.Errorf("invalid stock number: %v", cell(row, 0))
	}

	item := models.StockItem{
		ID:          id,
		Reference:   cell(row, 1),
		Description: cell(row, 2),
		Batch:       cell(row, 3),
		Note:        cell(row, 8),
	}
	item.QtyOnHand = cellInt(row, 4)
	item.QtyRefilled = cellInt(row, 5)
	item.QtyUsed = cellInt(row, 6)
	item.QtyTotal = cellInt(row, 7)
	item.Deleted = strings.EqualFold(cell(row, 9), "TRUE")

	return item, nil
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func cellInt(row []interface{}, idx int) int {
	v, err := strconv.Atoi(cell(row, idx))
	if err != nil {
		return 0
	}
	return v
}

func cellInt64(row []interface{}, idx int) (int64, error) {
	return strconv.ParseInt(cell(row, idx), 10, 64)
}
