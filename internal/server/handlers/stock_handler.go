package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rafidhia/implantstock/internal/domain/models"
	"github.com/rafidhia/implantstock/internal/service/ledger"
)

// StockHandler exposes the mutation service and the ledger reads over HTTP.
type StockHandler struct {
	svc               *ledger.Service
	lowStockThreshold int
	logger            *zap.Logger
}

// NewStockHandler constructs the HTTP handler adapter.
func NewStockHandler(svc *ledger.Service, lowStockThreshold int, logger *zap.Logger) *StockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockHandler{svc: svc, lowStockThreshold: lowStockThreshold, logger: logger}
}

// List returns the live stock rows.
func (h *StockHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": h.svc.List()})
}

// Get returns a single row by stock number.
func (h *StockHandler) Get(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}

	item, err := h.svc.Get(id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": item})
}

// Create adds a new row. The total quantity is derived server-side and never
// accepted from the request.
func (h *StockHandler) Create(c *gin.Context) {
	var fields models.CreateFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.logger.Warn("invalid create payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	item, err := h.svc.Create(c.Request.Context(), fields, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": item})
}

// Update applies a partial field update to an existing row.
func (h *StockHandler) Update(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}

	var fields models.UpdateFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		h.logger.Warn("invalid update payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	item, err := h.svc.Update(c.Request.Context(), id, fields, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": item})
}

// Delete soft-deletes a row.
func (h *StockHandler) Delete(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, actor(c)); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Duplicate copies a row under a fresh stock number.
func (h *StockHandler) Duplicate(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}

	item, err := h.svc.Duplicate(c.Request.Context(), id, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": item})
}

type moveRequest struct {
	Type models.MoveDirection `json:"type" binding:"required"`
	Qty  int                  `json:"qty" binding:"required"`
}

// Move applies a stock move (in/out) to a row.
func (h *StockHandler) Move(c *gin.Context) {
	id, ok := h.rowID(c)
	if !ok {
		return
	}

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid move payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid request body"})
		return
	}

	item, err := h.svc.Move(c.Request.Context(), id, req.Type, req.Qty, actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": item})
}

// KPI returns the live ledger summary.
func (h *StockHandler) KPI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "kpi": h.svc.KPI(h.lowStockThreshold)})
}

func (h *StockHandler) rowID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid stock number"})
		return 0, false
	}
	return id, true
}

func (h *StockHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientStock):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	default:
		h.logger.Error("remote store call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "remote store unavailable"})
	}
}

func actor(c *gin.Context) string {
	return c.GetHeader("X-Actor")
}
