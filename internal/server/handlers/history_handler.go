package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rafidhia/implantstock/internal/service/history"
)

const dateLayout = "2006-01-02"

// HistoryHandler exposes the merged audit trail.
type HistoryHandler struct {
	agg    *history.Aggregator
	logger *zap.Logger
}

// NewHistoryHandler constructs the history read adapter.
func NewHistoryHandler(agg *history.Aggregator, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{agg: agg, logger: logger}
}

// List returns the merged history, optionally filtered by rowId, action and
// an inclusive from/to date range.
func (h *HistoryHandler) List(c *gin.Context) {
	var filter history.Filter

	if raw := c.Query("rowId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid rowId"})
			return
		}
		filter.RowID = id
	}

	filter.Action = c.Query("action")

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid from date"})
			return
		}
		filter.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid to date"})
			return
		}
		filter.To = to
	}

	records, err := h.agg.Load(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed loading history", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "audit log unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": records})
}
