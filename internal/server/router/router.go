package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rafidhia/implantstock/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(stock *handlers.StockHandler, hist *handlers.HistoryHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")
	{
		api.GET("/stock", stock.List)
		api.GET("/stock/kpi", stock.KPI)
		api.GET("/stock/:id", stock.Get)
		api.POST("/stock", stock.Create)
		api.PUT("/stock/:id", stock.Update)
		api.DELETE("/stock/:id", stock.Delete)
		api.POST("/stock/:id/duplicate", stock.Duplicate)
		api.POST("/stock/:id/move", stock.Move)

		api.GET("/history", hist.List)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
