package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/rafidhia/implantstock/internal/config"
	"github.com/rafidhia/implantstock/internal/repository"
	"github.com/rafidhia/implantstock/internal/repository/gas"
	"github.com/rafidhia/implantstock/internal/repository/mongodb"
	"github.com/rafidhia/implantstock/internal/repository/sheets"
	"github.com/rafidhia/implantstock/internal/scheduler"
	"github.com/rafidhia/implantstock/internal/server/handlers"
	"github.com/rafidhia/implantstock/internal/server/router"
	historysvc "github.com/rafidhia/implantstock/internal/service/history"
	ledgersvc "github.com/rafidhia/implantstock/internal/service/ledger"
	"github.com/rafidhia/implantstock/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var rowService repository.RowService
	switch cfg.Backend {
	case config.BackendGAS:
		rowService = gas.NewClient(cfg.GAS)
		baseLogger.Info("using apps script web app backend")
	default:
		sheetsRepo, err := sheets.NewStockRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		rowService = sheetsRepo
		baseLogger.Info("using direct sheets backend")
	}

	mongoRepo, err := mongodb.NewRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	store := ledgersvc.NewStore()
	ledgerService := ledgersvc.NewService(rowService, mongoRepo, store, baseLogger.Named("svc.ledger"))
	aggregator := historysvc.NewAggregator(mongoRepo, baseLogger.Named("svc.history"))

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := ledgerService.Reload(loadCtx); err != nil {
		baseLogger.Fatal("initial ledger load failed", zap.Error(err))
	}
	loadCancel()

	stockHandler := handlers.NewStockHandler(ledgerService, cfg.Sync.LowStockThreshold, baseLogger.Named("handlers.stock"))
	historyHandler := handlers.NewHistoryHandler(aggregator, baseLogger.Named("handlers.history"))
	engine := router.New(stockHandler, historyHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Sync, ledgerService, mongoRepo, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
