package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rafidhia/implantstock/internal/config"
	"github.com/rafidhia/implantstock/internal/domain/models"
	"github.com/rafidhia/implantstock/internal/repository/mongodb"
	"github.com/rafidhia/implantstock/internal/service/ledger"
)

// Scheduler manages the periodic ledger resync and the daily KPI snapshot.
type Scheduler struct {
	cron      *cron.Cron
	ledgerSvc *ledger.Service
	mongoRepo *mongodb.Repository
	cfg       config.SyncConfig
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.SyncConfig, ledgerSvc *ledger.Service, mongoRepo *mongodb.Repository, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:      cron.New(),
		ledgerSvc: ledgerSvc,
		mongoRepo: mongoRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		zap.String("resync", s.cfg.ResyncSchedule),
		zap.String("kpi", s.cfg.KPISchedule))

	if _, err := s.cron.AddFunc(s.cfg.ResyncSchedule, s.resyncLedger); err != nil {
		s.logger.Error("failed to schedule ledger resync", zap.Error(err))
	}
	if _, err := s.cron.AddFunc(s.cfg.KPISchedule, s.snapshotKPI); err != nil {
		s.logger.Error("failed to schedule kpi snapshot", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) resyncLedger() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.ledgerSvc.Reload(ctx); err != nil {
		s.logger.Error("ledger resync failed", zap.Error(err))
		return
	}
	s.logger.Info("ledger resynced")
}

func (s *Scheduler) snapshotKPI() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	kpi := s.ledgerSvc.KPI(s.cfg.LowStockThreshold)
	now := time.Now().UTC()

	snapshot := models.KPISnapshot{
		Date:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		TotalItems: kpi.TotalItems,
		LowStock:   kpi.LowStock,
		StockSum:   kpi.StockSum,
		CreatedAt:  now,
	}

	if err := s.mongoRepo.SaveKPISnapshot(ctx, snapshot); err != nil {
		s.logger.Error("failed to save kpi snapshot", zap.Error(err))
		return
	}
	s.logger.Info("kpi snapshot saved", zap.Int("total_items", kpi.TotalItems))
}
