package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	reconcileService *service.ReconcileService
	cron             *cron.Cron
	schedule         string
	logger           *zap.Logger
}

// NewScheduler создаёт новый планировщик; schedule - cron-выражение сверки
func NewScheduler(reconcileService *service.ReconcileService, schedule string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		reconcileService: reconcileService,
		cron:             cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule:         schedule,
		logger:           logger,
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting background scheduler", zap.String("reconcile_cron", s.schedule))

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.reconcile(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule reconciliation: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop останавливает фоновые задачи и ждёт завершения текущей
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

// reconcile ищет события календаря без локальной записи
func (s *Scheduler) reconcile(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	orphans, err := s.reconcileService.Run(ctx)
	if err != nil {
		s.logger.Error("Reconciliation failed", zap.Error(err))
		return
	}

	if len(orphans) > 0 {
		s.logger.Warn("Calendar events without appointment records found", zap.Int("count", len(orphans)))
	}
}
