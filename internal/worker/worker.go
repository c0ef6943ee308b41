package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"repricer-service/internal/broker"
	"repricer-service/internal/models"
	"repricer-service/internal/reconcile"
	"repricer-service/internal/util"
)

// ReconcileWorker consumes ReconciliationRequested commands so external
// schedulers can trigger runs through Kafka.
type ReconcileWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	engine       *reconcile.Service
	logger       *zap.Logger
}

// NewReconcileWorker creates a worker bound to the engine.
func NewReconcileWorker(consumer *broker.Consumer, engine *reconcile.Service) *ReconcileWorker {
	w := &ReconcileWorker{
		consumer: consumer,
		engine:   engine,
		logger:   util.NamedLogger("reconcile-worker"),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnRunRequested(w.handleRunRequested)
	w.eventHandler = eventHandler
	return w
}

func (w *ReconcileWorker) handleRunRequested(ctx context.Context, event *models.ReconciliationRequestedEvent) error {
	w.logger.Info("Run requested via broker",
		zap.String("event_id", event.EventID),
		zap.String("sync_type", event.SyncType),
		zap.Bool("dry_run", event.DryRun))

	summary, err := w.engine.Run(ctx, reconcile.Options{
		SyncType:              event.SyncType,
		BatchSize:             event.BatchSize,
		DelayBetweenItemsMs:   event.DelayBetweenItemsMs,
		DelayBetweenBatchesMs: event.DelayBetweenBatchesMs,
		ForceUpdate:           event.ForceUpdate,
		DryRun:                event.DryRun,
	})
	if errors.Is(err, reconcile.ErrRunInProgress) {
		// Drop the command; the active run already covers it.
		w.logger.Warn("Run request ignored, another run is active",
			zap.String("event_id", event.EventID))
		return nil
	}
	if err != nil {
		w.logger.Error("Requested run failed", zap.Error(err))
		return err
	}

	w.logger.Info("Requested run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("success", summary.Success),
		zap.Int("errors", summary.Errors))
	return nil
}

// Start starts the worker
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reconcile worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReconcileWorker) Stop() error {
	w.logger.Info("Stopping reconcile worker")
	return w.consumer.Close()
}

// Scheduler triggers periodic reconciliation runs in-process.
type Scheduler struct {
	engine   *reconcile.Service
	interval time.Duration
	opts     reconcile.Options
	logger   *zap.Logger
}

// NewScheduler creates a periodic run trigger.
func NewScheduler(engine *reconcile.Service, interval time.Duration, opts reconcile.Options) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		opts:     opts,
		logger:   util.NamedLogger("scheduler"),
	}
}

// Start runs until the context is cancelled. A tick that lands while a run
// is still active is skipped.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting reconciliation scheduler", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			summary, err := s.engine.Run(ctx, s.opts)
			if errors.Is(err, reconcile.ErrRunInProgress) {
				s.logger.Warn("Scheduled run skipped, previous run still active")
				continue
			}
			if err != nil {
				s.logger.Error("Scheduled run failed", zap.Error(err))
				continue
			}
			s.logger.Info("Scheduled run finished",
				zap.String("run_id", summary.RunID),
				zap.Int("success", summary.Success),
				zap.Int("skipped", summary.Skipped),
				zap.Int("errors", summary.Errors))
		}
	}
}
