package application

import (
	"context"
	"fmt"
	"sync"

	"skywager/domain/entities"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// SettlementTrigger runs one settlement pass
type SettlementTrigger interface {
	Run(ctx context.Context) (entities.SettlementSummary, error)
}

// SettlementWorker runs settlement on a cron schedule.
// A tick that fires while the previous run is still going is skipped.
type SettlementWorker struct {
	runner   SettlementTrigger
	schedule string
	running  sync.Mutex
}

// NewSettlementWorker creates a new settlement worker. schedule uses the six-field cron format.
func NewSettlementWorker(runner SettlementTrigger, schedule string) *SettlementWorker {
	return &SettlementWorker{
		runner:   runner,
		schedule: schedule,
	}
}

// Start schedules settlement runs and returns a function that stops the scheduler
// and waits for an in-flight run to finish
func (w *SettlementWorker) Start(ctx context.Context) (func(), error) {
	scheduler := cron.New(cron.WithSeconds())

	if _, err := scheduler.AddFunc(w.schedule, func() { w.tick(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid settlement schedule %q: %w", w.schedule, err)
	}

	scheduler.Start()
	log.WithField("schedule", w.schedule).Info("Settlement worker started")

	return func() {
		<-scheduler.Stop().Done()
		log.Info("Settlement worker stopped")
	}, nil
}

func (w *SettlementWorker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !w.running.TryLock() {
		log.Warn("Previous settlement run still in progress, skipping tick")
		return
	}
	defer w.running.Unlock()

	if _, err := w.runner.Run(ctx); err != nil {
		log.WithError(err).Error("Scheduled settlement run failed")
	}
}
