package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"skywager/domain/entities"
	"skywager/domain/interfaces"
	"skywager/domain/services"
	"skywager/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SettlementRunner resolves every due wager in three passes: singles, parlays, combined bets.
// Each wager settles in its own unit of work; a wager whose weather cannot be fetched stays
// pending for the next run.
type SettlementRunner struct {
	uowFactory  UnitOfWorkFactory
	weather     interfaces.WeatherProvider
	evaluator   *services.PredictionEvaluator
	concurrency int
	now         func() time.Time
}

// NewSettlementRunner creates a new settlement runner
func NewSettlementRunner(uowFactory UnitOfWorkFactory, weather interfaces.WeatherProvider, concurrency int) *SettlementRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SettlementRunner{
		uowFactory:  uowFactory,
		weather:     weather,
		evaluator:   services.NewPredictionEvaluator(),
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// runState is the per-run bookkeeping shared by the pass goroutines
type runState struct {
	mu      sync.Mutex
	summary entities.SettlementSummary
	cache   *services.WeatherCache
	now     time.Time
}

func (s *runState) resolved(kind entities.WagerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Add(kind)
}

func (s *runState) skipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Skipped++
}

func (s *runState) failed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Failed++
}

// Run performs one settlement run. Only a failure to load due wagers is returned as an error;
// per-wager problems are counted in the summary.
func (r *SettlementRunner) Run(ctx context.Context) (entities.SettlementSummary, error) {
	start := time.Now()
	state := &runState{
		cache: services.NewWeatherCache(r.weather),
		now:   r.now(),
	}

	log.WithField("at", state.now.Format(time.RFC3339)).Info("Settlement run started")

	for _, kind := range entities.SettlementOrder {
		if err := r.runPass(ctx, kind, state); err != nil {
			return state.summary, err
		}
	}

	observability.GetMetrics().RecordSettlementRun(time.Since(start), state.summary.Skipped)
	log.WithFields(log.Fields{
		"singles":        state.summary.Singles,
		"parlays":        state.summary.Parlays,
		"combined":       state.summary.Combined,
		"skipped":        state.summary.Skipped,
		"failed":         state.summary.Failed,
		"weatherFetches": state.cache.Fetches(),
		"duration":       time.Since(start).String(),
	}).Info("Settlement run finished")

	return state.summary, nil
}

func (r *SettlementRunner) runPass(ctx context.Context, kind entities.WagerKind, state *runState) error {
	due, err := r.loadDue(ctx, kind, state.now)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	log.WithFields(log.Fields{
		"kind":  kind,
		"count": len(due),
	}).Info("Settling due wagers")

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, wager := range due {
		g.Go(func() error {
			r.settleOne(ctx, wager, state)
			return nil
		})
	}
	return g.Wait()
}

func (r *SettlementRunner) loadDue(ctx context.Context, kind entities.WagerKind, now time.Time) ([]*entities.Settleable, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	due, err := uow.SettleableRepository().GetDue(ctx, kind, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load due %s wagers: %w", kind, err)
	}
	return due, nil
}

func (r *SettlementRunner) settleOne(ctx context.Context, wager *entities.Settleable, state *runState) {
	fields := log.Fields{
		"kind":    wager.Kind,
		"wagerID": wager.ID,
	}

	snapshots, err := state.cache.GetAll(ctx, wager.Cities())
	if err != nil {
		log.WithFields(fields).WithError(err).Warn("Weather unavailable, wager stays pending until the next run")
		state.skipped()
		return
	}

	outcome, err := r.settleInTransaction(ctx, wager, snapshots, state.now)
	if err != nil {
		if errors.Is(err, services.ErrWeatherUnavailable) {
			log.WithFields(fields).WithError(err).Warn("Weather unavailable, wager stays pending until the next run")
			state.skipped()
			return
		}
		log.WithFields(fields).WithError(err).Error("Failed to settle wager")
		state.failed()
		return
	}
	if !outcome.Applied {
		return
	}

	state.resolved(wager.Kind)
	metrics := observability.GetMetrics()
	metrics.RecordWagerSettled(string(wager.Kind), string(outcome.Result))
	if outcome.Payout > 0 {
		metrics.RecordBalanceTransaction(string(outcome.TransactionType))
	}

	r.recordSideEffects(ctx, wager, outcome, snapshots)
}

func (r *SettlementRunner) settleInTransaction(ctx context.Context, wager *entities.Settleable, snapshots map[string]*entities.WeatherSnapshot, now time.Time) (*entities.SettlementOutcome, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settlementService := services.NewSettlementService(
		uow.SettleableRepository(),
		uow.BalanceRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		r.evaluator,
	)

	outcome, err := settlementService.Settle(ctx, wager, snapshots, now)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return outcome, nil
}

// recordSideEffects stores the user notification and accuracy logs for a settled wager.
// Failures are logged and never undo the settlement.
func (r *SettlementRunner) recordSideEffects(ctx context.Context, wager *entities.Settleable, outcome *entities.SettlementOutcome, snapshots map[string]*entities.WeatherSnapshot) {
	fields := log.Fields{
		"kind":    wager.Kind,
		"wagerID": wager.ID,
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to begin side-effect transaction")
		return
	}
	defer uow.Rollback()

	if notification := services.SettlementNotification(wager, outcome); notification != nil {
		if err := uow.NotificationRepository().Create(ctx, notification); err != nil {
			log.WithFields(fields).WithError(err).Error("Failed to store settlement notification")
		}
	}

	relatedType := wager.Kind.RelatedType()
	for _, leg := range wager.Legs {
		category, ok := services.NormalizeCategory(leg.Kind)
		if !ok || (category != services.CategoryTemperature && !services.IsRainCategory(category)) {
			continue
		}
		city := wager.LegCity(leg)
		snapshot := snapshots[services.NormalizeCity(city)]
		actual, ok := r.evaluator.ObservedValue(leg.Kind, snapshot)
		if !ok {
			continue
		}

		entry := &entities.AccuracyLog{
			City:           city,
			Category:       category,
			PredictedValue: leg.Value,
			ActualValue:    actual,
			Hit:            leg.Result == entities.WagerResultWin,
			RelatedID:      &wager.ID,
			RelatedType:    &relatedType,
			ObservedAt:     snapshot.ObservedAt,
		}
		if err := uow.AccuracyLogRepository().Record(ctx, entry); err != nil {
			log.WithFields(fields).WithError(err).Error("Failed to record prediction accuracy")
		}
	}

	if err := uow.Commit(); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to commit settlement side effects")
	}
}
