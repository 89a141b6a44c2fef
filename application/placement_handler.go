package application

import (
	"context"
	"fmt"
	"time"

	"skywager/domain/entities"
	"skywager/domain/services"
	"skywager/infrastructure/observability"
)

// PlacementHandler quotes and places new wagers
type PlacementHandler struct {
	uowFactory UnitOfWorkFactory
	valuer     *services.OddsValuer
	now        func() time.Time
}

// NewPlacementHandler creates a new placement handler
func NewPlacementHandler(uowFactory UnitOfWorkFactory, valuer *services.OddsValuer) *PlacementHandler {
	return &PlacementHandler{
		uowFactory: uowFactory,
		valuer:     valuer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices legs without storing anything. A zero at means now.
func (h *PlacementHandler) Quote(ctx context.Context, city string, targetDate time.Time, legs []services.PlacementLeg, at time.Time) (*services.Quote, error) {
	if at.IsZero() {
		at = h.now()
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return h.placementService(uow).QuoteLegs(ctx, legs, city, targetDate, at)
}

// Place stores a new wager and debits its stake in one transaction
func (h *PlacementHandler) Place(ctx context.Context, req services.PlacementRequest) (*entities.Settleable, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := h.placementService(uow).Place(ctx, req, h.now())
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit wager: %w", err)
	}

	metrics := observability.GetMetrics()
	metrics.RecordWagerPlaced(string(wager.Kind))
	metrics.RecordBalanceTransaction(string(entities.TransactionTypeStake))

	return wager, nil
}

func (h *PlacementHandler) placementService(uow UnitOfWork) *services.WagerPlacementService {
	return services.NewWagerPlacementService(
		uow.SettleableRepository(),
		uow.BalanceRepository(),
		uow.BalanceHistoryRepository(),
		uow.AccuracyLogRepository(),
		uow.EventBus(),
		h.valuer,
	)
}
