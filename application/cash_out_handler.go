package application

import (
	"context"
	"fmt"
	"time"

	"skywager/domain/entities"
	"skywager/domain/interfaces"
	"skywager/domain/services"
	"skywager/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CashOutHandler prices and executes early exits from pending wagers
type CashOutHandler struct {
	uowFactory UnitOfWorkFactory
	weather    interfaces.WeatherProvider
	valuer     *services.OddsValuer
	now        func() time.Time
}

// NewCashOutHandler creates a new cash-out handler
func NewCashOutHandler(uowFactory UnitOfWorkFactory, weather interfaces.WeatherProvider, valuer *services.OddsValuer) *CashOutHandler {
	return &CashOutHandler{
		uowFactory: uowFactory,
		weather:    weather,
		valuer:     valuer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Offer returns the current cash-out valuation of a pending wager
func (h *CashOutHandler) Offer(ctx context.Context, kind entities.WagerKind, wagerID int64) (*entities.Valuation, error) {
	wager, err := h.loadPending(ctx, kind, wagerID)
	if err != nil {
		return nil, err
	}

	forecasts := services.CollectForecasts(ctx, h.weather, wager)
	valuation := h.valuer.CashOutOffer(wager, forecasts, h.now())
	return &valuation, nil
}

// Execute cashes out the wager for its owner at the current offer
func (h *CashOutHandler) Execute(ctx context.Context, kind entities.WagerKind, wagerID int64, userID uuid.UUID) (*entities.Valuation, error) {
	// Forecasts are fetched before the transaction opens
	wager, err := h.loadPending(ctx, kind, wagerID)
	if err != nil {
		return nil, err
	}
	if wager.UserID != userID {
		return nil, services.ErrWagerNotFound
	}
	forecasts := services.CollectForecasts(ctx, h.weather, wager)

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Reload inside the transaction; the compare-and-set below guards against concurrent changes
	wager, err = uow.SettleableRepository().GetByID(ctx, kind, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, services.ErrWagerNotFound
	}

	cashOutService := services.NewCashOutService(
		uow.SettleableRepository(),
		uow.BalanceRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		h.valuer,
	)

	valuation, err := cashOutService.Execute(ctx, wager, forecasts, h.now())
	if err != nil {
		return valuation, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cash-out: %w", err)
	}

	metrics := observability.GetMetrics()
	metrics.RecordWagerCashedOut(string(kind))
	metrics.RecordBalanceTransaction(string(entities.TransactionTypeCashOut))

	h.notify(ctx, wager, valuation.Offer)
	return valuation, nil
}

// notify stores the cash-out notification in its own transaction; failures are logged only
func (h *CashOutHandler) notify(ctx context.Context, wager *entities.Settleable, amount int64) {
	fields := log.Fields{
		"kind":    wager.Kind,
		"wagerID": wager.ID,
		"userID":  wager.UserID,
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to begin notification transaction")
		return
	}
	defer uow.Rollback()

	if err := uow.NotificationRepository().Create(ctx, services.CashOutNotification(wager, amount)); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to store cash-out notification")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to commit cash-out notification")
	}
}

func (h *CashOutHandler) loadPending(ctx context.Context, kind entities.WagerKind, wagerID int64) (*entities.Settleable, error) {
	if !kind.IsValid() {
		return nil, services.ErrInvalidWagerKind
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.SettleableRepository().GetByID(ctx, kind, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}
	if wager == nil {
		return nil, services.ErrWagerNotFound
	}
	if !wager.IsPending() {
		log.WithFields(log.Fields{
			"kind":    kind,
			"wagerID": wagerID,
			"result":  wager.Result,
		}).Debug("Cash-out requested for a resolved wager")
		return nil, services.ErrWagerNotPending
	}
	return wager, nil
}
