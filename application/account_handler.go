package application

import (
	"context"
	"fmt"

	"skywager/domain/entities"
	"skywager/domain/utils"
	"skywager/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AccountHandler serves balance, ledger and notification reads plus operator deposits
type AccountHandler struct {
	uowFactory UnitOfWorkFactory
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(uowFactory UnitOfWorkFactory) *AccountHandler {
	return &AccountHandler{uowFactory: uowFactory}
}

// Balances returns the user's balance in every currency
func (h *AccountHandler) Balances(ctx context.Context, userID uuid.UUID) (map[entities.CurrencyKind]int64, error) {
	var balances map[entities.CurrencyKind]int64
	err := h.read(ctx, func(uow UnitOfWork) error {
		balances = make(map[entities.CurrencyKind]int64, 2)
		for _, currency := range []entities.CurrencyKind{entities.CurrencyVirtual, entities.CurrencyReal} {
			balance, err := uow.BalanceRepository().GetBalance(ctx, userID, currency)
			if err != nil {
				return err
			}
			balances[currency] = balance
		}
		return nil
	})
	return balances, err
}

// History returns the newest ledger entries for the user
func (h *AccountHandler) History(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.BalanceHistory, error) {
	var history []*entities.BalanceHistory
	err := h.read(ctx, func(uow UnitOfWork) error {
		var err error
		history, err = uow.BalanceHistoryRepository().GetByUser(ctx, userID, clampLimit(limit))
		return err
	})
	return history, err
}

// Notifications returns the newest stored notifications for the user
func (h *AccountHandler) Notifications(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Notification, error) {
	var notifications []*entities.Notification
	err := h.read(ctx, func(uow UnitOfWork) error {
		var err error
		notifications, err = uow.NotificationRepository().GetByUser(ctx, userID, clampLimit(limit))
		return err
	})
	return notifications, err
}

// PendingWagers returns the user's pending wagers of every kind
func (h *AccountHandler) PendingWagers(ctx context.Context, userID uuid.UUID) ([]*entities.Settleable, error) {
	var pending []*entities.Settleable
	err := h.read(ctx, func(uow UnitOfWork) error {
		for _, kind := range entities.SettlementOrder {
			wagers, err := uow.SettleableRepository().GetPendingByUser(ctx, kind, userID)
			if err != nil {
				return err
			}
			pending = append(pending, wagers...)
		}
		return nil
	})
	return pending, err
}

// Deposit credits the user's balance and records a deposit ledger entry
func (h *AccountHandler) Deposit(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind, amount int64) (*entities.BalanceHistory, error) {
	if amount <= 0 || !currency.IsValid() {
		return nil, ErrInvalidDeposit
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	before, after, err := uow.BalanceRepository().Adjust(ctx, userID, currency, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	history := &entities.BalanceHistory{
		UserID:          userID,
		Currency:        currency,
		BalanceBefore:   before,
		BalanceAfter:    after,
		ChangeAmount:    amount,
		TransactionType: entities.TransactionTypeDeposit,
	}
	if err := utils.RecordBalanceChange(ctx, uow.BalanceHistoryRepository(), uow.EventBus(), history); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deposit: %w", err)
	}

	observability.GetMetrics().RecordBalanceTransaction(string(entities.TransactionTypeDeposit))
	log.WithFields(log.Fields{
		"userID":   userID,
		"currency": currency,
		"amount":   amount,
		"balance":  after,
	}).Info("Deposit recorded")

	return history, nil
}

// read runs fn inside a transaction that is always rolled back
func (h *AccountHandler) read(ctx context.Context, fn func(UnitOfWork) error) error {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()
	return fn(uow)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
