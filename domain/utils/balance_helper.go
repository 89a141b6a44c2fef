package utils

import (
	"context"
	"fmt"

	"skywager/domain/entities"
	"skywager/domain/events"
	"skywager/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ApplyBalanceChange adjusts a balance and records the matching ledger entry.
// This is the single entry point for all balance changes in the system and must run
// inside the same transaction as the state change that justifies it.
func ApplyBalanceChange(
	ctx context.Context,
	balanceRepo interfaces.BalanceRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	userID uuid.UUID,
	currency entities.CurrencyKind,
	delta int64,
	transactionType entities.TransactionType,
	relatedType entities.RelatedType,
	relatedID int64,
	metadata map[string]any,
) (*entities.BalanceHistory, error) {
	before, after, err := balanceRepo.Adjust(ctx, userID, currency, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	history := &entities.BalanceHistory{
		UserID:              userID,
		Currency:            currency,
		BalanceBefore:       before,
		BalanceAfter:        after,
		ChangeAmount:        delta,
		TransactionType:     transactionType,
		TransactionMetadata: metadata,
		RelatedID:           &relatedID,
		RelatedType:         &relatedType,
	}

	if err := RecordBalanceChange(ctx, balanceHistoryRepo, eventPublisher, history); err != nil {
		return nil, err
	}
	return history, nil
}

// RecordBalanceChange records a balance history entry and emits a balance change event
func RecordBalanceChange(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, history *entities.BalanceHistory) error {
	if err := history.ValidateTransaction(); err != nil {
		return fmt.Errorf("invalid balance change: %w", err)
	}

	if err := balanceHistoryRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	event := events.BalanceChangeEvent{
		UserID:          history.UserID,
		Currency:        history.Currency,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	}
	log.WithFields(log.Fields{
		"userID":          event.UserID,
		"currency":        event.Currency,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
		"changeAmount":    event.ChangeAmount,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return nil
}
