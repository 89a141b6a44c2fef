package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeWager       RelatedType = "wager"
	RelatedTypeParlay      RelatedType = "parlay"
	RelatedTypeCombinedBet RelatedType = "combined_bet"
)

// BalanceHistory represents a ledger entry for one balance change.
// (related_type, related_id, transaction_type) is unique, so a wager can be paid at most once per type.
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              uuid.UUID       `db:"user_id"`
	Currency            CurrencyKind    `db:"currency"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}

// IsPositiveChange returns true if the change amount is positive
func (bh *BalanceHistory) IsPositiveChange() bool {
	return bh.ChangeAmount > 0
}

// GetTransactionDescription returns a human-readable description of the transaction
func (bh *BalanceHistory) GetTransactionDescription() string {
	switch bh.TransactionType {
	case TransactionTypeStake:
		return "Stake placed"
	case TransactionTypeBetWin:
		return "Bet win"
	case TransactionTypeInsurancePayout:
		return "Insurance payout"
	case TransactionTypeCashOut:
		return "Cash out"
	case TransactionTypeDeposit:
		return "Deposit"
	default:
		return string(bh.TransactionType)
	}
}

// ValidateTransaction performs basic validation on the transaction
func (bh *BalanceHistory) ValidateTransaction() error {
	if bh.ChangeAmount == 0 {
		return errors.New("change amount cannot be zero")
	}

	if bh.BalanceAfter != bh.BalanceBefore+bh.ChangeAmount {
		return errors.New("balance calculation is inconsistent")
	}

	if !bh.Currency.IsValid() {
		return errors.New("unknown currency")
	}

	if bh.TransactionType.IsCredit() && bh.ChangeAmount < 0 {
		return errors.New("credit transaction cannot decrease balance")
	}

	return nil
}
