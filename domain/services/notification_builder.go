package services

import (
	"fmt"

	"skywager/domain/entities"
)

// SettlementNotification builds the message stored for a user after their wager settles.
// Returns nil for outcomes that were not applied.
func SettlementNotification(wager *entities.Settleable, outcome *entities.SettlementOutcome) *entities.Notification {
	if outcome == nil || !outcome.Applied {
		return nil
	}

	n := &entities.Notification{
		UserID:      wager.UserID,
		Amount:      outcome.Payout,
		Currency:    &wager.Currency,
		RelatedID:   &wager.ID,
		RelatedType: ptr(wager.Kind.RelatedType()),
	}

	label := wagerLabel(wager)
	switch {
	case outcome.Result == entities.WagerResultWin:
		n.Kind = entities.NotificationKindWagerWon
		n.Title = "You won!"
		n.Message = fmt.Sprintf("Your %s came in. %s paid out.", label, formatAmount(outcome.Payout, wager.Currency))
	case outcome.TransactionType == entities.TransactionTypeInsurancePayout:
		n.Kind = entities.NotificationKindInsurancePaid
		n.Title = "Insurance paid out"
		n.Message = fmt.Sprintf("Your %s lost, but insurance returned %s.", label, formatAmount(outcome.Payout, wager.Currency))
	default:
		n.Kind = entities.NotificationKindWagerLost
		n.Title = "Wager lost"
		n.Message = fmt.Sprintf("Your %s did not come in.", label)
		if wager.Kind.IsAggregate() {
			won := 0
			for _, r := range outcome.LegResults {
				if r == entities.WagerResultWin {
					won++
				}
			}
			n.Message = fmt.Sprintf("Your %s did not come in (%d of %d predictions right).", label, won, len(outcome.LegResults))
		}
	}
	return n
}

// CashOutNotification builds the message stored after a cash-out
func CashOutNotification(wager *entities.Settleable, amount int64) *entities.Notification {
	return &entities.Notification{
		UserID:      wager.UserID,
		Kind:        entities.NotificationKindWagerCashedOut,
		Title:       "Cashed out",
		Message:     fmt.Sprintf("You cashed out your %s for %s.", wagerLabel(wager), formatAmount(amount, wager.Currency)),
		Amount:      amount,
		Currency:    &wager.Currency,
		RelatedID:   &wager.ID,
		RelatedType: ptr(wager.Kind.RelatedType()),
	}
}

func wagerLabel(wager *entities.Settleable) string {
	switch wager.Kind {
	case entities.WagerKindParlay:
		return fmt.Sprintf("%d-leg parlay", len(wager.Legs))
	case entities.WagerKindCombined:
		return fmt.Sprintf("combined bet in %s", wager.City)
	default:
		if len(wager.Legs) == 1 {
			return fmt.Sprintf("%s bet in %s", wager.Legs[0].Kind, wager.City)
		}
		return "bet"
	}
}

func formatAmount(amount int64, currency entities.CurrencyKind) string {
	if currency == entities.CurrencyReal {
		return fmt.Sprintf("%d.%02d", amount/100, amount%100)
	}
	return fmt.Sprintf("%d points", amount)
}

func ptr[T any](v T) *T {
	return &v
}
