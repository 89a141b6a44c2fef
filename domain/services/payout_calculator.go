package services

import (
	"skywager/domain/entities"

	"github.com/shopspring/decimal"
)

// WinPayout returns round(stake × odds), rounding half away from zero
func WinPayout(stake int64, odds float64) int64 {
	return decimal.NewFromInt(stake).
		Mul(decimal.NewFromFloat(odds)).
		Round(0).
		IntPart()
}

// InsurancePayout returns floor(stake × percentage) for an insured loss
func InsurancePayout(stake int64, percentage float64) int64 {
	if percentage <= 0 {
		return 0
	}
	return decimal.NewFromInt(stake).
		Mul(decimal.NewFromFloat(percentage)).
		Floor().
		IntPart()
}

// CalculatePayout returns the amount credited for a settled wager and the ledger type it is booked under.
// Insurance only applies to losses and is never combined with a win payout.
func CalculatePayout(wager *entities.Settleable, won bool) (int64, entities.TransactionType) {
	if won {
		return WinPayout(wager.Stake, wager.Odds), entities.TransactionTypeBetWin
	}
	if wager.HasInsurance {
		return InsurancePayout(wager.Stake, wager.InsurancePercentage), entities.TransactionTypeInsurancePayout
	}
	return 0, ""
}

// CombinedOdds returns the product of all leg odds with no cap, to four decimal places
func CombinedOdds(odds ...float64) float64 {
	if len(odds) == 0 {
		return 0
	}
	product := decimal.NewFromInt(1)
	for _, o := range odds {
		product = product.Mul(decimal.NewFromFloat(o))
	}
	return product.Round(4).InexactFloat64()
}
