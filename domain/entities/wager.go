package entities

import (
	"time"

	"github.com/google/uuid"
)

// WagerKind identifies which table a settleable wager lives in
type WagerKind string

const (
	WagerKindSingle   WagerKind = "single"
	WagerKindParlay   WagerKind = "parlay"
	WagerKindCombined WagerKind = "combined"
)

// SettlementOrder is the order in which settlement passes run
var SettlementOrder = []WagerKind{WagerKindSingle, WagerKindParlay, WagerKindCombined}

// IsValid returns true if the kind is known
func (k WagerKind) IsValid() bool {
	return k == WagerKindSingle || k == WagerKindParlay || k == WagerKindCombined
}

// IsAggregate returns true for kinds that own multiple legs
func (k WagerKind) IsAggregate() bool {
	return k == WagerKindParlay || k == WagerKindCombined
}

// RelatedType returns the ledger related_type used for this kind
func (k WagerKind) RelatedType() RelatedType {
	switch k {
	case WagerKindParlay:
		return RelatedTypeParlay
	case WagerKindCombined:
		return RelatedTypeCombinedBet
	default:
		return RelatedTypeWager
	}
}

// WagerResult represents the lifecycle state of a wager or leg
type WagerResult string

const (
	WagerResultPending   WagerResult = "pending"
	WagerResultWin       WagerResult = "win"
	WagerResultLoss      WagerResult = "loss"
	WagerResultCashedOut WagerResult = "cashed_out"
)

// ResultFor maps a boolean evaluation to a final result
func ResultFor(won bool) WagerResult {
	if won {
		return WagerResultWin
	}
	return WagerResultLoss
}

// CurrencyKind selects the balance ledger a wager is staked from
type CurrencyKind string

const (
	CurrencyVirtual CurrencyKind = "virtual"
	CurrencyReal    CurrencyKind = "real"
)

// IsValid returns true if the currency is known
func (c CurrencyKind) IsValid() bool {
	return c == CurrencyVirtual || c == CurrencyReal
}

// Leg is a single prediction inside a wager.
// A single wager is represented as a Settleable with exactly one leg whose ID is zero.
type Leg struct {
	ID       int64       `db:"id"`
	Order    int         `db:"leg_order"`
	City     string      `db:"city"`
	Kind     string      `db:"prediction_kind"`
	Value    string      `db:"prediction_value"`
	TimeSlot *string     `db:"time_slot"`
	Odds     float64     `db:"odds"`
	Result   WagerResult `db:"result"`
}

// Settleable is a pending or resolved wager of any kind with N>=1 legs
type Settleable struct {
	Kind                WagerKind    `db:"-"`
	ID                  int64        `db:"id"`
	UserID              uuid.UUID    `db:"user_id"`
	City                string       `db:"city"`
	Stake               int64        `db:"stake"`
	Odds                float64      `db:"odds"`
	Currency            CurrencyKind `db:"currency"`
	HasInsurance        bool         `db:"has_insurance"`
	InsurancePercentage float64      `db:"insurance_percentage"`
	Result              WagerResult  `db:"result"`
	Payout              int64        `db:"payout"`
	CashedOut           bool         `db:"cashed_out"`
	CashOutAmount       int64        `db:"cash_out_amount"`
	TargetDate          time.Time    `db:"target_date"`
	ExpiresAt           time.Time    `db:"expires_at"`
	CreatedAt           time.Time    `db:"created_at"`
	SettledAt           *time.Time   `db:"settled_at"`
	Legs                []*Leg       `db:"-"`
}

// IsPending returns true if the wager can still be settled or cashed out
func (s *Settleable) IsPending() bool {
	return s.Result == WagerResultPending && !s.CashedOut
}

// DueAt returns the moment the wager becomes eligible for settlement.
// Singles resolve at whichever deadline passes first, parlays at expiry,
// combined bets at their target date.
func (s *Settleable) DueAt() time.Time {
	switch s.Kind {
	case WagerKindParlay:
		return s.ExpiresAt
	case WagerKindCombined:
		return s.TargetDate
	default:
		if s.ExpiresAt.Before(s.TargetDate) {
			return s.ExpiresAt
		}
		return s.TargetDate
	}
}

// IsDue reports whether the wager is pending and past its settlement deadline
func (s *Settleable) IsDue(now time.Time) bool {
	return s.IsPending() && !now.Before(s.DueAt())
}

// LegCity returns the city a leg should be observed in
func (s *Settleable) LegCity(leg *Leg) string {
	if leg.City != "" {
		return leg.City
	}
	return s.City
}

// Cities returns the distinct cities referenced by the wager's legs
func (s *Settleable) Cities() []string {
	seen := make(map[string]bool, len(s.Legs))
	var cities []string
	for _, leg := range s.Legs {
		city := s.LegCity(leg)
		if city == "" || seen[city] {
			continue
		}
		seen[city] = true
		cities = append(cities, city)
	}
	return cities
}
