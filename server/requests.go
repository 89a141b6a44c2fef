package server

import (
	"time"

	"skywager/domain/entities"
	"skywager/domain/services"

	"github.com/google/uuid"
)

// LegRequest is one prediction in a quote or a new wager
type LegRequest struct {
	City     string   `json:"city,omitempty"`
	Kind     string   `json:"kind" validate:"required"`
	Value    string   `json:"value" validate:"required"`
	BaseOdds float64  `json:"base_odds" validate:"required,gt=1"`
	Slots    []string `json:"slots,omitempty" validate:"omitempty,dive,required"`
}

// QuoteRequest asks for dynamic odds without placing anything
type QuoteRequest struct {
	City       string       `json:"city" validate:"required"`
	TargetDate time.Time    `json:"target_date" validate:"required"`
	At         time.Time    `json:"at"`
	Legs       []LegRequest `json:"legs" validate:"required,min=1,max=10,dive"`
}

// InsuranceRequest opts a wager into a partial stake refund on loss
type InsuranceRequest struct {
	Percentage float64 `json:"percentage" validate:"gt=0,lte=1"`
}

// PlaceWagerRequest places a single, parlay or combined wager
type PlaceWagerRequest struct {
	Kind       string            `json:"kind" validate:"required,oneof=single parlay combined"`
	UserID     string            `json:"user_id" validate:"required,uuid"`
	City       string            `json:"city"`
	Stake      int64             `json:"stake" validate:"required,gt=0"`
	Currency   string            `json:"currency" validate:"omitempty,oneof=virtual real"`
	Insurance  *InsuranceRequest `json:"insurance,omitempty"`
	TargetDate time.Time         `json:"target_date" validate:"required"`
	ExpiresAt  time.Time         `json:"expires_at"`
	Legs       []LegRequest      `json:"legs" validate:"required,min=1,max=10,dive"`
}

// CashOutRequest executes a cash-out on behalf of the wager owner
type CashOutRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// DepositRequest credits operator funding to a user
type DepositRequest struct {
	Currency string `json:"currency" validate:"required,oneof=virtual real"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}

func toPlacementLegs(legs []LegRequest) []services.PlacementLeg {
	out := make([]services.PlacementLeg, len(legs))
	for i, leg := range legs {
		out[i] = services.PlacementLeg{
			City:     leg.City,
			Kind:     leg.Kind,
			Value:    leg.Value,
			BaseOdds: leg.BaseOdds,
			Slots:    leg.Slots,
		}
	}
	return out
}

// toPlacementRequest assumes the request already passed validation
func (r PlaceWagerRequest) toPlacementRequest() services.PlacementRequest {
	req := services.PlacementRequest{
		Kind:       entities.WagerKind(r.Kind),
		UserID:     uuid.MustParse(r.UserID),
		City:       r.City,
		Stake:      r.Stake,
		Currency:   entities.CurrencyKind(r.Currency),
		TargetDate: r.TargetDate,
		ExpiresAt:  r.ExpiresAt,
		Legs:       toPlacementLegs(r.Legs),
	}
	if r.Insurance != nil {
		req.HasInsurance = true
		req.InsurancePercentage = r.Insurance.Percentage
	}
	return req
}
