package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skywager/domain/entities"
	"skywager/domain/events"
	"skywager/domain/interfaces"
	"skywager/domain/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	MinAggregateLegs = 2
	MaxAggregateLegs = 10
)

// PlacementLeg is one prediction in a placement request
type PlacementLeg struct {
	City     string
	Kind     string
	Value    string
	BaseOdds float64
	Slots    []string
}

// PlacementRequest describes a new wager. Combined bets share the wager city across all legs.
type PlacementRequest struct {
	Kind                entities.WagerKind
	UserID              uuid.UUID
	City                string
	Stake               int64
	Currency            entities.CurrencyKind
	HasInsurance        bool
	InsurancePercentage float64
	TargetDate          time.Time
	ExpiresAt           time.Time
	Legs                []PlacementLeg
}

// ErrInvalidPlacement wraps all request validation failures
var ErrInvalidPlacement = errors.New("invalid wager")

// WagerPlacementService prices and persists new wagers, debiting the stake
type WagerPlacementService struct {
	wagerRepo          interfaces.SettleableRepository
	balanceRepo        interfaces.BalanceRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	accuracyRepo       interfaces.AccuracyLogRepository
	eventPublisher     interfaces.EventPublisher
	valuer             *OddsValuer
}

// NewWagerPlacementService creates a new placement service
func NewWagerPlacementService(
	wagerRepo interfaces.SettleableRepository,
	balanceRepo interfaces.BalanceRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	accuracyRepo interfaces.AccuracyLogRepository,
	eventPublisher interfaces.EventPublisher,
	valuer *OddsValuer,
) *WagerPlacementService {
	return &WagerPlacementService{
		wagerRepo:          wagerRepo,
		balanceRepo:        balanceRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		accuracyRepo:       accuracyRepo,
		eventPublisher:     eventPublisher,
		valuer:             valuer,
	}
}

// QuoteLegs prices legs for a prospective wager using each city's historical accuracy
func (s *WagerPlacementService) QuoteLegs(ctx context.Context, legs []PlacementLeg, city string, targetDate, now time.Time) (*Quote, error) {
	neutral := s.valuer.Policy().Volatility.NeutralAccuracy
	since := now.AddDate(0, 0, -s.valuer.Policy().Volatility.LookbackDays)

	inputs := make([]LegQuoteInput, len(legs))
	for i, leg := range legs {
		legCity := leg.City
		if legCity == "" {
			legCity = city
		}
		category, ok := NormalizeCategory(leg.Kind)
		if !ok {
			return nil, fmt.Errorf("leg %d: %w: %s", i+1, ErrUnknownCategory, leg.Kind)
		}

		score, err := s.accuracyRepo.GetAccuracyScore(ctx, NormalizeCity(legCity), category, since)
		if err != nil {
			return nil, fmt.Errorf("failed to get accuracy score: %w", err)
		}

		inputs[i] = LegQuoteInput{
			City:     legCity,
			Kind:     leg.Kind,
			Value:    leg.Value,
			BaseOdds: leg.BaseOdds,
			Slots:    leg.Slots,
			Accuracy: score.HitRate(neutral),
		}
	}
	return s.valuer.Quote(inputs, now, targetDate)
}

// Place validates, prices and stores a new wager, then debits the stake from the user's balance.
// Must run inside a transaction so an insufficient balance also discards the wager.
func (s *WagerPlacementService) Place(ctx context.Context, req PlacementRequest, now time.Time) (*entities.Settleable, error) {
	if err := validatePlacement(&req, now); err != nil {
		return nil, err
	}

	quote, err := s.QuoteLegs(ctx, req.Legs, req.City, req.TargetDate, now)
	if err != nil {
		return nil, err
	}

	wager := &entities.Settleable{
		Kind:                req.Kind,
		UserID:              req.UserID,
		City:                req.City,
		Stake:               req.Stake,
		Odds:                quote.CombinedOdds,
		Currency:            req.Currency,
		HasInsurance:        req.HasInsurance,
		InsurancePercentage: req.InsurancePercentage,
		Result:              entities.WagerResultPending,
		TargetDate:          req.TargetDate,
		ExpiresAt:           req.ExpiresAt,
		CreatedAt:           now,
		Legs:                make([]*entities.Leg, len(quote.Legs)),
	}
	for i, priced := range quote.Legs {
		city := priced.City
		if req.Kind == entities.WagerKindCombined {
			city = ""
		}
		wager.Legs[i] = &entities.Leg{
			Order:    i,
			City:     city,
			Kind:     priced.Kind,
			Value:    priced.Value,
			TimeSlot: FormatTimeSlots(priced.Slots),
			Odds:     priced.Odds,
			Result:   entities.WagerResultPending,
		}
	}
	if req.Kind == entities.WagerKindSingle {
		wager.City = quote.Legs[0].City
	}

	if err := s.wagerRepo.Create(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	metadata := map[string]any{
		"kind": string(wager.Kind),
		"odds": wager.Odds,
		"legs": len(wager.Legs),
	}
	if _, err := utils.ApplyBalanceChange(ctx, s.balanceRepo, s.balanceHistoryRepo, s.eventPublisher,
		wager.UserID, wager.Currency, -wager.Stake, entities.TransactionTypeStake,
		wager.Kind.RelatedType(), wager.ID, metadata); err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}

	if err := s.eventPublisher.Publish(events.WagerPlacedEvent{
		Kind:     wager.Kind,
		WagerID:  wager.ID,
		UserID:   wager.UserID,
		Stake:    wager.Stake,
		Odds:     wager.Odds,
		Currency: wager.Currency,
	}); err != nil {
		log.WithError(err).Error("Failed to publish wager placed event")
	}

	log.WithFields(log.Fields{
		"kind":    wager.Kind,
		"wagerID": wager.ID,
		"userID":  wager.UserID,
		"stake":   wager.Stake,
		"odds":    wager.Odds,
		"legs":    len(wager.Legs),
	}).Info("Wager placed")

	return wager, nil
}

// validatePlacement checks the request and fills in defaults for currency and expiry
func validatePlacement(req *PlacementRequest, now time.Time) error {
	if !req.Kind.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidWagerKind, req.Kind)
	}

	switch {
	case req.Kind == entities.WagerKindSingle && len(req.Legs) != 1:
		return fmt.Errorf("%w: a single wager has exactly one prediction", ErrInvalidPlacement)
	case req.Kind.IsAggregate() && (len(req.Legs) < MinAggregateLegs || len(req.Legs) > MaxAggregateLegs):
		return ErrInvalidLegCount
	}

	if req.Stake <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrInvalidPlacement)
	}
	if req.Currency == "" {
		req.Currency = entities.CurrencyVirtual
	}
	if !req.Currency.IsValid() {
		return fmt.Errorf("%w: unknown currency %s", ErrInvalidPlacement, req.Currency)
	}
	if req.HasInsurance && (req.InsurancePercentage <= 0 || req.InsurancePercentage > 1) {
		return fmt.Errorf("%w: insurance percentage must be in (0, 1]", ErrInvalidPlacement)
	}
	if !req.HasInsurance {
		req.InsurancePercentage = 0
	}

	if !req.TargetDate.After(now) {
		return fmt.Errorf("%w: target date must be in the future", ErrInvalidPlacement)
	}
	if req.ExpiresAt.IsZero() {
		req.ExpiresAt = req.TargetDate
	}
	if !req.ExpiresAt.After(now) {
		return fmt.Errorf("%w: expiry must be in the future", ErrInvalidPlacement)
	}

	if req.Kind == entities.WagerKindCombined && strings.TrimSpace(req.City) == "" {
		return fmt.Errorf("%w: a combined bet needs a city", ErrInvalidPlacement)
	}
	for i, leg := range req.Legs {
		if req.Kind == entities.WagerKindCombined {
			if leg.City != "" && !strings.EqualFold(strings.TrimSpace(leg.City), strings.TrimSpace(req.City)) {
				return fmt.Errorf("%w: combined bet legs must share the bet city", ErrInvalidPlacement)
			}
			continue
		}
		if strings.TrimSpace(leg.City) == "" && strings.TrimSpace(req.City) == "" {
			return fmt.Errorf("%w: leg %d has no city", ErrInvalidPlacement, i+1)
		}
	}
	return nil
}
