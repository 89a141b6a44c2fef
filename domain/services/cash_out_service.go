package services

import (
	"context"
	"fmt"
	"time"

	"skywager/domain/entities"
	"skywager/domain/events"
	"skywager/domain/interfaces"
	"skywager/domain/utils"

	log "github.com/sirupsen/logrus"
)

// CashOutService values pending wagers and lets users exit them early
type CashOutService struct {
	wagerRepo          interfaces.SettleableRepository
	balanceRepo        interfaces.BalanceRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	valuer             *OddsValuer
}

// NewCashOutService creates a new cash-out service
func NewCashOutService(
	wagerRepo interfaces.SettleableRepository,
	balanceRepo interfaces.BalanceRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	valuer *OddsValuer,
) *CashOutService {
	return &CashOutService{
		wagerRepo:          wagerRepo,
		balanceRepo:        balanceRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		valuer:             valuer,
	}
}

// Execute cashes out a pending wager at the offer computed from forecasts.
// The wager leaves pending with a compare-and-set, so a concurrent settlement or cash-out
// makes this return ErrWagerNotPending and nothing is credited.
func (s *CashOutService) Execute(ctx context.Context, wager *entities.Settleable, forecasts map[string]*entities.WeatherSnapshot, now time.Time) (*entities.Valuation, error) {
	if !wager.IsPending() {
		return nil, ErrWagerNotPending
	}

	valuation := s.valuer.CashOutOffer(wager, forecasts, now)
	if !valuation.Available {
		return &valuation, ErrCashOutUnavailable
	}

	applied, err := s.wagerRepo.MarkCashedOut(ctx, wager.Kind, wager.ID, valuation.Offer, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark wager cashed out: %w", err)
	}
	if !applied {
		return nil, ErrWagerNotPending
	}

	metadata := map[string]any{
		"kind":          string(wager.Kind),
		"stake":         wager.Stake,
		"potential_win": valuation.PotentialWin,
		"fraction":      valuation.Fraction,
	}
	if _, err := utils.ApplyBalanceChange(ctx, s.balanceRepo, s.balanceHistoryRepo, s.eventPublisher,
		wager.UserID, wager.Currency, valuation.Offer, entities.TransactionTypeCashOut,
		wager.Kind.RelatedType(), wager.ID, metadata); err != nil {
		return nil, fmt.Errorf("failed to credit cash-out: %w", err)
	}

	wager.Result = entities.WagerResultCashedOut
	wager.CashedOut = true
	wager.CashOutAmount = valuation.Offer
	wager.SettledAt = &now

	if err := s.eventPublisher.Publish(events.WagerCashedOutEvent{
		Kind:     wager.Kind,
		WagerID:  wager.ID,
		UserID:   wager.UserID,
		Amount:   valuation.Offer,
		Currency: wager.Currency,
	}); err != nil {
		log.WithError(err).Error("Failed to publish wager cashed out event")
	}

	log.WithFields(log.Fields{
		"kind":     wager.Kind,
		"wagerID":  wager.ID,
		"userID":   wager.UserID,
		"amount":   valuation.Offer,
		"fraction": valuation.Fraction,
	}).Info("Wager cashed out")

	return &valuation, nil
}

// CollectForecasts fetches one forecast per city referenced by the wager.
// Slot-tagged legs are forecast at their first slot's hour on the target date, others at the
// wager's deadline. Each city is requested at most once, even when the fetch fails.
// Failures are logged and leave the city out, which values it as neutral.
func CollectForecasts(ctx context.Context, provider interfaces.WeatherProvider, wager *entities.Settleable) map[string]*entities.WeatherSnapshot {
	forecasts := make(map[string]*entities.WeatherSnapshot, len(wager.Legs))
	attempted := make(map[string]bool, len(wager.Legs))
	for _, leg := range wager.Legs {
		city := wager.LegCity(leg)
		key := NormalizeCity(city)
		if attempted[key] {
			continue
		}
		attempted[key] = true

		forecast, err := provider.Forecast(ctx, city, ForecastTime(wager, leg))
		if err != nil {
			log.WithFields(log.Fields{
				"city":    city,
				"wagerID": wager.ID,
				"error":   err,
			}).Warn("Forecast unavailable, valuing leg as neutral")
			continue
		}
		forecasts[key] = forecast
	}
	return forecasts
}

// ForecastTime returns the moment a leg's outcome will be measured
func ForecastTime(wager *entities.Settleable, leg *entities.Leg) time.Time {
	if slots := ParseTimeSlots(leg.TimeSlot); len(slots) > 0 {
		if hour, ok := entities.TimeSlotHours[slots[0]]; ok {
			day := wager.TargetDate.UTC()
			return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
		}
	}
	return wager.DueAt()
}
