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

// SettlementService resolves due wagers against observed weather
type SettlementService struct {
	wagerRepo          interfaces.SettleableRepository
	balanceRepo        interfaces.BalanceRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	evaluator          *PredictionEvaluator
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	wagerRepo interfaces.SettleableRepository,
	balanceRepo interfaces.BalanceRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	evaluator *PredictionEvaluator,
) *SettlementService {
	return &SettlementService{
		wagerRepo:          wagerRepo,
		balanceRepo:        balanceRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		evaluator:          evaluator,
	}
}

// EvaluateLegs judges every leg, storing each result on the leg, and returns true only if all legs win.
// Evaluation continues after the first loss so every leg ends up with a recorded result.
// snapshots is keyed by lowercased city.
func (s *SettlementService) EvaluateLegs(wager *entities.Settleable, snapshots map[string]*entities.WeatherSnapshot) (bool, error) {
	if len(wager.Legs) == 0 {
		return false, fmt.Errorf("wager %s/%d has no legs", wager.Kind, wager.ID)
	}

	// Resolve every snapshot first so a missing city leaves all legs untouched
	legSnapshots := make([]*entities.WeatherSnapshot, len(wager.Legs))
	for i, leg := range wager.Legs {
		city := wager.LegCity(leg)
		snapshot, ok := snapshots[NormalizeCity(city)]
		if !ok || snapshot == nil {
			return false, fmt.Errorf("%w: %s", ErrWeatherUnavailable, city)
		}
		legSnapshots[i] = snapshot
	}

	allWin := true
	for i, leg := range wager.Legs {
		won := s.evaluator.Evaluate(leg.Kind, leg.Value, legSnapshots[i])
		leg.Result = entities.ResultFor(won)
		allWin = allWin && won
	}
	return allWin, nil
}

// Settle evaluates a due wager and, inside the caller's transaction, writes its final result,
// its leg results and any payout with the matching ledger entry.
// If another run already resolved the wager the outcome is returned with Applied=false and nothing is written.
func (s *SettlementService) Settle(ctx context.Context, wager *entities.Settleable, snapshots map[string]*entities.WeatherSnapshot, now time.Time) (*entities.SettlementOutcome, error) {
	if !wager.IsPending() {
		return &entities.SettlementOutcome{Kind: wager.Kind, WagerID: wager.ID, Result: wager.Result}, nil
	}

	allWin, err := s.EvaluateLegs(wager, snapshots)
	if err != nil {
		return nil, err
	}

	result := entities.ResultFor(allWin)
	payout, txType := CalculatePayout(wager, allWin)

	outcome := &entities.SettlementOutcome{
		Kind:            wager.Kind,
		WagerID:         wager.ID,
		Result:          result,
		Payout:          payout,
		TransactionType: txType,
		LegResults:      make([]entities.WagerResult, len(wager.Legs)),
	}
	for i, leg := range wager.Legs {
		outcome.LegResults[i] = leg.Result
	}

	applied, err := s.wagerRepo.MarkSettled(ctx, wager.Kind, wager.ID, result, payout, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark wager settled: %w", err)
	}
	if !applied {
		log.WithFields(log.Fields{
			"kind":    wager.Kind,
			"wagerID": wager.ID,
		}).Info("Wager already resolved by another run, skipping")
		return outcome, nil
	}
	outcome.Applied = true

	if wager.Kind.IsAggregate() {
		if err := s.wagerRepo.RecordLegResults(ctx, wager); err != nil {
			return nil, fmt.Errorf("failed to record leg results: %w", err)
		}
	}

	if payout > 0 {
		metadata := map[string]any{
			"kind":  string(wager.Kind),
			"stake": wager.Stake,
			"odds":  wager.Odds,
			"legs":  len(wager.Legs),
		}
		if txType == entities.TransactionTypeInsurancePayout {
			metadata["insurance_percentage"] = wager.InsurancePercentage
		}

		if _, err := utils.ApplyBalanceChange(ctx, s.balanceRepo, s.balanceHistoryRepo, s.eventPublisher,
			wager.UserID, wager.Currency, payout, txType, wager.Kind.RelatedType(), wager.ID, metadata); err != nil {
			return nil, fmt.Errorf("failed to apply payout: %w", err)
		}
	}

	wager.Result = result
	wager.Payout = payout
	wager.SettledAt = &now

	if err := s.eventPublisher.Publish(events.WagerSettledEvent{
		Kind:     wager.Kind,
		WagerID:  wager.ID,
		UserID:   wager.UserID,
		Result:   result,
		Payout:   payout,
		Currency: wager.Currency,
	}); err != nil {
		log.WithError(err).Error("Failed to publish wager settled event")
	}

	log.WithFields(log.Fields{
		"kind":    wager.Kind,
		"wagerID": wager.ID,
		"userID":  wager.UserID,
		"result":  result,
		"payout":  payout,
		"legs":    len(wager.Legs),
	}).Info("Wager settled")

	return outcome, nil
}
