package testutil

import (
	"time"

	"skywager/domain/entities"

	"github.com/google/uuid"
)

// CreateTestSingle creates a pending single wager due at target
func CreateTestSingle(userID uuid.UUID, city, kind, value string, target time.Time) *entities.Settleable {
	return &entities.Settleable{
		Kind:       entities.WagerKindSingle,
		UserID:     userID,
		City:       city,
		Stake:      100,
		Odds:       2.5,
		Currency:   entities.CurrencyVirtual,
		Result:     entities.WagerResultPending,
		TargetDate: target,
		ExpiresAt:  target.Add(24 * time.Hour),
		CreatedAt:  target.Add(-48 * time.Hour),
		Legs: []*entities.Leg{{
			City:  city,
			Kind:  kind,
			Value: value,
			Odds:  2.5,
		}},
	}
}

// CreateTestParlay creates a pending parlay over the given cities, each predicting rain
func CreateTestParlay(userID uuid.UUID, expires time.Time, cities ...string) *entities.Settleable {
	wager := &entities.Settleable{
		Kind:       entities.WagerKindParlay,
		UserID:     userID,
		Stake:      50,
		Odds:       1,
		Currency:   entities.CurrencyVirtual,
		Result:     entities.WagerResultPending,
		TargetDate: expires,
		ExpiresAt:  expires,
		CreatedAt:  expires.Add(-72 * time.Hour),
	}
	for _, city := range cities {
		wager.Legs = append(wager.Legs, &entities.Leg{City: city, Kind: "rain", Value: "yes", Odds: 1.8})
		wager.Odds *= 1.8
	}
	return wager
}

// CreateTestCombined creates a pending combined bet in city with a temperature and a humidity leg
func CreateTestCombined(userID uuid.UUID, city string, target time.Time) *entities.Settleable {
	slot := entities.TimeSlotEvening
	return &entities.Settleable{
		Kind:       entities.WagerKindCombined,
		UserID:     userID,
		City:       city,
		Stake:      200,
		Odds:       3.0,
		Currency:   entities.CurrencyReal,
		Result:     entities.WagerResultPending,
		TargetDate: target,
		ExpiresAt:  target,
		CreatedAt:  target.Add(-24 * time.Hour),
		Legs: []*entities.Leg{
			{Kind: "temperature", Value: "18-22", Odds: 1.5, TimeSlot: &slot},
			{Kind: "humidity", Value: "50-70", Odds: 2.0},
		},
	}
}
