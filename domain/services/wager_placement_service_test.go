package services

import (
	"context"
	"testing"
	"time"

	"skywager/config"
	"skywager/domain/entities"
	"skywager/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPlacementService(mocks *TestMocks) *WagerPlacementService {
	return NewWagerPlacementService(mocks.WagerRepo, mocks.BalanceRepo, mocks.BalanceHistoryRepo,
		mocks.AccuracyRepo, mocks.EventPublisher, NewOddsValuer(config.DefaultOddsPolicy()))
}

func neutralAccuracy(mocks *TestMocks) {
	mocks.AccuracyRepo.On("GetAccuracyScore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(entities.AccuracyScore{}, nil)
}

func TestWagerPlacementService_Place_Single(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	neutralAccuracy(mocks)
	service := newTestPlacementService(mocks)

	target := TestNow.Add(3 * time.Hour)
	req := PlacementRequest{
		Kind:       entities.WagerKindSingle,
		UserID:     TestUserID,
		Stake:      100,
		TargetDate: target,
		Legs:       []PlacementLeg{{City: "Madrid", Kind: "temperature", Value: "18-22", BaseOdds: 2.5}},
	}

	mocks.WagerRepo.On("Create", ctx, mock.AnythingOfType("*entities.Settleable")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Settleable).ID = TestWagerID
		}).Return(nil).Once()
	mocks.BalanceRepo.On("Adjust", ctx, TestUserID, entities.CurrencyVirtual, int64(-100)).
		Return(int64(500), int64(400), nil).Once()
	mocks.BalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.TransactionType == entities.TransactionTypeStake &&
			h.ChangeAmount == -100 &&
			*h.RelatedID == TestWagerID &&
			*h.RelatedType == entities.RelatedTypeWager
	})).Return(nil).Once()
	mocks.EventPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil).Once()
	mocks.EventPublisher.On("Publish", events.WagerPlacedEvent{
		Kind:     entities.WagerKindSingle,
		WagerID:  TestWagerID,
		UserID:   TestUserID,
		Stake:    100,
		Odds:     2.5,
		Currency: entities.CurrencyVirtual,
	}).Return(nil).Once()

	wager, err := service.Place(ctx, req, TestNow)
	require.NoError(t, err)

	assert.Equal(t, "Madrid", wager.City)
	assert.Equal(t, 2.5, wager.Odds)
	assert.Equal(t, target, wager.ExpiresAt, "expiry defaults to the target date")
	assert.True(t, wager.IsPending())
	require.Len(t, wager.Legs, 1)
	mocks.AssertAllExpectations(t)
}

func TestWagerPlacementService_Place_CombinedUsesProductOfLegOdds(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	neutralAccuracy(mocks)
	mocks.ExpectAnyEvents()
	service := newTestPlacementService(mocks)

	req := PlacementRequest{
		Kind:       entities.WagerKindCombined,
		UserID:     TestUserID,
		City:       "Berlin",
		Stake:      50,
		Currency:   entities.CurrencyReal,
		TargetDate: TestNow.Add(2 * time.Hour),
		Legs: []PlacementLeg{
			{Kind: "temperature", Value: "20", BaseOdds: 1.5, Slots: []string{"evening"}},
			{Kind: "humidity", Value: "50-70", BaseOdds: 2.0},
		},
	}

	mocks.WagerRepo.On("Create", ctx, mock.AnythingOfType("*entities.Settleable")).Return(nil).Once()
	mocks.BalanceRepo.On("Adjust", ctx, TestUserID, entities.CurrencyReal, int64(-50)).
		Return(int64(50), int64(0), nil).Once()
	mocks.BalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil).Once()

	wager, err := service.Place(ctx, req, TestNow)
	require.NoError(t, err)

	// 1.5 × 1.10 slot = 1.65, then × 2.0
	assert.Equal(t, 3.3, wager.Odds)
	for _, leg := range wager.Legs {
		assert.Empty(t, leg.City, "combined legs inherit the bet city")
	}
	require.NotNil(t, wager.Legs[0].TimeSlot)
	assert.Equal(t, "evening", *wager.Legs[0].TimeSlot)
	mocks.AssertAllExpectations(t)
}

func TestWagerPlacementService_Place_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	neutralAccuracy(mocks)
	service := newTestPlacementService(mocks)

	req := PlacementRequest{
		Kind:       entities.WagerKindSingle,
		UserID:     TestUserID,
		Stake:      1000,
		TargetDate: TestNow.Add(time.Hour),
		Legs:       []PlacementLeg{{City: "Madrid", Kind: "rain", Value: "yes", BaseOdds: 1.8}},
	}

	mocks.WagerRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	mocks.BalanceRepo.On("Adjust", ctx, TestUserID, entities.CurrencyVirtual, int64(-1000)).
		Return(int64(0), int64(0), entities.ErrInsufficientBalance).Once()

	_, err := service.Place(ctx, req, TestNow)
	assert.ErrorIs(t, err, entities.ErrInsufficientBalance)
	mocks.EventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
	mocks.AssertAllExpectations(t)
}

func TestWagerPlacementService_Place_UsesAccuracyForVolatility(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	mocks.ExpectAnyEvents()
	service := newTestPlacementService(mocks)

	since := TestNow.AddDate(0, 0, -90)
	mocks.AccuracyRepo.On("GetAccuracyScore", ctx, "oslo", CategoryRain, since).
		Return(entities.AccuracyScore{City: "oslo", Category: CategoryRain, Samples: 10, Hits: 3}, nil).Once()
	mocks.WagerRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	mocks.BalanceRepo.On("Adjust", ctx, TestUserID, entities.CurrencyVirtual, int64(-10)).
		Return(int64(10), int64(0), nil).Once()
	mocks.BalanceHistoryRepo.On("Record", ctx, mock.Anything).Return(nil).Once()

	wager, err := service.Place(ctx, PlacementRequest{
		Kind:       entities.WagerKindSingle,
		UserID:     TestUserID,
		Stake:      10,
		TargetDate: TestNow.Add(time.Hour),
		Legs:       []PlacementLeg{{City: " Oslo", Kind: "Rain", Value: "no", BaseOdds: 2.0}},
	}, TestNow)
	require.NoError(t, err)

	// 30% accuracy against a neutral 50% gives 1 + 0.5 × 0.4 = 1.2
	assert.Equal(t, 2.4, wager.Odds)
	mocks.AssertAllExpectations(t)
}

func TestWagerPlacementService_Place_Validation(t *testing.T) {
	legs := func(n int) []PlacementLeg {
		out := make([]PlacementLeg, n)
		for i := range out {
			out[i] = PlacementLeg{City: "Madrid", Kind: "temperature", Value: "18-22", BaseOdds: 1.5}
		}
		return out
	}
	future := TestNow.Add(time.Hour)

	tests := []struct {
		name string
		req  PlacementRequest
		err  error
	}{
		{"unknown kind", PlacementRequest{Kind: "accumulator", Stake: 10, TargetDate: future, Legs: legs(2)}, ErrInvalidWagerKind},
		{"single with two legs", PlacementRequest{Kind: entities.WagerKindSingle, Stake: 10, TargetDate: future, Legs: legs(2)}, ErrInvalidPlacement},
		{"parlay with one leg", PlacementRequest{Kind: entities.WagerKindParlay, Stake: 10, TargetDate: future, Legs: legs(1)}, ErrInvalidLegCount},
		{"parlay with eleven legs", PlacementRequest{Kind: entities.WagerKindParlay, Stake: 10, TargetDate: future, Legs: legs(11)}, ErrInvalidLegCount},
		{"zero stake", PlacementRequest{Kind: entities.WagerKindSingle, Stake: 0, TargetDate: future, Legs: legs(1)}, ErrInvalidPlacement},
		{"bad currency", PlacementRequest{Kind: entities.WagerKindSingle, Stake: 10, Currency: "gold", TargetDate: future, Legs: legs(1)}, ErrInvalidPlacement},
		{"insurance above 100%", PlacementRequest{Kind: entities.WagerKindSingle, Stake: 10, HasInsurance: true, InsurancePercentage: 1.5, TargetDate: future, Legs: legs(1)}, ErrInvalidPlacement},
		{"target in the past", PlacementRequest{Kind: entities.WagerKindSingle, Stake: 10, TargetDate: TestNow.Add(-time.Hour), Legs: legs(1)}, ErrInvalidPlacement},
		{"combined without city", PlacementRequest{Kind: entities.WagerKindCombined, Stake: 10, TargetDate: future, Legs: legs(2)}, ErrInvalidPlacement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := NewTestMocks()
			_, err := newTestPlacementService(mocks).Place(context.Background(), tt.req, TestNow)
			assert.ErrorIs(t, err, tt.err)
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestWagerPlacementService_Place_RejectsBadPrediction(t *testing.T) {
	mocks := NewTestMocks()
	neutralAccuracy(mocks)

	_, err := newTestPlacementService(mocks).Place(context.Background(), PlacementRequest{
		Kind:       entities.WagerKindSingle,
		UserID:     TestUserID,
		Stake:      10,
		TargetDate: TestNow.Add(time.Hour),
		Legs:       []PlacementLeg{{City: "Madrid", Kind: "temperature", Value: "hot", BaseOdds: 2}},
	}, TestNow)

	assert.ErrorIs(t, err, ErrInvalidPrediction)
	mocks.WagerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
