package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"skywager/domain/entities"
	"skywager/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCashOutService(mocks *TestMocks) *CashOutService {
	return NewCashOutService(mocks.WagerRepo, mocks.BalanceRepo, mocks.BalanceHistoryRepo, mocks.EventPublisher, newTestValuer())
}

func TestCashOutService_Execute_Success(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newTestCashOutService(mocks)

	wager := halfwayWager("temperature", "18-22")
	forecasts := Snapshots(&entities.WeatherSnapshot{City: "Madrid", Temperature: 20})

	mocks.WagerRepo.On("MarkCashedOut", ctx, entities.WagerKindSingle, TestWagerID, int64(100), TestNow).
		Return(true, nil).Once()
	mocks.BalanceRepo.On("Adjust", ctx, TestUserID, entities.CurrencyVirtual, int64(100)).
		Return(int64(400), int64(500), nil).Once()
	mocks.BalanceHistoryRepo.On("Record", ctx, mock.MatchedBy(func(h *entities.BalanceHistory) bool {
		return h.TransactionType == entities.TransactionTypeCashOut &&
			h.ChangeAmount == 100 &&
			*h.RelatedID == TestWagerID
	})).Return(nil).Once()
	mocks.EventPublisher.On("Publish", mock.AnythingOfType("events.BalanceChangeEvent")).Return(nil).Once()
	mocks.EventPublisher.On("Publish", events.WagerCashedOutEvent{
		Kind:     entities.WagerKindSingle,
		WagerID:  TestWagerID,
		UserID:   TestUserID,
		Amount:   100,
		Currency: entities.CurrencyVirtual,
	}).Return(nil).Once()

	valuation, err := service.Execute(ctx, wager, forecasts, TestNow)
	require.NoError(t, err)

	assert.Equal(t, int64(100), valuation.Offer)
	assert.True(t, wager.CashedOut)
	assert.Equal(t, entities.WagerResultCashedOut, wager.Result)
	assert.False(t, wager.IsPending())
	mocks.AssertAllExpectations(t)
}

func TestCashOutService_Execute_LostRace(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newTestCashOutService(mocks)

	wager := halfwayWager("temperature", "18-22")
	forecasts := Snapshots(&entities.WeatherSnapshot{City: "Madrid", Temperature: 20})

	mocks.WagerRepo.On("MarkCashedOut", ctx, entities.WagerKindSingle, TestWagerID, int64(100), TestNow).
		Return(false, nil).Once()

	_, err := service.Execute(ctx, wager, forecasts, TestNow)
	assert.ErrorIs(t, err, ErrWagerNotPending)
	mocks.BalanceRepo.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mocks.AssertAllExpectations(t)
}

func TestCashOutService_Execute_Rejections(t *testing.T) {
	ctx := context.Background()
	forecasts := Snapshots(&entities.WeatherSnapshot{City: "Madrid", Temperature: 20})

	t.Run("already settled", func(t *testing.T) {
		mocks := NewTestMocks()
		wager := halfwayWager("temperature", "18-22")
		wager.Result = entities.WagerResultLoss

		_, err := newTestCashOutService(mocks).Execute(ctx, wager, forecasts, TestNow)
		assert.ErrorIs(t, err, ErrWagerNotPending)
		mocks.AssertAllExpectations(t)
	})

	t.Run("past deadline", func(t *testing.T) {
		mocks := NewTestMocks()
		wager := halfwayWager("temperature", "18-22")

		valuation, err := newTestCashOutService(mocks).Execute(ctx, wager, forecasts, wager.DueAt().Add(time.Minute))
		assert.ErrorIs(t, err, ErrCashOutUnavailable)
		require.NotNil(t, valuation)
		assert.False(t, valuation.Available)
		mocks.AssertAllExpectations(t)
	})

	t.Run("hopeless forecast offers nothing", func(t *testing.T) {
		mocks := NewTestMocks()
		wager := halfwayWager("temperature", "18-22")

		_, err := newTestCashOutService(mocks).Execute(ctx, wager,
			Snapshots(&entities.WeatherSnapshot{City: "Madrid", Temperature: 40}), TestNow)
		assert.ErrorIs(t, err, ErrCashOutUnavailable)
		mocks.AssertAllExpectations(t)
	})
}

func TestCashOutService_Execute_CreditFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := newTestCashOutService(mocks)

	wager := halfwayWager("temperature", "18-22")
	forecasts := Snapshots(&entities.WeatherSnapshot{City: "Madrid", Temperature: 20})

	mocks.WagerRepo.On("MarkCashedOut", ctx, entities.WagerKindSingle, TestWagerID, int64(100), TestNow).
		Return(true, nil).Once()
	mocks.BalanceRepo.On("Adjust", ctx, TestUserID, entities.CurrencyVirtual, int64(100)).
		Return(int64(0), int64(0), errors.New("deadlock detected")).Once()

	_, err := service.Execute(ctx, wager, forecasts, TestNow)
	require.Error(t, err)
	assert.True(t, wager.IsPending())
	mocks.AssertAllExpectations(t)
}

func TestCollectForecasts(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()

	slot := "evening"
	target := time.Date(2026, 7, 16, 0, 0, 0, 0, time.UTC)
	wager := NewAggregateWager(entities.WagerKindCombined, "Madrid").
		WithLeg("", "temperature", "18-22", 2.0).
		WithLeg("", "humidity", "40-60", 1.5).
		WithLeg("Oslo", "rain", "no", 1.5).
		WithDates(TestCreated, target, target).
		Build()
	wager.Legs[0].TimeSlot = &slot

	madrid := &entities.WeatherSnapshot{City: "Madrid", Temperature: 21, IsForecast: true}
	mocks.WeatherProvider.On("Forecast", ctx, "Madrid", time.Date(2026, 7, 16, 19, 0, 0, 0, time.UTC)).
		Return(madrid, nil).Once()
	mocks.WeatherProvider.On("Forecast", ctx, "Oslo", target).
		Return(nil, errors.New("city not found")).Once()

	forecasts := CollectForecasts(ctx, mocks.WeatherProvider, wager)

	assert.Len(t, forecasts, 1)
	assert.Same(t, madrid, forecasts["madrid"])
	mocks.AssertAllExpectations(t)
}

func TestCollectForecasts_FailedCityIsFetchedOnce(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()

	wager := NewAggregateWager(entities.WagerKindParlay, "").
		WithLeg("Oslo", "temperature", "10-15", 2.0).
		WithLeg("oslo ", "rain", "no", 1.5).
		WithLeg("Oslo", "wind", "0-20", 1.2).
		WithDates(TestCreated, TestNow, TestNow).
		Build()

	mocks.WeatherProvider.On("Forecast", ctx, mock.Anything, TestNow).
		Return(nil, errors.New("upstream timeout")).Once()

	forecasts := CollectForecasts(ctx, mocks.WeatherProvider, wager)

	assert.Empty(t, forecasts)
	mocks.WeatherProvider.AssertNumberOfCalls(t, "Forecast", 1)
}
