package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"skywager/domain/entities"
	"skywager/domain/events"
	"skywager/domain/services"
	"skywager/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func observed(city string, temperature, windSpeed float64, conditions ...string) *entities.WeatherSnapshot {
	return &entities.WeatherSnapshot{
		City:        city,
		Temperature: temperature,
		WindSpeed:   windSpeed,
		Conditions:  conditions,
		ObservedAt:  services.TestNow.Add(-10 * time.Minute),
	}
}

func newTestRunner(store *memoryStore, weather *testhelpers.MockWeatherProvider) *SettlementRunner {
	runner := NewSettlementRunner(&memoryUnitOfWorkFactory{store: store}, weather, 4)
	runner.now = func() time.Time { return services.TestNow }
	return runner
}

func TestSettlementRunner_Run(t *testing.T) {
	store := newMemoryStore()
	weather := &testhelpers.MockWeatherProvider{}

	single := store.seed(services.NewSingleWager("Madrid", "temperature", "18-22", 2.5).Build())
	lost := store.seed(services.NewAggregateWager(entities.WagerKindParlay, "").
		WithLeg("London", "rain", "yes", 1.8).
		WithLeg("Paris", "temperature", "10-12", 2.0).
		Build())
	combined := store.seed(services.NewAggregateWager(entities.WagerKindCombined, "Madrid").
		WithLeg("", "temperature", "18-22", 2.0).
		WithLeg("", "wind", "0-20", 1.5).
		Build())
	deferred := store.seed(services.NewSingleWager("Atlantis", "rain", "yes", 1.9).Build())
	notDue := store.seed(services.NewSingleWager("Oslo", "rain", "no", 1.9).
		WithDates(services.TestCreated, services.TestNow.Add(24*time.Hour), services.TestNow.Add(24*time.Hour)).
		Build())

	weather.On("Current", mock.Anything, "Madrid").Return(observed("Madrid", 20.2, 3, "Clear", "clear sky"), nil).Once()
	weather.On("Current", mock.Anything, "London").Return(observed("London", 14, 6, "Rain", "light rain"), nil).Once()
	weather.On("Current", mock.Anything, "Paris").Return(observed("Paris", 25, 2, "Clear"), nil).Once()
	weather.On("Current", mock.Anything, "Atlantis").Return(nil, errors.New("city not found")).Once()

	summary, err := newTestRunner(store, weather).Run(context.Background())
	require.NoError(t, err)
	weather.AssertExpectations(t)

	assert.Equal(t, entities.SettlementSummary{Singles: 1, Parlays: 1, Combined: 1, Skipped: 1}, summary)

	assert.Equal(t, entities.WagerResultWin, store.wager(entities.WagerKindSingle, single.ID).Result)
	assert.Equal(t, int64(250), store.wager(entities.WagerKindSingle, single.ID).Payout)

	savedParlay := store.wager(entities.WagerKindParlay, lost.ID)
	assert.Equal(t, entities.WagerResultLoss, savedParlay.Result)
	assert.Equal(t, entities.WagerResultWin, savedParlay.Legs[0].Result)
	assert.Equal(t, entities.WagerResultLoss, savedParlay.Legs[1].Result)

	assert.Equal(t, int64(300), store.wager(entities.WagerKindCombined, combined.ID).Payout)
	assert.Equal(t, entities.WagerResultPending, store.wager(entities.WagerKindSingle, deferred.ID).Result)
	assert.Equal(t, entities.WagerResultPending, store.wager(entities.WagerKindSingle, notDue.ID).Result)

	assert.Equal(t, int64(550), store.balance(services.TestUserID, entities.CurrencyVirtual))
	assert.Len(t, store.eventsOfType(events.EventTypeWagerSettled), 3)
	assert.Len(t, store.eventsOfType(events.EventTypeBalanceChange), 2)

	// One notification per settled wager, accuracy only for temperature and rain legs
	assert.Len(t, store.notifications, 3)
	require.Len(t, store.accuracy, 4)
	for _, entry := range store.accuracy {
		assert.Contains(t, []string{"temperature", "rain"}, entry.Category)
		assert.NotNil(t, entry.RelatedID)
	}
}

func TestSettlementRunner_RecordsAccuracyForRainAliases(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		value    string
		category string
	}{
		{"rain", "rain", "yes", services.CategoryRain},
		{"rainfall", "rainfall", "0-5", services.CategoryRainfall},
		{"precipitation", "precipitation", "no", services.CategoryRainfall},
		{"wind is not tracked", "wind", "0-20", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			weather := &testhelpers.MockWeatherProvider{}
			store.seed(services.NewSingleWager("Madrid", tt.kind, tt.value, 2.0).Build())

			snapshot := observed("Madrid", 15, 2, "Rain")
			snapshot.Precipitation = 2.5
			weather.On("Current", mock.Anything, "Madrid").Return(snapshot, nil).Once()

			summary, err := newTestRunner(store, weather).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Singles)

			if tt.category == "" {
				assert.Empty(t, store.accuracy)
				return
			}
			require.Len(t, store.accuracy, 1)
			assert.Equal(t, tt.category, store.accuracy[0].Category)
			assert.InDelta(t, 2.5, store.accuracy[0].ActualValue, 1e-9)
		})
	}
}

func TestSettlementRunner_SecondRunLeavesSettledWagersAlone(t *testing.T) {
	store := newMemoryStore()
	weather := &testhelpers.MockWeatherProvider{}
	store.seed(services.NewSingleWager("Madrid", "rain", "yes", 2.0).Build())

	// Each run has its own cache, so the city is fetched once per run
	weather.On("Current", mock.Anything, "Madrid").Return(observed("Madrid", 15, 2, "Rain"), nil).Once()

	runner := newTestRunner(store, weather)
	first, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Resolved())

	second, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Resolved())
	assert.Equal(t, int64(200), store.balance(services.TestUserID, entities.CurrencyVirtual))
	weather.AssertExpectations(t)
}

func TestSettlementRunner_LedgerFailureRollsBack(t *testing.T) {
	store := newMemoryStore()
	weather := &testhelpers.MockWeatherProvider{}
	wager := store.seed(services.NewSingleWager("Madrid", "rain", "yes", 2.0).Build())
	store.failNextLedger = errors.New("disk full")

	weather.On("Current", mock.Anything, "Madrid").Return(observed("Madrid", 15, 2, "Rain"), nil).Once()

	summary, err := newTestRunner(store, weather).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, entities.SettlementSummary{Failed: 1}, summary)
	assert.Equal(t, entities.WagerResultPending, store.wager(entities.WagerKindSingle, wager.ID).Result)
	assert.Zero(t, store.balance(services.TestUserID, entities.CurrencyVirtual))
	assert.Empty(t, store.eventsOfType(events.EventTypeWagerSettled))
	assert.Empty(t, store.notifications)
}

func TestSettlementRunner_InsuredLossPaysInsurance(t *testing.T) {
	store := newMemoryStore()
	weather := &testhelpers.MockWeatherProvider{}
	store.seed(services.NewSingleWager("Madrid", "rain", "yes", 2.0).WithInsurance(0.5).Build())

	weather.On("Current", mock.Anything, "Madrid").Return(observed("Madrid", 28, 2, "Clear"), nil).Once()

	summary, err := newTestRunner(store, weather).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Singles)
	assert.Equal(t, int64(50), store.balance(services.TestUserID, entities.CurrencyVirtual))
	require.Len(t, store.notifications, 1)
	assert.Equal(t, entities.NotificationKindInsurancePaid, store.notifications[0].Kind)
}
