package services

import (
	"testing"
	"time"

	"skywager/domain/entities"
	"skywager/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestWagerID = int64(42)
	TestStake   = int64(100)
)

var (
	TestUserID  = uuid.MustParse("7b0c1f62-5f0e-4c1a-9d55-2f7d2f0a1c01")
	TestNow     = time.Date(2026, 7, 14, 18, 0, 0, 0, time.UTC)
	TestCreated = TestNow.Add(-72 * time.Hour)
)

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	WagerRepo          *testhelpers.MockSettleableRepository
	BalanceRepo        *testhelpers.MockBalanceRepository
	BalanceHistoryRepo *testhelpers.MockBalanceHistoryRepository
	NotificationRepo   *testhelpers.MockNotificationRepository
	AccuracyRepo       *testhelpers.MockAccuracyLogRepository
	EventPublisher     *testhelpers.MockEventPublisher
	WeatherProvider    *testhelpers.MockWeatherProvider
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		WagerRepo:          &testhelpers.MockSettleableRepository{},
		BalanceRepo:        &testhelpers.MockBalanceRepository{},
		BalanceHistoryRepo: &testhelpers.MockBalanceHistoryRepository{},
		NotificationRepo:   &testhelpers.MockNotificationRepository{},
		AccuracyRepo:       &testhelpers.MockAccuracyLogRepository{},
		EventPublisher:     &testhelpers.MockEventPublisher{},
		WeatherProvider:    &testhelpers.MockWeatherProvider{},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.WagerRepo.AssertExpectations(t)
	m.BalanceRepo.AssertExpectations(t)
	m.BalanceHistoryRepo.AssertExpectations(t)
	m.NotificationRepo.AssertExpectations(t)
	m.AccuracyRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
	m.WeatherProvider.AssertExpectations(t)
}

// NewSettlementService wires a settlement service to the mocks
func (m *TestMocks) NewSettlementService() *SettlementService {
	return NewSettlementService(m.WagerRepo, m.BalanceRepo, m.BalanceHistoryRepo, m.EventPublisher, NewPredictionEvaluator())
}

// ExpectAnyEvents accepts every published event
func (m *TestMocks) ExpectAnyEvents() {
	m.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
}

// WagerBuilder builds Settleable fixtures
type WagerBuilder struct {
	wager *entities.Settleable
}

// NewSingleWager starts a single wager fixture on one prediction
func NewSingleWager(city, kind, value string, odds float64) *WagerBuilder {
	return &WagerBuilder{wager: &entities.Settleable{
		Kind:       entities.WagerKindSingle,
		ID:         TestWagerID,
		UserID:     TestUserID,
		City:       city,
		Stake:      TestStake,
		Odds:       odds,
		Currency:   entities.CurrencyVirtual,
		Result:     entities.WagerResultPending,
		TargetDate: TestNow.Add(-time.Hour),
		ExpiresAt:  TestNow.Add(time.Hour),
		CreatedAt:  TestCreated,
		Legs: []*entities.Leg{{
			City:   city,
			Kind:   kind,
			Value:  value,
			Odds:   odds,
			Result: entities.WagerResultPending,
		}},
	}}
}

// NewAggregateWager starts a parlay or combined bet fixture with no legs
func NewAggregateWager(kind entities.WagerKind, city string) *WagerBuilder {
	return &WagerBuilder{wager: &entities.Settleable{
		Kind:       kind,
		ID:         TestWagerID,
		UserID:     TestUserID,
		City:       city,
		Stake:      TestStake,
		Odds:       1,
		Currency:   entities.CurrencyVirtual,
		Result:     entities.WagerResultPending,
		TargetDate: TestNow.Add(-time.Hour),
		ExpiresAt:  TestNow.Add(-time.Minute),
		CreatedAt:  TestCreated,
	}}
}

// WithLeg appends a leg and folds its odds into the combined odds
func (b *WagerBuilder) WithLeg(city, kind, value string, odds float64) *WagerBuilder {
	b.wager.Legs = append(b.wager.Legs, &entities.Leg{
		ID:     int64(len(b.wager.Legs) + 1),
		Order:  len(b.wager.Legs),
		City:   city,
		Kind:   kind,
		Value:  value,
		Odds:   odds,
		Result: entities.WagerResultPending,
	})
	legOdds := make([]float64, len(b.wager.Legs))
	for i, leg := range b.wager.Legs {
		legOdds[i] = leg.Odds
	}
	b.wager.Odds = CombinedOdds(legOdds...)
	return b
}

// WithInsurance enables insurance at the given payout fraction
func (b *WagerBuilder) WithInsurance(percentage float64) *WagerBuilder {
	b.wager.HasInsurance = true
	b.wager.InsurancePercentage = percentage
	return b
}

// WithCurrency sets the wager currency
func (b *WagerBuilder) WithCurrency(currency entities.CurrencyKind) *WagerBuilder {
	b.wager.Currency = currency
	return b
}

// WithStake sets the stake
func (b *WagerBuilder) WithStake(stake int64) *WagerBuilder {
	b.wager.Stake = stake
	return b
}

// WithDates sets created, target and expiry timestamps
func (b *WagerBuilder) WithDates(created, target, expires time.Time) *WagerBuilder {
	b.wager.CreatedAt = created
	b.wager.TargetDate = target
	b.wager.ExpiresAt = expires
	return b
}

// Build returns the wager
func (b *WagerBuilder) Build() *entities.Settleable {
	return b.wager
}

// Snapshots keys snapshots by lowercased city, matching the settlement lookup
func Snapshots(snapshots ...*entities.WeatherSnapshot) map[string]*entities.WeatherSnapshot {
	out := make(map[string]*entities.WeatherSnapshot, len(snapshots))
	for _, s := range snapshots {
		out[NormalizeCity(s.City)] = s
	}
	return out
}
