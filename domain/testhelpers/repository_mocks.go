package testhelpers

import (
	"context"
	"time"

	"skywager/domain/entities"
	"skywager/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSettleableRepository is a mock implementation of SettleableRepository
type MockSettleableRepository struct {
	mock.Mock
}

func (m *MockSettleableRepository) Create(ctx context.Context, wager *entities.Settleable) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

func (m *MockSettleableRepository) GetByID(ctx context.Context, kind entities.WagerKind, id int64) (*entities.Settleable, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Settleable), args.Error(1)
}

func (m *MockSettleableRepository) GetDue(ctx context.Context, kind entities.WagerKind, now time.Time) ([]*entities.Settleable, error) {
	args := m.Called(ctx, kind, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Settleable), args.Error(1)
}

func (m *MockSettleableRepository) GetPendingByUser(ctx context.Context, kind entities.WagerKind, userID uuid.UUID) ([]*entities.Settleable, error) {
	args := m.Called(ctx, kind, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Settleable), args.Error(1)
}

func (m *MockSettleableRepository) MarkSettled(ctx context.Context, kind entities.WagerKind, id int64, result entities.WagerResult, payout int64, settledAt time.Time) (bool, error) {
	args := m.Called(ctx, kind, id, result, payout, settledAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettleableRepository) MarkCashedOut(ctx context.Context, kind entities.WagerKind, id int64, amount int64, at time.Time) (bool, error) {
	args := m.Called(ctx, kind, id, amount, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettleableRepository) RecordLegResults(ctx context.Context, wager *entities.Settleable) error {
	args := m.Called(ctx, wager)
	return args.Error(0)
}

// MockBalanceRepository is a mock implementation of BalanceRepository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) GetBalance(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind) (int64, error) {
	args := m.Called(ctx, userID, currency)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceRepository) Adjust(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind, delta int64) (int64, int64, error) {
	args := m.Called(ctx, userID, currency, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) GetByRelated(ctx context.Context, relatedType entities.RelatedType, relatedID int64) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, relatedType, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *entities.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Notification), args.Error(1)
}

// MockAccuracyLogRepository is a mock implementation of AccuracyLogRepository
type MockAccuracyLogRepository struct {
	mock.Mock
}

func (m *MockAccuracyLogRepository) Record(ctx context.Context, entry *entities.AccuracyLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAccuracyLogRepository) GetAccuracyScore(ctx context.Context, city, category string, since time.Time) (entities.AccuracyScore, error) {
	args := m.Called(ctx, city, category, since)
	return args.Get(0).(entities.AccuracyScore), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockWeatherProvider is a mock implementation of WeatherProvider
type MockWeatherProvider struct {
	mock.Mock
}

func (m *MockWeatherProvider) Current(ctx context.Context, city string) (*entities.WeatherSnapshot, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WeatherSnapshot), args.Error(1)
}

func (m *MockWeatherProvider) Forecast(ctx context.Context, city string, at time.Time) (*entities.WeatherSnapshot, error) {
	args := m.Called(ctx, city, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WeatherSnapshot), args.Error(1)
}
