package interfaces

import (
	"context"
	"time"

	"skywager/domain/entities"
	"skywager/domain/events"

	"github.com/google/uuid"
)

// SettleableRepository defines data access for wagers of every kind
type SettleableRepository interface {
	// Create persists a new pending wager and its legs, filling in IDs and timestamps
	Create(ctx context.Context, wager *entities.Settleable) error

	// GetByID returns the wager with its legs, or nil if it does not exist
	GetByID(ctx context.Context, kind entities.WagerKind, id int64) (*entities.Settleable, error)

	// GetDue returns pending, not cashed out wagers of the given kind whose deadline has passed
	GetDue(ctx context.Context, kind entities.WagerKind, now time.Time) ([]*entities.Settleable, error)

	// GetPendingByUser returns a user's pending wagers of the given kind
	GetPendingByUser(ctx context.Context, kind entities.WagerKind, userID uuid.UUID) ([]*entities.Settleable, error)

	// MarkSettled moves a wager from pending to win/loss.
	// Returns false if the wager was no longer pending.
	MarkSettled(ctx context.Context, kind entities.WagerKind, id int64, result entities.WagerResult, payout int64, settledAt time.Time) (bool, error)

	// MarkCashedOut moves a wager from pending to cashed_out.
	// Returns false if the wager was no longer pending.
	MarkCashedOut(ctx context.Context, kind entities.WagerKind, id int64, amount int64, at time.Time) (bool, error)

	// RecordLegResults stores each leg's individual result; a no-op for singles
	RecordLegResults(ctx context.Context, wager *entities.Settleable) error
}

// BalanceRepository defines data access for per-currency user balances
type BalanceRepository interface {
	// GetBalance returns the balance, zero if the user has no ledger for the currency
	GetBalance(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind) (int64, error)

	// Adjust atomically applies delta and returns the balances before and after.
	// A debit that would overdraw the balance returns ErrInsufficientBalance.
	Adjust(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind, delta int64) (before int64, after int64, err error)
}

// BalanceHistoryRepository defines the interface for balance history data access
type BalanceHistoryRepository interface {
	Record(ctx context.Context, history *entities.BalanceHistory) error
	GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.BalanceHistory, error)
	GetByRelated(ctx context.Context, relatedType entities.RelatedType, relatedID int64) ([]*entities.BalanceHistory, error)
}

// NotificationRepository defines the interface for stored user notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *entities.Notification) error
	GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Notification, error)
}

// AccuracyLogRepository defines the interface for prediction accuracy tracking
type AccuracyLogRepository interface {
	Record(ctx context.Context, entry *entities.AccuracyLog) error
	GetAccuracyScore(ctx context.Context, city, category string, since time.Time) (entities.AccuracyScore, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction commits
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}

// WeatherProvider retrieves observations and forecasts for a city
type WeatherProvider interface {
	Current(ctx context.Context, city string) (*entities.WeatherSnapshot, error)
	Forecast(ctx context.Context, city string, at time.Time) (*entities.WeatherSnapshot, error)
}
