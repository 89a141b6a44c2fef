package application

import (
	"context"

	"skywager/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and publishes the events buffered during it
	Commit() error

	// Rollback rolls back the transaction and drops buffered events
	Rollback() error

	// Repository getters
	SettleableRepository() interfaces.SettleableRepository
	BalanceRepository() interfaces.BalanceRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	NotificationRepository() interfaces.NotificationRepository
	AccuracyLogRepository() interfaces.AccuracyLogRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
