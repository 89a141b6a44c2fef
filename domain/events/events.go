package events

import (
	"skywager/domain/entities"

	"github.com/google/uuid"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeWagerPlaced    EventType = "wager_placed"
	EventTypeWagerSettled   EventType = "wager_settled"
	EventTypeWagerCashedOut EventType = "wager_cashed_out"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          uuid.UUID                `json:"user_id"`
	Currency        entities.CurrencyKind    `json:"currency"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	ChangeAmount    int64                    `json:"change_amount"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// WagerPlacedEvent is emitted when a new wager is persisted
type WagerPlacedEvent struct {
	Kind     entities.WagerKind    `json:"kind"`
	WagerID  int64                 `json:"wager_id"`
	UserID   uuid.UUID             `json:"user_id"`
	Stake    int64                 `json:"stake"`
	Odds     float64               `json:"odds"`
	Currency entities.CurrencyKind `json:"currency"`
}

func (e WagerPlacedEvent) Type() EventType {
	return EventTypeWagerPlaced
}

// WagerSettledEvent is emitted when a wager leaves pending through settlement
type WagerSettledEvent struct {
	Kind     entities.WagerKind    `json:"kind"`
	WagerID  int64                 `json:"wager_id"`
	UserID   uuid.UUID             `json:"user_id"`
	Result   entities.WagerResult  `json:"result"`
	Payout   int64                 `json:"payout"`
	Currency entities.CurrencyKind `json:"currency"`
}

func (e WagerSettledEvent) Type() EventType {
	return EventTypeWagerSettled
}

// WagerCashedOutEvent is emitted when a user exits a wager early
type WagerCashedOutEvent struct {
	Kind     entities.WagerKind    `json:"kind"`
	WagerID  int64                 `json:"wager_id"`
	UserID   uuid.UUID             `json:"user_id"`
	Amount   int64                 `json:"amount"`
	Currency entities.CurrencyKind `json:"currency"`
}

func (e WagerCashedOutEvent) Type() EventType {
	return EventTypeWagerCashedOut
}
