package entities

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind categorizes user-facing notifications
type NotificationKind string

const (
	NotificationKindWagerWon       NotificationKind = "wager_won"
	NotificationKindWagerLost      NotificationKind = "wager_lost"
	NotificationKindInsurancePaid  NotificationKind = "insurance_paid"
	NotificationKindWagerCashedOut NotificationKind = "wager_cashed_out"
)

// Notification is a stored message for a user; delivery is handled elsewhere
type Notification struct {
	ID          int64            `db:"id"`
	UserID      uuid.UUID        `db:"user_id"`
	Kind        NotificationKind `db:"kind"`
	Title       string           `db:"title"`
	Message     string           `db:"message"`
	Amount      int64            `db:"amount"`
	Currency    *CurrencyKind    `db:"currency"`
	RelatedID   *int64           `db:"related_id"`
	RelatedType *RelatedType     `db:"related_type"`
	CreatedAt   time.Time        `db:"created_at"`
	ReadAt      *time.Time       `db:"read_at"`
}
