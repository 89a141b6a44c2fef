package entities

import "errors"

// ErrInsufficientBalance is returned when a debit would overdraw a balance
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrDuplicateLedgerEntry is returned when a wager already has a ledger row of the same type
var ErrDuplicateLedgerEntry = errors.New("ledger entry already recorded")
