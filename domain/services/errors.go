package services

import "errors"

var (
	ErrWagerNotFound       = errors.New("wager not found")
	ErrWagerNotPending     = errors.New("wager is no longer pending")
	ErrInvalidWagerKind    = errors.New("invalid wager kind")
	ErrCashOutUnavailable  = errors.New("cash-out is not available for this wager")
	ErrWeatherUnavailable  = errors.New("weather data unavailable")
	ErrInvalidLegCount     = errors.New("aggregate wagers need between 2 and 10 legs")
	ErrUnknownCategory     = errors.New("unknown prediction category")
	ErrInvalidPrediction   = errors.New("prediction value does not parse")
	ErrTimeSlotUnsupported = errors.New("time slots are not supported for this category")
	ErrUnknownTimeSlot     = errors.New("unknown time slot")
	ErrBaseOddsOutOfRange  = errors.New("base odds out of range")
)
