package application

import (
	"errors"

	"skywager/domain/entities"
	"skywager/domain/services"
)

// ErrInvalidDeposit is returned for a non-positive deposit or an unknown currency
var ErrInvalidDeposit = errors.New("invalid deposit")

// IsClientError reports whether err is a domain rejection rather than an infrastructure failure
func IsClientError(err error) bool {
	for _, target := range []error{
		services.ErrWagerNotFound,
		services.ErrWagerNotPending,
		services.ErrInvalidWagerKind,
		services.ErrCashOutUnavailable,
		services.ErrInvalidPlacement,
		services.ErrInvalidLegCount,
		services.ErrUnknownCategory,
		services.ErrInvalidPrediction,
		services.ErrTimeSlotUnsupported,
		services.ErrUnknownTimeSlot,
		services.ErrBaseOddsOutOfRange,
		entities.ErrInsufficientBalance,
		ErrInvalidDeposit,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
