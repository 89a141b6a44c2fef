package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"skywager/application"
	"skywager/domain/entities"
	"skywager/domain/services"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// LegResponse is a stored leg
type LegResponse struct {
	Order    int                  `json:"order"`
	City     string               `json:"city"`
	Kind     string               `json:"kind"`
	Value    string               `json:"value"`
	TimeSlot *string              `json:"time_slot,omitempty"`
	Odds     float64              `json:"odds"`
	Result   entities.WagerResult `json:"result"`
}

// WagerResponse is a stored wager of any kind
type WagerResponse struct {
	Kind                entities.WagerKind    `json:"kind"`
	ID                  int64                 `json:"id"`
	UserID              uuid.UUID             `json:"user_id"`
	City                string                `json:"city,omitempty"`
	Stake               int64                 `json:"stake"`
	Odds                float64               `json:"odds"`
	PotentialWin        int64                 `json:"potential_win"`
	Currency            entities.CurrencyKind `json:"currency"`
	HasInsurance        bool                  `json:"has_insurance"`
	InsurancePercentage float64               `json:"insurance_percentage,omitempty"`
	Result              entities.WagerResult  `json:"result"`
	Payout              int64                 `json:"payout"`
	CashOutAmount       int64                 `json:"cash_out_amount,omitempty"`
	TargetDate          time.Time             `json:"target_date"`
	ExpiresAt           time.Time             `json:"expires_at"`
	CreatedAt           time.Time             `json:"created_at"`
	SettledAt           *time.Time            `json:"settled_at,omitempty"`
	Legs                []LegResponse         `json:"legs"`
}

// LedgerEntryResponse is one balance_history row
type LedgerEntryResponse struct {
	ID              int64                    `json:"id"`
	Currency        entities.CurrencyKind    `json:"currency"`
	BalanceBefore   int64                    `json:"balance_before"`
	BalanceAfter    int64                    `json:"balance_after"`
	ChangeAmount    int64                    `json:"change_amount"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	Metadata        map[string]any           `json:"metadata,omitempty"`
	RelatedID       *int64                   `json:"related_id,omitempty"`
	RelatedType     *entities.RelatedType    `json:"related_type,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// NotificationResponse is a stored notification
type NotificationResponse struct {
	ID          int64                     `json:"id"`
	Kind        entities.NotificationKind `json:"kind"`
	Title       string                    `json:"title"`
	Message     string                    `json:"message"`
	Amount      int64                     `json:"amount"`
	Currency    *entities.CurrencyKind    `json:"currency,omitempty"`
	RelatedID   *int64                    `json:"related_id,omitempty"`
	RelatedType *entities.RelatedType     `json:"related_type,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	ReadAt      *time.Time                `json:"read_at,omitempty"`
}

func toWagerResponse(w *entities.Settleable) WagerResponse {
	resp := WagerResponse{
		Kind:                w.Kind,
		ID:                  w.ID,
		UserID:              w.UserID,
		City:                w.City,
		Stake:               w.Stake,
		Odds:                w.Odds,
		PotentialWin:        services.WinPayout(w.Stake, w.Odds),
		Currency:            w.Currency,
		HasInsurance:        w.HasInsurance,
		InsurancePercentage: w.InsurancePercentage,
		Result:              w.Result,
		Payout:              w.Payout,
		CashOutAmount:       w.CashOutAmount,
		TargetDate:          w.TargetDate,
		ExpiresAt:           w.ExpiresAt,
		CreatedAt:           w.CreatedAt,
		SettledAt:           w.SettledAt,
		Legs:                make([]LegResponse, len(w.Legs)),
	}
	for i, leg := range w.Legs {
		resp.Legs[i] = LegResponse{
			Order:    leg.Order,
			City:     w.LegCity(leg),
			Kind:     leg.Kind,
			Value:    leg.Value,
			TimeSlot: leg.TimeSlot,
			Odds:     leg.Odds,
			Result:   leg.Result,
		}
	}
	return resp
}

func toWagerResponses(wagers []*entities.Settleable) []WagerResponse {
	out := make([]WagerResponse, len(wagers))
	for i, w := range wagers {
		out[i] = toWagerResponse(w)
	}
	return out
}

func toLedgerEntryResponse(h *entities.BalanceHistory) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              h.ID,
		Currency:        h.Currency,
		BalanceBefore:   h.BalanceBefore,
		BalanceAfter:    h.BalanceAfter,
		ChangeAmount:    h.ChangeAmount,
		TransactionType: h.TransactionType,
		Metadata:        h.TransactionMetadata,
		RelatedID:       h.RelatedID,
		RelatedType:     h.RelatedType,
		CreatedAt:       h.CreatedAt,
	}
}

func toNotificationResponse(n *entities.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Kind:        n.Kind,
		Title:       n.Title,
		Message:     n.Message,
		Amount:      n.Amount,
		Currency:    n.Currency,
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
		CreatedAt:   n.CreatedAt,
		ReadAt:      n.ReadAt,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		entry := log.WithError(err).WithField("status", status)
		if status >= http.StatusInternalServerError {
			entry.Error(message)
		} else {
			entry.Debug(message)
		}
	}

	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondDomainError maps application and domain errors onto status codes
func respondDomainError(w http.ResponseWriter, message string, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, services.ErrWagerNotFound):
		respondError(w, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, services.ErrWagerNotPending):
		respondError(w, http.StatusConflict, err.Error(), err)
	case errors.Is(err, entities.ErrInsufficientBalance),
		errors.Is(err, services.ErrCashOutUnavailable):
		respondError(w, http.StatusUnprocessableEntity, err.Error(), err)
	case errors.As(err, &validationErrs), application.IsClientError(err):
		respondError(w, http.StatusBadRequest, err.Error(), err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}
