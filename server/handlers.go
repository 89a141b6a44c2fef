package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"skywager/domain/entities"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.DB.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unhealthy", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "skywager",
	})
}

// handleRunSettlement runs one settlement pass synchronously and returns its counts
func (s *Server) handleRunSettlement(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Settlement.Run(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "settlement run failed", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !s.decode(w, r, &req) {
		return
	}

	quote, err := s.deps.Placement.Quote(r.Context(), req.City, req.TargetDate, toPlacementLegs(req.Legs), req.At)
	if err != nil {
		respondDomainError(w, "failed to quote odds", err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (s *Server) handlePlaceWager(w http.ResponseWriter, r *http.Request) {
	var req PlaceWagerRequest
	if !s.decode(w, r, &req) {
		return
	}

	wager, err := s.deps.Placement.Place(r.Context(), req.toPlacementRequest())
	if err != nil {
		respondDomainError(w, "failed to place wager", err)
		return
	}
	respondJSON(w, http.StatusCreated, toWagerResponse(wager))
}

func (s *Server) handleCashOutOffer(w http.ResponseWriter, r *http.Request) {
	kind, wagerID, ok := wagerPathParams(w, r)
	if !ok {
		return
	}

	offer, err := s.deps.CashOut.Offer(r.Context(), kind, wagerID)
	if err != nil {
		respondDomainError(w, "failed to value cash-out", err)
		return
	}
	respondJSON(w, http.StatusOK, offer)
}

func (s *Server) handleCashOutExecute(w http.ResponseWriter, r *http.Request) {
	kind, wagerID, ok := wagerPathParams(w, r)
	if !ok {
		return
	}
	var req CashOutRequest
	if !s.decode(w, r, &req) {
		return
	}

	valuation, err := s.deps.CashOut.Execute(r.Context(), kind, wagerID, uuid.MustParse(req.UserID))
	if err != nil {
		respondDomainError(w, "failed to cash out", err)
		return
	}
	respondJSON(w, http.StatusOK, valuation)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := userPathParam(w, r)
	if !ok {
		return
	}

	balances, err := s.deps.Accounts.Balances(r.Context(), userID)
	if err != nil {
		respondDomainError(w, "failed to load balances", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"balances": balances,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userPathParam(w, r)
	if !ok {
		return
	}

	history, err := s.deps.Accounts.History(r.Context(), userID, parseIntParam(r, "limit", 0))
	if err != nil {
		respondDomainError(w, "failed to load history", err)
		return
	}

	entries := make([]LedgerEntryResponse, len(history))
	for i, h := range history {
		entries[i] = toLedgerEntryResponse(h)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := userPathParam(w, r)
	if !ok {
		return
	}

	notifications, err := s.deps.Accounts.Notifications(r.Context(), userID, parseIntParam(r, "limit", 0))
	if err != nil {
		respondDomainError(w, "failed to load notifications", err)
		return
	}

	out := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		out[i] = toNotificationResponse(n)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": out,
		"count":         len(out),
	})
}

func (s *Server) handlePendingWagers(w http.ResponseWriter, r *http.Request) {
	userID, ok := userPathParam(w, r)
	if !ok {
		return
	}

	wagers, err := s.deps.Accounts.PendingWagers(r.Context(), userID)
	if err != nil {
		respondDomainError(w, "failed to load wagers", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"wagers": toWagerResponses(wagers),
		"count":  len(wagers),
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userPathParam(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if !s.decode(w, r, &req) {
		return
	}

	entry, err := s.deps.Accounts.Deposit(r.Context(), userID, entities.CurrencyKind(req.Currency), req.Amount)
	if err != nil {
		respondDomainError(w, "failed to deposit", err)
		return
	}
	respondJSON(w, http.StatusCreated, toLedgerEntryResponse(entry))
}

// decode reads and validates a JSON body, writing a 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), err)
		return false
	}
	return true
}

func wagerPathParams(w http.ResponseWriter, r *http.Request) (entities.WagerKind, int64, bool) {
	kind := entities.WagerKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		respondError(w, http.StatusBadRequest, "unknown wager kind", nil)
		return "", 0, false
	}
	wagerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || wagerID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid wager id", err)
		return "", 0, false
	}
	return kind, wagerID, true
}

func userPathParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id", err)
		return uuid.Nil, false
	}
	return userID, true
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
