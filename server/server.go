package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"skywager/application"
	"skywager/domain/entities"
	"skywager/domain/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Pinger reports database connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// Placement quotes and places wagers
type Placement interface {
	Quote(ctx context.Context, city string, targetDate time.Time, legs []services.PlacementLeg, at time.Time) (*services.Quote, error)
	Place(ctx context.Context, req services.PlacementRequest) (*entities.Settleable, error)
}

// CashOut offers and executes early settlement
type CashOut interface {
	Offer(ctx context.Context, kind entities.WagerKind, wagerID int64) (*entities.Valuation, error)
	Execute(ctx context.Context, kind entities.WagerKind, wagerID int64, userID uuid.UUID) (*entities.Valuation, error)
}

// Accounts serves balances, ledger history, notifications and funding
type Accounts interface {
	Balances(ctx context.Context, userID uuid.UUID) (map[entities.CurrencyKind]int64, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.BalanceHistory, error)
	Notifications(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Notification, error)
	PendingWagers(ctx context.Context, userID uuid.UUID) ([]*entities.Settleable, error)
	Deposit(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind, amount int64) (*entities.BalanceHistory, error)
}

// Dependencies groups everything the HTTP layer calls into
type Dependencies struct {
	DB         Pinger
	Settlement application.SettlementTrigger
	Placement  Placement
	CashOut    CashOut
	Accounts   Accounts
}

// Server is the HTTP API
type Server struct {
	deps     Dependencies
	validate *validator.Validate
	router   chi.Router
}

// New creates the server and registers its routes
func New(deps Dependencies, corsOrigins []string) *Server {
	s := &Server{
		deps:     deps,
		validate: validator.New(),
	}
	s.router = s.routes(corsOrigins)
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(corsOrigins []string) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/settlements/run", s.handleRunSettlement)
		r.Post("/odds/quote", s.handleQuote)

		r.Post("/wagers", s.handlePlaceWager)
		r.Get("/wagers/{kind}/{id}/cash-out", s.handleCashOutOffer)
		r.Post("/wagers/{kind}/{id}/cash-out", s.handleCashOutExecute)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/balances", s.handleBalances)
			r.Get("/history", s.handleHistory)
			r.Get("/notifications", s.handleNotifications)
			r.Get("/wagers", s.handlePendingWagers)
			r.Post("/deposits", s.handleDeposit)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}

// requestLogger logs one line per request with logrus
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start),
			"requestID": chimiddleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}
