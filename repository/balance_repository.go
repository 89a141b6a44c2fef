package repository

import (
	"context"
	"errors"
	"fmt"

	"skywager/database"
	"skywager/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// checkViolation is the SQLSTATE for a failed CHECK constraint
const checkViolation = "23514"

// BalanceRepository implements per-currency balance data access
type BalanceRepository struct {
	q Queryable
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB) *BalanceRepository {
	return &BalanceRepository{q: db.Pool}
}

// newBalanceRepositoryWithTx creates a new balance repository bound to a transaction
func newBalanceRepositoryWithTx(tx Queryable) *BalanceRepository {
	return &BalanceRepository{q: tx}
}

// GetBalance returns the balance for a currency, zero when the user has none yet
func (r *BalanceRepository) GetBalance(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind) (int64, error) {
	query := `SELECT balance FROM user_balances WHERE user_id = $1 AND currency = $2`

	var balance int64
	err := r.q.QueryRow(ctx, query, userID, currency).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Adjust applies delta under a row lock and returns the balances before and after.
// The CHECK (balance >= 0) constraint turns an overdraft into ErrInsufficientBalance.
func (r *BalanceRepository) Adjust(ctx context.Context, userID uuid.UUID, currency entities.CurrencyKind, delta int64) (int64, int64, error) {
	ensure := `
		INSERT INTO user_balances (user_id, currency, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, currency) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, ensure, userID, currency); err != nil {
		return 0, 0, fmt.Errorf("failed to create balance row: %w", err)
	}

	update := `
		UPDATE user_balances
		SET balance = balance + $3, updated_at = NOW()
		WHERE user_id = $1 AND currency = $2
		RETURNING balance
	`
	var after int64
	err := r.q.QueryRow(ctx, update, userID, currency, delta).Scan(&after)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
			return 0, 0, entities.ErrInsufficientBalance
		}
		return 0, 0, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return after - delta, after, nil
}
