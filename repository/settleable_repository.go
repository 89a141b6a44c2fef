package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skywager/database"
	"skywager/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// wagerTable describes where a wager kind lives. Singles carry their prediction
// inline, aggregates keep legs in a child table.
type wagerTable struct {
	name         string
	cityColumn   string // "city" or a constant expression for kinds without one
	duePredicate string
	legTable     string
	legFK        string
	legCity      string
}

var wagerTables = map[entities.WagerKind]wagerTable{
	entities.WagerKindSingle: {
		name:         "wagers",
		cityColumn:   "city",
		duePredicate: "(target_date <= $1 OR expires_at <= $1)",
	},
	entities.WagerKindParlay: {
		name:         "parlays",
		cityColumn:   "''",
		duePredicate: "expires_at <= $1",
		legTable:     "parlay_legs",
		legFK:        "parlay_id",
		legCity:      "city",
	},
	entities.WagerKindCombined: {
		name:         "combined_bets",
		cityColumn:   "city",
		duePredicate: "target_date <= $1",
		legTable:     "combined_bet_categories",
		legFK:        "combined_bet_id",
		legCity:      "''",
	},
}

const pendingPredicate = "result = 'pending' AND cashed_out = FALSE"

// SettleableRepository implements wager data access for singles, parlays and combined bets
type SettleableRepository struct {
	q Queryable
}

// NewSettleableRepository creates a new wager repository
func NewSettleableRepository(db *database.DB) *SettleableRepository {
	return &SettleableRepository{q: db.Pool}
}

// newSettleableRepositoryWithTx creates a new wager repository bound to a transaction
func newSettleableRepositoryWithTx(tx Queryable) *SettleableRepository {
	return &SettleableRepository{q: tx}
}

func tableFor(kind entities.WagerKind) (wagerTable, error) {
	t, ok := wagerTables[kind]
	if !ok {
		return wagerTable{}, fmt.Errorf("unknown wager kind %q", kind)
	}
	return t, nil
}

func (t wagerTable) selectColumns(kind entities.WagerKind) string {
	cols := fmt.Sprintf(`id, user_id, %s, stake, odds::float8, currency, has_insurance,
			insurance_percentage::float8, result, payout, cashed_out, cash_out_amount,
			target_date, expires_at, created_at, settled_at`, t.cityColumn)
	if kind == entities.WagerKindSingle {
		cols += ", prediction_kind, prediction_value, time_slot"
	}
	return cols
}

func scanSettleable(row pgx.Row, kind entities.WagerKind) (*entities.Settleable, error) {
	w := &entities.Settleable{Kind: kind}
	dest := []any{
		&w.ID,
		&w.UserID,
		&w.City,
		&w.Stake,
		&w.Odds,
		&w.Currency,
		&w.HasInsurance,
		&w.InsurancePercentage,
		&w.Result,
		&w.Payout,
		&w.CashedOut,
		&w.CashOutAmount,
		&w.TargetDate,
		&w.ExpiresAt,
		&w.CreatedAt,
		&w.SettledAt,
	}

	var leg *entities.Leg
	if kind == entities.WagerKindSingle {
		leg = &entities.Leg{}
		dest = append(dest, &leg.Kind, &leg.Value, &leg.TimeSlot)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if leg != nil {
		leg.City = w.City
		leg.Odds = w.Odds
		leg.Result = legResult(w.Result)
		w.Legs = []*entities.Leg{leg}
	}
	return w, nil
}

// legResult maps a wager result onto its synthesized single leg
func legResult(r entities.WagerResult) entities.WagerResult {
	if r == entities.WagerResultCashedOut {
		return entities.WagerResultPending
	}
	return r
}

// Create persists a new wager and its legs. Aggregates insert several rows, so callers
// should run this inside a unit of work.
func (r *SettleableRepository) Create(ctx context.Context, wager *entities.Settleable) error {
	if len(wager.Legs) == 0 {
		return fmt.Errorf("failed to create wager: no legs")
	}

	var createdAt *time.Time
	if !wager.CreatedAt.IsZero() {
		createdAt = &wager.CreatedAt
	}

	switch wager.Kind {
	case entities.WagerKindSingle:
		leg := wager.Legs[0]
		query := `
			INSERT INTO wagers (
				user_id, city, prediction_kind, prediction_value, time_slot, stake, odds,
				currency, has_insurance, insurance_percentage, target_date, expires_at, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13::timestamptz, NOW()))
			RETURNING id, result, created_at
		`
		err := r.q.QueryRow(ctx, query,
			wager.UserID, wager.City, leg.Kind, leg.Value, leg.TimeSlot, wager.Stake, wager.Odds,
			wager.Currency, wager.HasInsurance, wager.InsurancePercentage, wager.TargetDate, wager.ExpiresAt, createdAt,
		).Scan(&wager.ID, &wager.Result, &wager.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create wager: %w", err)
		}
		leg.ID = 0
		leg.Result = entities.WagerResultPending
		return nil

	case entities.WagerKindParlay:
		query := `
			INSERT INTO parlays (
				user_id, stake, odds, currency, has_insurance, insurance_percentage,
				target_date, expires_at, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9::timestamptz, NOW()))
			RETURNING id, result, created_at
		`
		err := r.q.QueryRow(ctx, query,
			wager.UserID, wager.Stake, wager.Odds, wager.Currency, wager.HasInsurance,
			wager.InsurancePercentage, wager.TargetDate, wager.ExpiresAt, createdAt,
		).Scan(&wager.ID, &wager.Result, &wager.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create parlay: %w", err)
		}

	case entities.WagerKindCombined:
		query := `
			INSERT INTO combined_bets (
				user_id, city, stake, odds, currency, has_insurance, insurance_percentage,
				target_date, expires_at, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10::timestamptz, NOW()))
			RETURNING id, result, created_at
		`
		err := r.q.QueryRow(ctx, query,
			wager.UserID, wager.City, wager.Stake, wager.Odds, wager.Currency, wager.HasInsurance,
			wager.InsurancePercentage, wager.TargetDate, wager.ExpiresAt, createdAt,
		).Scan(&wager.ID, &wager.Result, &wager.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create combined bet: %w", err)
		}

	default:
		return fmt.Errorf("unknown wager kind %q", wager.Kind)
	}

	return r.createLegs(ctx, wager)
}

func (r *SettleableRepository) createLegs(ctx context.Context, wager *entities.Settleable) error {
	for i, leg := range wager.Legs {
		leg.Order = i
		leg.Result = entities.WagerResultPending

		var err error
		if wager.Kind == entities.WagerKindParlay {
			err = r.q.QueryRow(ctx, `
				INSERT INTO parlay_legs (parlay_id, leg_order, city, prediction_kind, prediction_value, time_slot, odds)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id
			`, wager.ID, leg.Order, leg.City, leg.Kind, leg.Value, leg.TimeSlot, leg.Odds).Scan(&leg.ID)
		} else {
			err = r.q.QueryRow(ctx, `
				INSERT INTO combined_bet_categories (combined_bet_id, leg_order, prediction_kind, prediction_value, time_slot, odds)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, wager.ID, leg.Order, leg.Kind, leg.Value, leg.TimeSlot, leg.Odds).Scan(&leg.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to create leg %d: %w", i+1, err)
		}
	}
	return nil
}

// GetByID returns a wager with its legs, or nil if it does not exist
func (r *SettleableRepository) GetByID(ctx context.Context, kind entities.WagerKind, id int64) (*entities.Settleable, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.selectColumns(kind), t.name)
	wager, err := scanSettleable(r.q.QueryRow(ctx, query, id), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by ID %d: %w", kind, id, err)
	}

	if err := r.attachLegs(ctx, t, []*entities.Settleable{wager}); err != nil {
		return nil, err
	}
	return wager, nil
}

// GetDue returns pending wagers of a kind whose settlement deadline has passed
func (r *SettleableRepository) GetDue(ctx context.Context, kind entities.WagerKind, now time.Time) ([]*entities.Settleable, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s AND %s ORDER BY id`,
		t.selectColumns(kind), t.name, pendingPredicate, t.duePredicate)
	return r.list(ctx, t, kind, query, now)
}

// GetPendingByUser returns a user's pending wagers of a kind, oldest first
func (r *SettleableRepository) GetPendingByUser(ctx context.Context, kind entities.WagerKind, userID uuid.UUID) ([]*entities.Settleable, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 AND %s ORDER BY created_at, id`,
		t.selectColumns(kind), t.name, pendingPredicate)
	return r.list(ctx, t, kind, query, userID)
}

func (r *SettleableRepository) list(ctx context.Context, t wagerTable, kind entities.WagerKind, query string, args ...any) ([]*entities.Settleable, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	defer rows.Close()

	var wagers []*entities.Settleable
	for rows.Next() {
		wager, err := scanSettleable(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", kind, err)
		}
		wagers = append(wagers, wager)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", t.name, err)
	}

	if err := r.attachLegs(ctx, t, wagers); err != nil {
		return nil, err
	}
	return wagers, nil
}

// attachLegs loads legs for aggregate wagers in one query
func (r *SettleableRepository) attachLegs(ctx context.Context, t wagerTable, wagers []*entities.Settleable) error {
	if t.legTable == "" || len(wagers) == 0 {
		return nil
	}

	byID := make(map[int64]*entities.Settleable, len(wagers))
	ids := make([]int64, len(wagers))
	for i, w := range wagers {
		byID[w.ID] = w
		ids[i] = w.ID
	}

	query := fmt.Sprintf(`
		SELECT id, %[2]s, leg_order, %[3]s, prediction_kind, prediction_value, time_slot, odds::float8, result
		FROM %[1]s
		WHERE %[2]s = ANY($1)
		ORDER BY %[2]s, leg_order
	`, t.legTable, t.legFK, t.legCity)

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", t.legTable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg entities.Leg
		var ownerID int64
		if err := rows.Scan(&leg.ID, &ownerID, &leg.Order, &leg.City, &leg.Kind, &leg.Value, &leg.TimeSlot, &leg.Odds, &leg.Result); err != nil {
			return fmt.Errorf("failed to scan leg: %w", err)
		}
		if owner, ok := byID[ownerID]; ok {
			owner.Legs = append(owner.Legs, &leg)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating legs: %w", err)
	}
	return nil
}

// MarkSettled moves a pending wager to win or loss.
// Returns false without error when the wager had already left pending.
func (r *SettleableRepository) MarkSettled(ctx context.Context, kind entities.WagerKind, id int64, result entities.WagerResult, payout int64, settledAt time.Time) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET result = $2, payout = $3, settled_at = $4
		WHERE id = $1 AND %s
	`, t.name, pendingPredicate)

	tag, err := r.q.Exec(ctx, query, id, result, payout, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s %d settled: %w", kind, id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCashedOut moves a pending wager to cashed_out.
// Returns false without error when the wager had already left pending.
func (r *SettleableRepository) MarkCashedOut(ctx context.Context, kind entities.WagerKind, id int64, amount int64, at time.Time) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET result = 'cashed_out', cashed_out = TRUE, cash_out_amount = $2, settled_at = $3
		WHERE id = $1 AND %s
	`, t.name, pendingPredicate)

	tag, err := r.q.Exec(ctx, query, id, amount, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s %d cashed out: %w", kind, id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordLegResults stores every leg's individual result
func (r *SettleableRepository) RecordLegResults(ctx context.Context, wager *entities.Settleable) error {
	t, err := tableFor(wager.Kind)
	if err != nil {
		return err
	}
	if t.legTable == "" {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET result = $2 WHERE id = $1 AND %s = $3`, t.legTable, t.legFK)
	for _, leg := range wager.Legs {
		tag, err := r.q.Exec(ctx, query, leg.ID, leg.Result, wager.ID)
		if err != nil {
			return fmt.Errorf("failed to record result for leg %d: %w", leg.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("leg %d not found on %s %d", leg.ID, wager.Kind, wager.ID)
		}
	}
	return nil
}
