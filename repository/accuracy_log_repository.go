package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skywager/database"
	"skywager/domain/entities"
)

// AccuracyLogRepository records prediction outcomes and aggregates them into hit rates
type AccuracyLogRepository struct {
	q Queryable
}

// NewAccuracyLogRepository creates a new accuracy log repository
func NewAccuracyLogRepository(db *database.DB) *AccuracyLogRepository {
	return &AccuracyLogRepository{q: db.Pool}
}

func newAccuracyLogRepositoryWithTx(tx Queryable) *AccuracyLogRepository {
	return &AccuracyLogRepository{q: tx}
}

// Record inserts one accuracy log entry
func (r *AccuracyLogRepository) Record(ctx context.Context, entry *entities.AccuracyLog) error {
	query := `
		INSERT INTO prediction_accuracy_logs (city, category, predicted_value, actual_value, hit, related_id, related_type, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::timestamptz, NOW()))
		RETURNING id, observed_at
	`

	var observedAt *time.Time
	if !entry.ObservedAt.IsZero() {
		observedAt = &entry.ObservedAt
	}

	err := r.q.QueryRow(ctx, query,
		entry.City,
		entry.Category,
		entry.PredictedValue,
		entry.ActualValue,
		entry.Hit,
		entry.RelatedID,
		entry.RelatedType,
		observedAt,
	).Scan(&entry.ID, &entry.ObservedAt)
	if err != nil {
		return fmt.Errorf("failed to record accuracy log: %w", err)
	}
	return nil
}

// GetAccuracyScore counts samples and hits for a city and category since a point in time.
// City matching is case-insensitive.
func (r *AccuracyLogRepository) GetAccuracyScore(ctx context.Context, city, category string, since time.Time) (entities.AccuracyScore, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE hit)
		FROM prediction_accuracy_logs
		WHERE lower(city) = $1 AND category = $2 AND observed_at >= $3
	`

	score := entities.AccuracyScore{City: city, Category: category}
	err := r.q.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(city)), category, since).
		Scan(&score.Samples, &score.Hits)
	if err != nil {
		return entities.AccuracyScore{}, fmt.Errorf("failed to get accuracy score for %s/%s: %w", city, category, err)
	}
	return score, nil
}
