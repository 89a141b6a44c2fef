package repository

import (
	"context"
	"fmt"

	"skywager/database"
	"skywager/domain/entities"

	"github.com/google/uuid"
)

// NotificationRepository stores user-facing notifications
type NotificationRepository struct {
	q Queryable
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{q: db.Pool}
}

func newNotificationRepositoryWithTx(tx Queryable) *NotificationRepository {
	return &NotificationRepository{q: tx}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notification) error {
	query := `
		INSERT INTO notifications (user_id, kind, title, message, amount, currency, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		n.UserID,
		n.Kind,
		n.Title,
		n.Message,
		n.Amount,
		n.Currency,
		n.RelatedID,
		n.RelatedType,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification for user %s: %w", n.UserID, err)
	}
	return nil
}

// GetByUser returns a user's notifications, newest first
func (r *NotificationRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Notification, error) {
	query := `
		SELECT id, user_id, kind, title, message, amount, currency, related_id, related_type, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	var notifications []*entities.Notification
	for rows.Next() {
		var n entities.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Kind,
			&n.Title,
			&n.Message,
			&n.Amount,
			&n.Currency,
			&n.RelatedID,
			&n.RelatedType,
			&n.CreatedAt,
			&n.ReadAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}
