package sqlstore

import (
	"context"
	"fmt"

	"sprintboard/internal/models"
)

const notificationColumns = `id, user_id, message, type, is_read, created_at`

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	id, err := s.insert(ctx, `INSERT INTO notifications(user_id, message, type, is_read, created_at) VALUES(?, ?, ?, ?, ?)`,
		n.UserID, n.Message, string(n.Type), n.Read, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID = id
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id int64) (models.Notification, error) {
	var n models.Notification
	err := s.get(ctx, &n, "Notification", id, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	return n, err
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	out := []models.Notification{}
	if err := s.selectAll(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	return s.execOne(ctx, "mark notification", "Notification", id, `UPDATE notifications SET is_read = ? WHERE id = ?`, true, id)
}
