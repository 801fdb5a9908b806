// Package notify stores user notifications and serves them back.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sprintboard/internal/apperr"
	"sprintboard/internal/clock"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

type Service struct {
	repo   storage.Repository
	clock  clock.Clock
	logger *slog.Logger
}

func NewService(repo storage.Repository, clk clock.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock.OrSystem(clk), logger: logger}
}

// Notify persists an unread notification for the user.
func (s *Service) Notify(ctx context.Context, userID int64, message string, typ models.NotificationType) error {
	if userID <= 0 {
		return apperr.Validationf("notification recipient is required")
	}
	if strings.TrimSpace(message) == "" {
		return apperr.Validationf("notification message is required")
	}
	if !typ.Valid() {
		return apperr.Validationf("unknown notification type %q", typ)
	}

	n := models.Notification{
		UserID:    userID,
		Message:   message,
		Type:      typ,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateNotification(ctx, &n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.logger.Debug("notification stored", slog.Int64("user_id", userID), slog.String("type", string(typ)))
	return nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListNotifications(ctx, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, id int64) (models.Notification, error) {
	if err := s.repo.MarkNotificationRead(ctx, id); err != nil {
		return models.Notification{}, err
	}
	return s.repo.GetNotification(ctx, id)
}

// DeadlineReminder tells the assignee that the task is due soon. Tasks
// without an assignee or a due date are skipped.
func (s *Service) DeadlineReminder(ctx context.Context, task models.Task) error {
	if task.AssigneeID == nil || task.DueDate == nil {
		return nil
	}
	return s.Notify(ctx, *task.AssigneeID,
		fmt.Sprintf("Reminder: Task '%s' is due soon", task.Title),
		models.NotifyDeadlineReminder)
}

// RemindDue sends a deadline reminder for every open, assigned task due
// within the next window. It returns the number of reminders sent.
func (s *Service) RemindDue(ctx context.Context, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, apperr.Validationf("reminder window must be positive")
	}
	tasks, err := s.repo.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	limit := now.Add(window)
	sent := 0
	for _, t := range tasks {
		if t.AssigneeID == nil || t.DueDate == nil || t.Status == models.StatusDone {
			continue
		}
		if !t.DueDate.After(now) || !t.DueDate.Before(limit) {
			continue
		}
		if err := s.DeadlineReminder(ctx, t); err != nil {
			return sent, err
		}
		sent++
	}
	s.logger.Info("deadline reminders sent", slog.Int("count", sent))
	return sent, nil
}
