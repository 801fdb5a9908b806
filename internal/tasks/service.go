// Package tasks owns task records: creation, edits, assignment, search and
// the status lifecycle.
package tasks

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

// Notifier receives user-facing messages. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string, typ models.NotificationType) error
}

// NewTask carries the fields accepted when creating a task.
type NewTask struct {
	ProjectID   int64
	Title       string
	Description string
	Priority    models.Priority
	SprintID    *int64
	AssigneeID  *int64
	DueDate     *time.Time
}

// TaskPatch holds optional edits. Nil fields are left untouched; a SprintID
// of 0 detaches the task from its sprint and ClearDueDate removes the due
// date.
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *models.Priority
	DueDate      *time.Time
	ClearDueDate bool
	SprintID     *int64
}

// Query filters Search. Keyword matches title or description.
type Query struct {
	Keyword    string
	ProjectID  *int64
	AssigneeID *int64
	Status     *models.TaskStatus
	Priority   *models.Priority
}

func (q Query) empty() bool {
	return strings.TrimSpace(q.Keyword) == "" && q.ProjectID == nil && q.AssigneeID == nil &&
		q.Status == nil && q.Priority == nil
}

type message struct {
	userID int64
	text   string
	typ    models.NotificationType
}

// Service applies the task rules on top of a Repository.
type Service struct {
	repo     storage.Repository
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// NewService builds a task service. notifier may be nil.
func NewService(repo storage.Repository, notifier Notifier, clk clock.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, clock: clock.OrSystem(clk), logger: logger}
}

// Create validates and stores a new task in TODO.
func (s *Service) Create(ctx context.Context, in NewTask) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, apperr.Validationf("task title is required")
	}
	if in.ProjectID <= 0 {
		return models.Task{}, apperr.Validationf("project id is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, apperr.Validationf("unknown priority %q", in.Priority)
	}

	var (
		task   models.Task
		notify []message
	)
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetProject(ctx, in.ProjectID); err != nil {
			return err
		}
		if in.SprintID != nil {
			if err := checkSprint(ctx, repo, *in.SprintID, in.ProjectID); err != nil {
				return err
			}
		}
		if in.AssigneeID != nil {
			if _, err := repo.GetUser(ctx, *in.AssigneeID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		task = models.Task{
			ProjectID:   in.ProjectID,
			SprintID:    in.SprintID,
			AssigneeID:  in.AssigneeID,
			Title:       title,
			Description: in.Description,
			Status:      models.StatusTodo,
			Priority:    priority,
			DueDate:     in.DueDate,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.CreateTask(ctx, &task); err != nil {
			return err
		}
		if task.AssigneeID != nil {
			notify = append(notify, assignedMessage(*task.AssigneeID, task.Title))
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}

	s.logger.Info("task created", slog.Int64("task_id", task.ID), slog.Int64("project_id", task.ProjectID))
	s.deliver(ctx, notify)
	return task, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Task, error) {
	return s.repo.GetTask(ctx, id)
}

// Update applies a patch. Status is never changed here.
func (s *Service) Update(ctx context.Context, id int64, patch TaskPatch) (models.Task, error) {
	var task models.Task
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		task, err = repo.GetTask(ctx, id)
		if err != nil {
			return err
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperr.Validationf("task title cannot be blank")
			}
			task.Title = title
		}
		if patch.Description != nil {
			task.Description = *patch.Description
		}
		if patch.Priority != nil {
			if !patch.Priority.Valid() {
				return apperr.Validationf("unknown priority %q", *patch.Priority)
			}
			task.Priority = *patch.Priority
		}
		switch {
		case patch.ClearDueDate && patch.DueDate != nil:
			return apperr.Validationf("due date cannot be both set and cleared")
		case patch.ClearDueDate:
			task.DueDate = nil
		case patch.DueDate != nil:
			due := *patch.DueDate
			task.DueDate = &due
		}
		if patch.SprintID != nil {
			if *patch.SprintID == 0 {
				task.SprintID = nil
			} else {
				if err := checkSprint(ctx, repo, *patch.SprintID, task.ProjectID); err != nil {
					return err
				}
				sprintID := *patch.SprintID
				task.SprintID = &sprintID
			}
		}

		task.UpdatedAt = s.clock.Now()
		return repo.UpdateTask(ctx, task)
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ChangeStatus moves a task along the lifecycle. actorID identifies who
// made the change; 0 means unknown.
func (s *Service) ChangeStatus(ctx context.Context, id int64, to models.TaskStatus, actorID int64) (models.Task, error) {
	if !to.Valid() {
		return models.Task{}, apperr.Validationf("unknown task status %q", to)
	}

	var task models.Task
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		task, err = repo.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(task.Status, to) {
			return &apperr.TransitionError{From: string(task.Status), To: string(to)}
		}
		task.Status = to
		task.UpdatedAt = s.clock.Now()
		return repo.UpdateTask(ctx, task)
	})
	if err != nil {
		return models.Task{}, err
	}

	s.logger.Info("task status changed", slog.Int64("task_id", task.ID), slog.String("status", string(to)))
	if task.AssigneeID != nil && actorID != 0 && actorID != *task.AssigneeID {
		s.deliver(ctx, []message{{
			userID: *task.AssigneeID,
			text:   fmt.Sprintf("Task '%s' status changed to %s", task.Title, to),
			typ:    models.NotifyStatusChanged,
		}})
	}
	return task, nil
}

// Assign gives the task to a user who owns or belongs to its project.
func (s *Service) Assign(ctx context.Context, taskID, userID int64) (models.Task, error) {
	var (
		task   models.Task
		notify []message
	)
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		task, err = repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		project, err := repo.GetProject(ctx, task.ProjectID)
		if err != nil {
			return err
		}
		if !project.HasMember(userID) {
			return apperr.Validationf("user %d is not a member of project %d", userID, project.ID)
		}

		previous := task.AssigneeID
		task.AssigneeID = &userID
		task.UpdatedAt = s.clock.Now()
		if err := repo.UpdateTask(ctx, task); err != nil {
			return err
		}

		notify = append(notify, assignedMessage(userID, task.Title))
		if previous != nil && *previous != userID {
			notify = append(notify, message{
				userID: *previous,
				text:   fmt.Sprintf("Task '%s' has been reassigned to %s", task.Title, user.Username),
				typ:    models.NotifyStatusChanged,
			})
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}

	s.deliver(ctx, notify)
	return task, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", slog.Int64("task_id", id))
	return nil
}

func (s *Service) ListByProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, storage.TaskFilter{ProjectID: &projectID})
}

func (s *Service) ListBySprint(ctx context.Context, sprintID int64) ([]models.Task, error) {
	if _, err := s.repo.GetSprint(ctx, sprintID); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, storage.TaskFilter{SprintID: &sprintID})
}

func (s *Service) ListByAssignee(ctx context.Context, userID int64) ([]models.Task, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, storage.TaskFilter{AssigneeID: &userID})
}

// Search returns tasks matching every set field of q. A query with nothing
// set matches nothing.
func (s *Service) Search(ctx context.Context, q Query) ([]models.Task, error) {
	if q.empty() {
		return []models.Task{}, nil
	}
	if q.Status != nil && !q.Status.Valid() {
		return nil, apperr.Validationf("unknown task status %q", *q.Status)
	}
	if q.Priority != nil && !q.Priority.Valid() {
		return nil, apperr.Validationf("unknown priority %q", *q.Priority)
	}
	return s.repo.ListTasks(ctx, storage.TaskFilter{
		ProjectID:  q.ProjectID,
		AssigneeID: q.AssigneeID,
		Status:     q.Status,
		Priority:   q.Priority,
		Keyword:    q.Keyword,
	})
}

func checkSprint(ctx context.Context, repo storage.Repository, sprintID, projectID int64) error {
	sprint, err := repo.GetSprint(ctx, sprintID)
	if err != nil {
		return err
	}
	if sprint.ProjectID != projectID {
		return apperr.Validationf("sprint %d does not belong to project %d", sprintID, projectID)
	}
	return nil
}

func assignedMessage(userID int64, title string) message {
	return message{
		userID: userID,
		text:   fmt.Sprintf("You have been assigned to task: %s", title),
		typ:    models.NotifyTaskAssigned,
	}
}

// deliver hands messages to the notifier. Failures are logged and dropped.
func (s *Service) deliver(ctx context.Context, msgs []message) {
	if s.notifier == nil {
		return
	}
	for _, m := range msgs {
		if err := s.notifier.Notify(ctx, m.userID, m.text, m.typ); err != nil {
			s.logger.Warn("notification failed",
				slog.Int64("user_id", m.userID),
				slog.String("type", string(m.typ)),
				slog.String("error", err.Error()))
		}
	}
}
