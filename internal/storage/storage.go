// Package storage declares the record store the services run against.
//
// Implementations live in sqlstore (SQLite or PostgreSQL through sqlx) and
// memstore (process memory). Lookups of a missing row return an
// apperr.NotFound error naming the entity.
package storage

import (
	"context"
	"time"

	"sprintboard/internal/models"
)

// TaskFilter narrows ListTasks. Zero values mean "any"; all set fields are
// combined with AND.
type TaskFilter struct {
	ProjectID  *int64
	SprintID   *int64
	AssigneeID *int64
	Status     *models.TaskStatus
	Priority   *models.Priority
	// Keyword matches title or description, case-insensitively.
	Keyword string
}

// Repository is the record store for users, projects, sprints, tasks,
// notifications and stored sprint reports.
type Repository interface {
	// InTx runs fn as one unit of work: either every write made through the
	// Repository handed to fn commits, or none does. Nested calls join the
	// enclosing unit.
	InTx(ctx context.Context, fn func(Repository) error) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)

	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int64) (models.Project, error)
	UpdateProject(ctx context.Context, p models.Project) error
	DeleteProject(ctx context.Context, id int64) error
	ListProjectsByOwner(ctx context.Context, userID int64) ([]models.Project, error)
	ListProjectsByMember(ctx context.Context, userID int64) ([]models.Project, error)
	AddProjectMember(ctx context.Context, projectID, userID int64) error
	RemoveProjectMember(ctx context.Context, projectID, userID int64) error

	CreateSprint(ctx context.Context, s *models.Sprint) error
	GetSprint(ctx context.Context, id int64) (models.Sprint, error)
	UpdateSprint(ctx context.Context, s models.Sprint) error
	ListSprintsByProject(ctx context.Context, projectID int64) ([]models.Sprint, error)
	ListSprintsByProjectAndStatus(ctx context.Context, projectID int64, status models.SprintStatus) ([]models.Sprint, error)
	// ListSprintsInRange returns the project's sprints whose range
	// intersects [from, to).
	ListSprintsInRange(ctx context.Context, projectID int64, from, to time.Time) ([]models.Sprint, error)

	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int64) (models.Task, error)
	UpdateTask(ctx context.Context, t models.Task) error
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error)
	// UnassignTasks clears the assignee of the user's tasks in a project.
	UnassignTasks(ctx context.Context, projectID, userID int64) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id int64) (models.Notification, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error

	CreateSprintReport(ctx context.Context, r *models.StoredSprintReport) error
	// ListSprintReports returns a project's stored reports, newest first.
	ListSprintReports(ctx context.Context, projectID int64) ([]models.StoredSprintReport, error)
}
