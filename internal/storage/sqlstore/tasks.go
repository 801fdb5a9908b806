package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

const taskColumns = `id, project_id, sprint_id, assignee_id, title, description, status, priority, due_date, created_at, updated_at`

// CreateTask inserts a new task for a project.
func (s *Store) CreateTask(ctx context.Context, t *models.Task) error {
	id, err := s.insert(ctx, `INSERT INTO tasks(project_id, sprint_id, assignee_id, title, description, status, priority, due_date, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ProjectID, idOrNil(t.SprintID), idOrNil(t.AssigneeID), t.Title, t.Description, string(t.Status), string(t.Priority),
		utcPtr(t.DueDate), t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.ID = id
	return nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	var t models.Task
	err := s.get(ctx, &t, "Task", id, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return t, err
}

// UpdateTask writes every mutable column of the task.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) error {
	return s.execOne(ctx, "update task", "Task", t.ID,
		`UPDATE tasks SET sprint_id = ?, assignee_id = ?, title = ?, description = ?, status = ?, priority = ?, due_date = ?, updated_at = ?
        WHERE id = ?`,
		idOrNil(t.SprintID), idOrNil(t.AssigneeID), t.Title, t.Description, string(t.Status), string(t.Priority),
		utcPtr(t.DueDate), t.UpdatedAt.UTC(), t.ID)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete task", "Task", id, `DELETE FROM tasks WHERE id = ?`, id)
}

// ListTasks returns the tasks matching every set filter field, ordered by id.
func (s *Store) ListTasks(ctx context.Context, f storage.TaskFilter) ([]models.Task, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`)

	if f.ProjectID != nil {
		sb.WriteString(` AND project_id = ?`)
		args = append(args, *f.ProjectID)
	}
	if f.SprintID != nil {
		sb.WriteString(` AND sprint_id = ?`)
		args = append(args, *f.SprintID)
	}
	if f.AssigneeID != nil {
		sb.WriteString(` AND assignee_id = ?`)
		args = append(args, *f.AssigneeID)
	}
	if f.Status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		sb.WriteString(` AND priority = ?`)
		args = append(args, string(*f.Priority))
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		// Plain substring match; the keyword carries no wildcards.
		needle := strings.ToLower(kw)
		fn := "instr(fold(title), ?) > 0 OR instr(fold(description), ?) > 0"
		if s.driver == DriverPostgres {
			fn = "strpos(lower(title), ?) > 0 OR strpos(lower(description), ?) > 0"
		}
		sb.WriteString(` AND (` + fn + `)`)
		args = append(args, needle, needle)
	}
	sb.WriteString(` ORDER BY id`)

	tasks := []models.Task{}
	if err := s.selectAll(ctx, &tasks, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) UnassignTasks(ctx context.Context, projectID, userID int64) error {
	_, err := s.q.ExecContext(ctx, s.q.Rebind(`UPDATE tasks SET assignee_id = NULL WHERE project_id = ? AND assignee_id = ?`), projectID, userID)
	if err != nil {
		return fmt.Errorf("unassign tasks: %w", err)
	}
	return nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func idOrNil(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
