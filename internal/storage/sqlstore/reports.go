package sqlstore

import (
	"context"
	"fmt"

	"sprintboard/internal/models"
)

// CreateSprintReport appends a report snapshot. Snapshots are never updated.
func (s *Store) CreateSprintReport(ctx context.Context, r *models.StoredSprintReport) error {
	id, err := s.insert(ctx, `INSERT INTO sprint_reports(sprint_id, sprint_name, start_date, end_date, summary,
        task_completion_rate, velocity, total_tasks, completed_tasks, generated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SprintID, r.SprintName, r.StartDate.UTC(), r.EndDate.UTC(), r.Summary,
		r.TaskCompletionRate, r.Velocity, r.TotalTasks, r.CompletedTasks, r.GeneratedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert sprint report: %w", err)
	}
	r.ID = id
	return nil
}

// ListSprintReports resolves the project through each report's sprint.
func (s *Store) ListSprintReports(ctx context.Context, projectID int64) ([]models.StoredSprintReport, error) {
	out := []models.StoredSprintReport{}
	err := s.selectAll(ctx, &out, `SELECT r.id, r.sprint_id, sp.project_id, r.sprint_name, r.start_date, r.end_date, r.summary,
            r.task_completion_rate, r.velocity, r.total_tasks, r.completed_tasks, r.generated_at
        FROM sprint_reports r JOIN sprints sp ON sp.id = r.sprint_id
        WHERE sp.project_id = ?
        ORDER BY r.generated_at DESC, r.id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sprint reports: %w", err)
	}
	return out, nil
}
