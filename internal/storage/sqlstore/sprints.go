package sqlstore

import (
	"context"
	"fmt"
	"time"

	"sprintboard/internal/models"
)

const sprintColumns = `id, project_id, name, start_date, end_date, status, created_at, updated_at`

func (s *Store) CreateSprint(ctx context.Context, sp *models.Sprint) error {
	id, err := s.insert(ctx, `INSERT INTO sprints(project_id, name, start_date, end_date, status, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sp.ProjectID, sp.Name, sp.StartDate.UTC(), sp.EndDate.UTC(), string(sp.Status), sp.CreatedAt.UTC(), sp.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert sprint: %w", err)
	}
	sp.ID = id
	return nil
}

func (s *Store) GetSprint(ctx context.Context, id int64) (models.Sprint, error) {
	var sp models.Sprint
	err := s.get(ctx, &sp, "Sprint", id, `SELECT `+sprintColumns+` FROM sprints WHERE id = ?`, id)
	return sp, err
}

func (s *Store) UpdateSprint(ctx context.Context, sp models.Sprint) error {
	return s.execOne(ctx, "update sprint", "Sprint", sp.ID,
		`UPDATE sprints SET name = ?, start_date = ?, end_date = ?, status = ?, updated_at = ? WHERE id = ?`,
		sp.Name, sp.StartDate.UTC(), sp.EndDate.UTC(), string(sp.Status), sp.UpdatedAt.UTC(), sp.ID)
}

// ListSprintsByProject returns sprints ordered by start date.
func (s *Store) ListSprintsByProject(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	return s.listSprints(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id = ? ORDER BY start_date, id`, projectID)
}

func (s *Store) ListSprintsByProjectAndStatus(ctx context.Context, projectID int64, status models.SprintStatus) ([]models.Sprint, error) {
	return s.listSprints(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id = ? AND status = ? ORDER BY start_date, id`,
		projectID, string(status))
}

func (s *Store) ListSprintsInRange(ctx context.Context, projectID int64, from, to time.Time) ([]models.Sprint, error) {
	return s.listSprints(ctx, `SELECT `+sprintColumns+` FROM sprints
        WHERE project_id = ? AND start_date < ? AND end_date > ? ORDER BY start_date, id`,
		projectID, to.UTC(), from.UTC())
}

func (s *Store) listSprints(ctx context.Context, query string, args ...any) ([]models.Sprint, error) {
	sprints := []models.Sprint{}
	if err := s.selectAll(ctx, &sprints, query, args...); err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	return sprints, nil
}
