package sqlstore

import (
	"context"
	"fmt"

	"sprintboard/internal/apperr"
	"sprintboard/internal/models"
)

const projectColumns = `id, name, description, color, owner_id, created_at, updated_at`

// CreateProject persists a project together with its initial members.
func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	id, err := s.insert(ctx, `INSERT INTO projects(name, description, color, owner_id, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Color, p.OwnerID, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	p.ID = id

	for _, userID := range p.MemberIDs {
		if err := s.AddProjectMember(ctx, id, userID); err != nil {
			return err
		}
	}
	return nil
}

// GetProject fetches a project and its member ids.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	if err := s.get(ctx, &p, "Project", id, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id); err != nil {
		return models.Project{}, err
	}
	if err := s.loadMembers(ctx, &p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// UpdateProject rewrites the editable project columns.
func (s *Store) UpdateProject(ctx context.Context, p models.Project) error {
	return s.execOne(ctx, "update project", "Project", p.ID, `UPDATE projects SET name = ?, description = ?, color = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Color, p.UpdatedAt.UTC(), p.ID)
}

// DeleteProject removes a project along with its sprints, tasks and reports.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete project", "Project", id, `DELETE FROM projects WHERE id = ?`, id)
}

func (s *Store) ListProjectsByOwner(ctx context.Context, userID int64) ([]models.Project, error) {
	return s.listProjects(ctx, `SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY id`, userID)
}

func (s *Store) ListProjectsByMember(ctx context.Context, userID int64) ([]models.Project, error) {
	return s.listProjects(ctx, `SELECT p.id, p.name, p.description, p.color, p.owner_id, p.created_at, p.updated_at
        FROM projects p JOIN project_members m ON m.project_id = p.id
        WHERE m.user_id = ? ORDER BY p.id`, userID)
}

func (s *Store) AddProjectMember(ctx context.Context, projectID, userID int64) error {
	_, err := s.q.ExecContext(ctx, s.q.Rebind(`INSERT INTO project_members(project_id, user_id) VALUES(?, ?)`), projectID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Validationf("user %d is already a member of project %d", userID, projectID)
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *Store) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	return s.execOne(ctx, "remove member", "Member", userID, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
}

func (s *Store) listProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	var projects []models.Project
	if err := s.selectAll(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	for i := range projects {
		if err := s.loadMembers(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (s *Store) loadMembers(ctx context.Context, p *models.Project) error {
	ids := []int64{}
	if err := s.selectAll(ctx, &ids, `SELECT user_id FROM project_members WHERE project_id = ? ORDER BY user_id`, p.ID); err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	p.MemberIDs = ids
	return nil
}
